package syncservice

import "errors"

var (
	// Store errors.
	ErrNoStore = errors.New("syncservice: no store configured")

	// Queue errors.
	ErrNoJob = errors.New("syncservice: no job due")

	// Not found errors.
	ErrJobNotFound     = errors.New("syncservice: job not found")
	ErrSessionNotFound = errors.New("syncservice: session not found")
	ErrContactNotFound = errors.New("syncservice: contact not found")
	ErrGroupNotFound   = errors.New("syncservice: group not found")
	ErrStatusNotFound  = errors.New("syncservice: sync status not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("syncservice: job already exists")

	// Business errors. These are recorded into the sync status record by
	// the orchestrator and never propagated to the queue's retry policy.
	ErrNotConnected = errors.New("WhatsApp instance not connected")
)
