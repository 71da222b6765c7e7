package redis

// Redis key naming conventions for queue data.
// All keys are prefixed with "syncq:" to avoid collisions.

const keyPrefix = "syncq:"

// jobKey returns the Hash key for a job entity: syncq:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// pendingKey returns the Sorted Set of due/delayed jobs for a queue,
// scored by RunAt in unix milliseconds: syncq:pending:{queue}
func pendingKey(queue string) string { return keyPrefix + "pending:" + queue }

// historyKey returns the Sorted Set of terminal jobs for a queue and
// state, scored by completion time: syncq:completed:{queue} or
// syncq:failed:{queue}
func historyKey(queue, state string) string { return keyPrefix + state + ":" + queue }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"
