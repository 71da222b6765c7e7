package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/record"
)

// ── Sessions ──────────────────────────────────────────────────────

// ListSessions returns all tenant sessions sorted by tenant ID.
func (s *Store) ListSessions(ctx context.Context) ([]*record.Session, error) {
	col := s.db.Collection(colSessions)

	findOpts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}})
	cursor, err := col.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("sync/mongo: list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*record.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("sync/mongo: list sessions decode: %w", err)
	}
	return sessions, nil
}

// GetSession retrieves the session for a tenant.
func (s *Store) GetSession(ctx context.Context, tenantID string) (*record.Session, error) {
	col := s.db.Collection(colSessions)
	var sess record.Session
	err := col.FindOne(ctx, bson.M{"userId": tenantID}).Decode(&sess)
	if err != nil {
		if isNoDocuments(err) {
			return nil, syncservice.ErrSessionNotFound
		}
		return nil, fmt.Errorf("sync/mongo: get session: %w", err)
	}
	return &sess, nil
}

// ── Contacts ──────────────────────────────────────────────────────

// MergeContacts upserts the drafts keyed by (userId, phoneNumber) in a
// single batched write.
func (s *Store) MergeContacts(ctx context.Context, contacts []record.Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	models := make([]mongod.WriteModel, 0, len(contacts))
	for i := range contacts {
		c := &contacts[i]
		models = append(models, mergeModel(
			bson.M{"userId": c.TenantID, "phoneNumber": c.PhoneNumber},
			bson.M{
				"sessionPhone": c.SessionPhone,
				"wid":          c.WID,
				"name":         c.Name,
				"profilePic":   c.ProfilePic,
				"isBusiness":   c.IsBusiness,
			},
		))
	}

	n, err := s.bulkMerge(ctx, colContacts, models)
	if err != nil {
		return 0, fmt.Errorf("sync/mongo: merge contacts: %w", err)
	}
	return n, nil
}

// GetContact retrieves a contact by its natural key.
func (s *Store) GetContact(ctx context.Context, tenantID, phoneNumber string) (*record.Contact, error) {
	col := s.db.Collection(colContacts)
	var c record.Contact
	err := col.FindOne(ctx, bson.M{"userId": tenantID, "phoneNumber": phoneNumber}).Decode(&c)
	if err != nil {
		if isNoDocuments(err) {
			return nil, syncservice.ErrContactNotFound
		}
		return nil, fmt.Errorf("sync/mongo: get contact: %w", err)
	}
	return &c, nil
}

// ── Groups ────────────────────────────────────────────────────────

// MergeGroups upserts the drafts keyed by (userId, groupId) in a single
// batched write.
func (s *Store) MergeGroups(ctx context.Context, groups []record.Group) (int64, error) {
	if len(groups) == 0 {
		return 0, nil
	}

	models := make([]mongod.WriteModel, 0, len(groups))
	for i := range groups {
		g := &groups[i]
		models = append(models, mergeModel(
			bson.M{"userId": g.TenantID, "groupId": g.GroupID},
			bson.M{
				"sessionPhone": g.SessionPhone,
				"name":         g.Name,
				"participants": g.Participants,
			},
		))
	}

	n, err := s.bulkMerge(ctx, colGroups, models)
	if err != nil {
		return 0, fmt.Errorf("sync/mongo: merge groups: %w", err)
	}
	return n, nil
}

// GetGroup retrieves a group by its natural key.
func (s *Store) GetGroup(ctx context.Context, tenantID, groupID string) (*record.Group, error) {
	col := s.db.Collection(colGroups)
	var g record.Group
	err := col.FindOne(ctx, bson.M{"userId": tenantID, "groupId": groupID}).Decode(&g)
	if err != nil {
		if isNoDocuments(err) {
			return nil, syncservice.ErrGroupNotFound
		}
		return nil, fmt.Errorf("sync/mongo: get group: %w", err)
	}
	return &g, nil
}

// ── Statuses ──────────────────────────────────────────────────────

// UpsertStatus applies a partial update to the (tenantID, sessionPhone)
// record, creating it on first write.
func (s *Store) UpsertStatus(ctx context.Context, tenantID, sessionPhone string, upd record.StatusUpdate) error {
	t := syncservice.Now()

	set := bson.M{
		"isSyncing": upd.IsSyncing,
		"error":     upd.Error,
		"updatedAt": t,
	}
	if upd.LastSync != nil {
		set["lastSync"] = *upd.LastSync
	}
	if upd.TotalContacts != nil {
		set["totalContacts"] = *upd.TotalContacts
	}
	if upd.TotalGroups != nil {
		set["totalGroups"] = *upd.TotalGroups
	}

	col := s.db.Collection(colStatuses)
	_, err := col.UpdateOne(ctx,
		bson.M{"userId": tenantID, "sessionPhone": sessionPhone},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"createdAt": t},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("sync/mongo: upsert status: %w", err)
	}
	return nil
}

// GetStatus retrieves the status record for a tenant session.
func (s *Store) GetStatus(ctx context.Context, tenantID, sessionPhone string) (*record.Status, error) {
	col := s.db.Collection(colStatuses)
	var st record.Status
	err := col.FindOne(ctx, bson.M{"userId": tenantID, "sessionPhone": sessionPhone}).Decode(&st)
	if err != nil {
		if isNoDocuments(err) {
			return nil, syncservice.ErrStatusNotFound
		}
		return nil, fmt.Errorf("sync/mongo: get status: %w", err)
	}
	return &st, nil
}

// ── merge helpers ─────────────────────────────────────────────────

// mergeModel builds one upsert: every field in set plus the modification
// timestamp on each write, the creation timestamp only on insert.
func mergeModel(filter, set bson.M) mongod.WriteModel {
	t := syncservice.Now()
	set["updatedAt"] = t
	return mongod.NewUpdateOneModel().
		SetFilter(filter).
		SetUpdate(bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"createdAt": t},
		}).
		SetUpsert(true)
}

// bulkMerge runs the models unordered and reports affected rows, the
// sum of inserts and modifications. Unchanged documents do not count.
func (s *Store) bulkMerge(ctx context.Context, col string, models []mongod.WriteModel) (int64, error) {
	res, err := s.db.Collection(col).BulkWrite(ctx, models,
		options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.UpsertedCount + res.ModifiedCount, nil
}
