package mongo

import (
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

var allowedFields = map[string]bool{"title": true, "status": true, "contextbox": true,
	"durationSec": true, "recordingUrl": true, "transcript": true, "feedback": true,
	"email": true, "deviceId": true, "error": true}

// RecordSaver creates or merges vault entries in mongo db
type RecordSaver struct {
	SessionProvider *SessionProvider
}

// NewRecordSaver creates RecordSaver instance
func NewRecordSaver(sessionProvider *SessionProvider) (*RecordSaver, error) {
	return &RecordSaver{SessionProvider: sessionProvider}, nil
}

// CreateOrMerge upserts the vault entry and merges the provided fields.
// Returns true if a new record was created. Timestamps are server-assigned
func (ss *RecordSaver) CreateOrMerge(userID string, id string, fields map[string]interface{}) (bool, error) {
	cmdapp.Log.Infof("Saving record %s/%s", userID, id)

	set, err := makeSet(fields)
	if err != nil {
		return false, err
	}

	c, ctx, cancel, err := newColl(ss.SessionProvider, vaultEntryTable)
	if err != nil {
		return false, err
	}
	defer cancel()

	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id), "userID": sanitize(userID)},
		bson.M{"$set": set,
			"$setOnInsert": bson.M{"ID": sanitize(id), "userID": sanitize(userID), "createdAt": set["updatedAt"]}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, errors.Wrap(err, "can't save record")
	}
	return res.UpsertedCount > 0, nil
}

// Ingest merges the upload fields and marks the record as ingested.
// Returns true when the audio was already taken in for the ID. The record
// may exist as a client created shell, that is not a duplicate.
// A duplicate call leaves the record untouched
func (ss *RecordSaver) Ingest(userID string, id string, fields map[string]interface{}) (bool, error) {
	cmdapp.Log.Infof("Ingesting record %s/%s", userID, id)

	set, err := makeSet(fields)
	if err != nil {
		return false, err
	}

	c, ctx, cancel, err := newColl(ss.SessionProvider, vaultEntryTable)
	if err != nil {
		return false, err
	}
	defer cancel()

	key := bson.M{"ID": sanitize(id), "userID": sanitize(userID)}
	var existing struct {
		IngestedAt *time.Time `bson:"ingestedAt"`
	}
	err = c.FindOne(ctx, key).Decode(&existing)
	if err == nil && existing.IngestedAt != nil {
		return true, nil
	}
	if err != nil && err != mongo.ErrNoDocuments {
		return false, errors.Wrap(err, "can't check record")
	}

	set["ingestedAt"] = set["updatedAt"]
	_, err = c.UpdateOne(ctx, key,
		bson.M{"$set": set,
			"$setOnInsert": bson.M{"ID": sanitize(id), "userID": sanitize(userID), "createdAt": set["updatedAt"]}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, errors.Wrap(err, "can't save record")
	}
	return false, nil
}

func makeSet(fields map[string]interface{}) (bson.M, error) {
	set := bson.M{}
	for k, v := range fields {
		if !allowedFields[k] {
			return nil, errors.Errorf("unknown record field '%s'", k)
		}
		set[k] = v
	}
	set["updatedAt"] = time.Now()
	return set, nil
}
