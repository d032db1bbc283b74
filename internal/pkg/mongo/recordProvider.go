package mongo

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/record"
)

// RecordProvider provides vault entries from mongo db
type RecordProvider struct {
	SessionProvider *SessionProvider
}

// NewRecordProvider creates RecordProvider instance
func NewRecordProvider(sessionProvider *SessionProvider) (*RecordProvider, error) {
	return &RecordProvider{SessionProvider: sessionProvider}, nil
}

// Get retrieves the record. The second result is false when no record exists
func (rp *RecordProvider) Get(userID string, id string) (*record.Record, bool, error) {
	cmdapp.Log.Infof("Retrieving record %s/%s", userID, id)

	c, ctx, cancel, err := newColl(rp.SessionProvider, vaultEntryTable)
	if err != nil {
		return nil, false, err
	}
	defer cancel()

	var m bson.M
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id), "userID": sanitize(userID)}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		cmdapp.Log.Infof("ID not found %s/%s", userID, id)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "can't get record")
	}
	return mapRecord(m), true, nil
}

// List returns all user records ordered by creation time descending
func (rp *RecordProvider) List(userID string) ([]*record.Record, error) {
	cmdapp.Log.Infof("Listing records for %s", userID)

	c, ctx, cancel, err := newColl(rp.SessionProvider, vaultEntryTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{"userID": sanitize(userID)},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "can't list records")
	}
	defer cursor.Close(ctx)

	res := make([]*record.Record, 0)
	for cursor.Next(ctx) {
		var m bson.M
		if err := cursor.Decode(&m); err != nil {
			return nil, errors.Wrap(err, "can't decode record")
		}
		res = append(res, mapRecord(m))
	}
	return res, cursor.Err()
}

func mapRecord(m bson.M) *record.Record {
	res := &record.Record{}
	res.ID, _ = m["ID"].(string)
	res.Title, _ = m["title"].(string)
	res.Status, _ = m["status"].(string)
	res.ContextBox, _ = m["contextbox"].(string)
	res.RecordingURL, _ = m["recordingUrl"].(string)
	res.Email, _ = m["email"].(string)
	res.Error, _ = m["error"].(string)
	res.DurationSec = asInt(m["durationSec"])
	res.Transcript = record.TranscriptFrom(asPlain(m["transcript"]))
	res.Feedback = record.FeedbackFrom(asPlain(m["feedback"]))
	if dt, ok := m["createdAt"].(primitive.DateTime); ok {
		res.CreatedAt = dt.Time()
	}
	if dt, ok := m["updatedAt"].(primitive.DateTime); ok {
		res.UpdatedAt = dt.Time()
	}
	return res
}

func asInt(v interface{}) int {
	switch iv := v.(type) {
	case int32:
		return int(iv)
	case int64:
		return int(iv)
	case int:
		return iv
	case float64:
		return int(iv)
	}
	return 0
}

// asPlain converts bson document values to plain go maps for the
// normalizing record decode
func asPlain(v interface{}) interface{} {
	switch tv := v.(type) {
	case primitive.M:
		res := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			res[k] = asPlain(val)
		}
		return res
	case primitive.D:
		res := make(map[string]interface{}, len(tv))
		for _, e := range tv {
			res[e.Key] = asPlain(e.Value)
		}
		return res
	case primitive.A:
		res := make([]interface{}, 0, len(tv))
		for _, e := range tv {
			res = append(res, asPlain(e))
		}
		return res
	}
	return v
}
