package mongo

import (
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/status"
)

// StatusSaver saves story status to mongo db
type StatusSaver struct {
	SessionProvider *SessionProvider
}

// NewStatusSaver creates StatusSaver instance
func NewStatusSaver(sessionProvider *SessionProvider) (*StatusSaver, error) {
	return &StatusSaver{SessionProvider: sessionProvider}, nil
}

// Save sets the status field
func (ss *StatusSaver) Save(userID string, id string, st status.Status) error {
	cmdapp.Log.Infof("Saving status %s/%s: %s", userID, id, status.Name(st))
	return ss.update(userID, id, bson.M{"status": status.Name(st)})
}

// SaveError marks the record failed with the error text
func (ss *StatusSaver) SaveError(userID string, id string, errorStr string) error {
	cmdapp.Log.Infof("Saving error %s/%s: %s", userID, id, errorStr)
	return ss.update(userID, id, bson.M{"status": status.Name(status.Failed), "error": errorStr})
}

// SaveF sets arbitrary result fields
func (ss *StatusSaver) SaveF(userID string, id string, set map[string]interface{}) error {
	cmdapp.Log.Infof("Saving fields %s/%s", userID, id)
	update := bson.M{}
	for k, v := range set {
		if !allowedFields[k] {
			return errors.Errorf("unknown record field '%s'", k)
		}
		update[k] = v
	}
	return ss.update(userID, id, update)
}

func (ss *StatusSaver) update(userID string, id string, set bson.M) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, vaultEntryTable)
	if err != nil {
		return err
	}
	defer cancel()

	set["updatedAt"] = time.Now()
	res, err := c.UpdateOne(ctx, bson.M{"ID": sanitize(id), "userID": sanitize(userID)},
		bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "can't update record")
	}
	if res.MatchedCount == 0 {
		return errors.Errorf("no record for %s/%s", userID, id)
	}
	return nil
}
