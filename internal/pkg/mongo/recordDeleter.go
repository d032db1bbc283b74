package mongo

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// RecordDeleter deletes vault entries from mongo db
type RecordDeleter struct {
	SessionProvider *SessionProvider
}

// NewRecordDeleter creates RecordDeleter instance
func NewRecordDeleter(sessionProvider *SessionProvider) (*RecordDeleter, error) {
	return &RecordDeleter{SessionProvider: sessionProvider}, nil
}

// Delete removes the record by user and story id
func (rd *RecordDeleter) Delete(userID string, id string) error {
	cmdapp.Log.Infof("Deleting record %s/%s", userID, id)

	c, ctx, cancel, err := newColl(rd.SessionProvider, vaultEntryTable)
	if err != nil {
		return err
	}
	defer cancel()

	info, err := c.DeleteMany(ctx, bson.M{"ID": sanitize(id), "userID": sanitize(userID)})
	if err != nil {
		return errors.Wrap(err, "can't delete record")
	}
	cmdapp.Log.Infof("Deleted %d", info.DeletedCount)
	return nil
}
