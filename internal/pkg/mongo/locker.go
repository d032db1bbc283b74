package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// Locker acquires lock in db. It is used to guarantee emails are not sent twice
type Locker struct {
	SessionProvider *SessionProvider
}

// NewLocker creates Locker instance
func NewLocker(sessionProvider *SessionProvider) (*Locker, error) {
	return &Locker{SessionProvider: sessionProvider}, nil
}

// Lock locks record for sending email
func (ss *Locker) Lock(key string, lockKey string) error {
	cmdapp.Log.Infof("Locking %s: %s", key, lockKey)

	c, ctx, cancel, err := newColl(ss.SessionProvider, emailLockTable)
	if err != nil {
		return err
	}
	defer cancel()

	// make sure we have the record
	_, err = c.UpdateOne(ctx, bson.M{"key": sanitize(key), "lockKey": lockKey},
		bson.M{"$setOnInsert": bson.M{"status": 0}}, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}

	return c.FindOneAndUpdate(ctx, bson.M{"key": sanitize(key), "lockKey": lockKey, "status": 0},
		bson.M{"$set": bson.M{"status": 1}}).Err()
}

// UnLock marks record with specific value
func (ss *Locker) UnLock(key string, lockKey string, value *int) error {
	cmdapp.Log.Infof("Unlocking table %s: %s", key, lockKey)

	c, ctx, cancel, err := newColl(ss.SessionProvider, emailLockTable)
	if err != nil {
		return err
	}
	defer cancel()

	err = c.FindOneAndUpdate(ctx, bson.M{"key": sanitize(key), "lockKey": lockKey, "status": 1},
		bson.M{"$set": bson.M{"status": *value}}).Err()
	cmdapp.LogIf(err)
	return err
}
