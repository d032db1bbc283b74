package mongo

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// EmailRetriever returns notify email by story ID
type EmailRetriever struct {
	SessionProvider *SessionProvider
}

// NewEmailRetriever creates EmailRetriever instance
func NewEmailRetriever(sessionProvider *SessionProvider) (*EmailRetriever, error) {
	return &EmailRetriever{SessionProvider: sessionProvider}, nil
}

// Get returns email by user and story id. Empty when none was attached
func (ss *EmailRetriever) Get(userID string, id string) (string, error) {
	cmdapp.Log.Infof("Getting email by ID %s/%s", userID, id)

	c, ctx, cancel, err := newColl(ss.SessionProvider, vaultEntryTable)
	if err != nil {
		return "", err
	}
	defer cancel()

	var m bson.M
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id), "userID": sanitize(userID)}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		cmdapp.Log.Infof("ID not found %s/%s", userID, id)
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "can't get record")
	}
	email, _ := m["email"].(string)
	return email, nil
}
