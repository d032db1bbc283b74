package mongo

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

// IndexData keeps index creation data
type IndexData struct {
	Table  string
	Fields []string
	Unique bool
}

func newIndexData(table string, fields []string, unique bool) IndexData {
	return IndexData{Table: table, Fields: fields, Unique: unique}
}

// SessionProvider connects and provides client for mongo DB
type SessionProvider struct {
	client  *mongo.Client
	URL     string
	indexes []IndexData
	m       sync.Mutex // struct field mutex
}

// NewSessionProvider creates Mongo session provider
func NewSessionProvider() (*SessionProvider, error) {
	url := cmdapp.Config.GetString("mongo.url")
	if url == "" {
		return nil, errors.New("No Mongo url provided")
	}
	return &SessionProvider{URL: url, indexes: indexData}, nil
}

// Close closes mongo client
func (sp *SessionProvider) Close() {
	if sp.client != nil {
		ctx, cancel := mongoContext()
		defer cancel()
		cmdapp.LogIf(sp.client.Disconnect(ctx))
	}
}

// Healthy checks the mongo connection
func (sp *SessionProvider) Healthy() error {
	s, err := sp.NewSession()
	if err != nil {
		return err
	}
	defer s.EndSession(context.Background())
	ctx, cancel := mongoContext()
	defer cancel()
	return s.Client().Ping(ctx, nil)
}

// NewSession creates mongo session
func (sp *SessionProvider) NewSession() (mongo.Session, error) {
	sp.m.Lock()
	defer sp.m.Unlock()

	if sp.client == nil {
		cmdapp.Log.Info("Dial mongo: " + hidePass(sp.URL))
		ctx, cancel := mongoContext()
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sp.URL))
		if err != nil {
			return nil, errors.Wrap(err, "Can't dial to mongo")
		}
		err = checkIndexes(client, sp.indexes)
		if err != nil {
			defer client.Disconnect(context.Background())
			return nil, errors.Wrap(err, "Can't create indexes")
		}
		sp.client = client
	}
	return sp.client.StartSession()
}

func checkIndexes(c *mongo.Client, indexes []IndexData) error {
	for _, index := range indexes {
		err := checkIndex(c, index)
		if err != nil {
			return errors.Wrap(err, "Can't create index: "+index.Table+":"+strings.Join(index.Fields, ","))
		}
	}
	return nil
}

func checkIndex(c *mongo.Client, indexData IndexData) error {
	ctx, cancel := mongoContext()
	defer cancel()

	keys := bson.D{}
	for _, f := range indexData.Fields {
		keys = append(keys, primitive.E{Key: f, Value: 1})
	}
	_, err := c.Database(store).Collection(indexData.Table).Indexes().CreateOne(ctx,
		mongo.IndexModel{Keys: keys,
			Options: options.Index().SetUnique(indexData.Unique).SetSparse(true).SetBackground(true)})
	return err
}

func newColl(sp *SessionProvider, table string) (*mongo.Collection, context.Context, context.CancelFunc, error) {
	ctx, cancel := mongoContext()
	session, err := sp.NewSession()
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	c := session.Client().Database(store).Collection(table)
	return c, ctx, func() {
		session.EndSession(context.Background())
		cancel()
	}, nil
}

func mongoContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func sanitize(s string) string {
	return strings.TrimLeft(s, "$")
}

func hidePass(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		cmdapp.Log.Warn("Can't parse mongo url.")
		return ""
	}
	_, ps := u.User.Password()
	if ps {
		u.User = url.UserPassword(u.User.Username(), "----")
	}
	return u.String()
}
