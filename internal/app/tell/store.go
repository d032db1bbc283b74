package tell

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/app/vault/api"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/record"
	"github.com/welltold/storygo/internal/pkg/utils"
)

// RecordStore is the client port to the story vault
type RecordStore interface {
	Get(key string) (*api.Snapshot, error)
	Merge(key string, fields map[string]interface{}) error
	Delete(key string) error
	List(userID string) ([]*record.Record, error)
	// Subscribe pushes snapshots for the key into out until closed
	Subscribe(key string, out chan<- *api.Snapshot) (io.Closer, error)
}

// VaultClient accesses the vault service over HTTP and websocket
type VaultClient struct {
	url        string
	httpclient *http.Client
}

//NewVaultClient creates the client using vault.url config
func NewVaultClient() (*VaultClient, error) {
	res := VaultClient{}
	var err error
	res.url, err = utils.GetURLFromConfig("vault.url")
	if err != nil {
		return nil, err
	}
	res.httpclient = &http.Client{Timeout: 30 * time.Second}
	return &res, nil
}

// Get retrieves the record snapshot
func (c *VaultClient) Get(key string) (*api.Snapshot, error) {
	resp, err := c.httpclient.Get(utils.URLJoin(c.url, "record", key))
	if err != nil {
		return nil, errors.Wrap(err, "Can't get record "+key)
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, err
	}
	var res api.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "Can't decode snapshot")
	}
	return &res, nil
}

// Merge writes record fields
func (c *VaultClient) Merge(key string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "Can't marshal fields")
	}
	req, err := http.NewRequest(http.MethodPut, utils.URLJoin(c.url, "record", key), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Can't merge record "+key)
	}
	defer resp.Body.Close()
	return utils.ValidateResponse(resp)
}

// Delete removes the record
func (c *VaultClient) Delete(key string) error {
	req, err := http.NewRequest(http.MethodDelete, utils.URLJoin(c.url, "record", key), nil)
	if err != nil {
		return errors.Wrap(err, "Can't prepare request")
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return errors.Wrap(err, "Can't delete record "+key)
	}
	defer resp.Body.Close()
	return utils.ValidateResponse(resp)
}

// List retrieves all user records, newest first
func (c *VaultClient) List(userID string) ([]*record.Record, error) {
	resp, err := c.httpclient.Get(utils.URLJoin(c.url, "records", userID))
	if err != nil {
		return nil, errors.Wrap(err, "Can't list records")
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, err
	}
	var res []*record.Record
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "Can't decode records")
	}
	return res, nil
}

type subscription struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// Subscribe opens a websocket, sends the key and forwards snapshots.
// The reader stops on Close even when nobody drains out
func (c *VaultClient) Subscribe(key string, out chan<- *api.Snapshot) (io.Closer, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(utils.URLJoin(c.url, "subscribe")), nil)
	if err != nil {
		return nil, errors.Wrap(err, "Can't connect to vault ws")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(key)); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "Can't subscribe to "+key)
	}
	res := &subscription{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(out)
		for {
			var snap api.Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				cmdapp.Log.Debug(err)
				return
			}
			select {
			case out <- &snap:
			case <-res.done:
				return
			}
		}
	}()
	return res, nil
}

func wsURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else if u.Scheme == "http" || u.Scheme == "" {
		u.Scheme = "ws"
	}
	return u.String()
}
