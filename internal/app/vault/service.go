package vault

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/heptiolabs/healthcheck"
	"github.com/streadway/amqp"

	"github.com/welltold/storygo/internal/app/vault/api"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/record"
)

type eventChannelFunc func() (<-chan amqp.Delivery, error)

// RecordProvider retrieves records from db
type RecordProvider interface {
	Get(userID string, id string) (*record.Record, bool, error)
	List(userID string) ([]*record.Record, error)
}

// RecordKeeper merges record fields into db
type RecordKeeper interface {
	CreateOrMerge(userID string, id string, fields map[string]interface{}) (bool, error)
}

// RecordDeleter removes records from db
type RecordDeleter interface {
	Delete(userID string, id string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	RecordProvider RecordProvider
	RecordKeeper   RecordKeeper
	RecordDeleter  RecordDeleter

	Port             int
	EventChannelFunc eventChannelFunc
	health           healthcheck.Handler
	quitCh           chan bool
}

//StartWebServer starts the event listener and the HTTP service
func StartWebServer(data *ServiceData) error {
	data.quitCh = make(chan bool)
	go registerQueue(data, data.quitCh, time.Second)

	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	err := gracehttp.Serve(&srv)
	close(data.quitCh)
	return err
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	if data.health == nil {
		data.health = healthcheck.NewHandler()
	}
	router := mux.NewRouter().StrictSlash(true)
	router.Methods("GET").Path("/record/{userId}/{storyId}").Handler(recordHandler{data: data})
	router.Methods("PUT").Path("/record/{userId}/{storyId}").Handler(mergeHandler{data: data})
	router.Methods("DELETE").Path("/record/{userId}/{storyId}").Handler(deleteHandler{data: data})
	router.Methods("GET").Path("/records/{userId}").Handler(listHandler{data: data})
	router.Handle("/subscribe", websocketHandler{data: data})
	router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
	router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	return router
}

type recordHandler struct {
	data *ServiceData
}

func (h recordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := takeIDs(w, r)
	if !ok {
		return
	}
	snap, err := makeSnapshot(h.data, messages.StoryKey(userID, id))
	if err != nil {
		setError(w, "Cannot get record", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	writeJSON(w, snap)
}

type listHandler struct {
	data *ServiceData
}

func (h listHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		setError(w, "No userId", http.StatusBadRequest)
		return
	}
	recs, err := h.data.RecordProvider.List(userID)
	if err != nil {
		setError(w, "Cannot list records", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	writeJSON(w, recs)
}

type mergeHandler struct {
	data *ServiceData
}

type mergeResult struct {
	Created bool `json:"created"`
}

func (h mergeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := takeIDs(w, r)
	if !ok {
		return
	}
	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		setError(w, "Wrong body", http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	created, err := h.data.RecordKeeper.CreateOrMerge(userID, id, fields)
	if err != nil {
		setError(w, "Cannot save record", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	writeJSON(w, &mergeResult{Created: created})
}

type deleteHandler struct {
	data *ServiceData
}

func (h deleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := takeIDs(w, r)
	if !ok {
		return
	}
	if err := h.data.RecordDeleter.Delete(userID, id); err != nil {
		setError(w, "Cannot delete record", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

type websocketHandler struct {
	data *ServiceData
}

func (h websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("ws request from %s", r.Host)

	c, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		setError(w, "Can not init ws connection", http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	go handleConnection(c, h.data)
}

func makeSnapshot(data *ServiceData, key string) (*api.Snapshot, error) {
	userID, id := messages.ParseStoryKey(key)
	rec, found, err := data.RecordProvider.Get(userID, id)
	if err != nil {
		return nil, err
	}
	return &api.Snapshot{Key: key, Exists: found, Record: rec}, nil
}

func sendSnapshot(conn WsConn, key string, data *ServiceData) error {
	snap, err := makeSnapshot(data, key)
	if err != nil {
		return err
	}
	return conn.WriteJSON(snap)
}

func takeIDs(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := mux.Vars(r)["userId"]
	id := mux.Vars(r)["storyId"]
	if userID == "" || id == "" {
		setError(w, "No ID", http.StatusBadRequest)
		cmdapp.Log.Errorf("No ID")
		return "", "", false
	}
	return userID, id, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cmdapp.Log.Error(err)
	}
}

func setError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	w.Write([]byte(message))
}
