package upload

import (
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/welltold/storygo/internal/app/upload/api"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/metrics"
	"github.com/welltold/storygo/internal/pkg/status"
)

const (
	//DefaultMaxAudioSeconds is the longest accepted recording
	DefaultMaxAudioSeconds = 480
	//DefaultMaxBodyBytes limits the upload body. 96 MiB
	DefaultMaxBodyBytes = 96 << 20
)

type serviceMetric struct {
	uploadResponseDur prometheus.ObserverVec
	uploadRequestSize prometheus.ObserverVec
}

// ServiceData keeps data required for service work
type ServiceData struct {
	FileSaver     FileSaver
	MessageSender messages.Sender
	RecordKeeper  RecordKeeper

	// Secret guards the endpoint. Empty value disables the check
	Secret          string
	MaxAudioSeconds int
	MaxBodyBytes    int64

	Port    int
	health  healthcheck.Handler
	metrics serviceMetric
	busy    chan struct{}
}

// StoryResult - post method response in JSON
type StoryResult struct {
	ID string `json:"storyId"`
}

//StartWebServer starts the HTTP service and listens for the requests
func StartWebServer(data *ServiceData) error {
	cmdapp.Log.Infof("Starting HTTP service at %d", data.Port)
	r := NewRouter(data)

	portStr := strconv.Itoa(data.Port)
	srv := http.Server{
		Addr:              ":" + portStr,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       180 * time.Second,
		Handler:           r,
	}

	w := cmdapp.Log.Writer()
	defer w.Close()
	l := log.New(w, "", 0)
	gracehttp.SetLogger(l)

	return gracehttp.Serve(&srv)
}

//NewRouter creates the router for HTTP service
func NewRouter(data *ServiceData) *mux.Router {
	if data.health == nil {
		data.health = healthcheck.NewHandler()
	}
	if data.MaxAudioSeconds <= 0 {
		data.MaxAudioSeconds = DefaultMaxAudioSeconds
	}
	if data.MaxBodyBytes <= 0 {
		data.MaxBodyBytes = DefaultMaxBodyBytes
	}
	initMetrics(data)
	router := mux.NewRouter().StrictSlash(true)
	uh := promhttp.InstrumentHandlerDuration(data.metrics.uploadResponseDur,
		promhttp.InstrumentHandlerRequestSize(data.metrics.uploadRequestSize, uploadHandler{data: data}))
	router.Methods("POST").Path("/upload").Handler(uh)
	router.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	router.Methods("GET").Path("/live").HandlerFunc(data.health.LiveEndpoint)
	router.Methods("GET").Path("/ready").HandlerFunc(data.health.ReadyEndpoint)
	return router
}

//SetBusyLimit sets max count of uploads processed at once
func (data *ServiceData) SetBusyLimit(limit int) {
	if limit > 0 {
		data.busy = make(chan struct{}, limit)
	}
}

func (data *ServiceData) acquire() bool {
	if data.busy == nil {
		return true
	}
	select {
	case data.busy <- struct{}{}:
		return true
	default:
		return false
	}
}

func (data *ServiceData) release() {
	if data.busy == nil {
		return
	}
	<-data.busy
}

func initMetrics(data *ServiceData) {
	if data.metrics.uploadResponseDur != nil {
		return
	}
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "upload_response_duration_seconds",
		Help: "Duration of upload responses",
	}, nil)
	size := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "upload_request_size_bytes",
		Help: "Size of upload requests",
	}, nil)
	cmdapp.LogIf(metrics.Register(dur))
	cmdapp.LogIf(metrics.Register(size))
	data.metrics.uploadResponseDur = dur
	data.metrics.uploadRequestSize = size
}

type uploadHandler struct {
	data *ServiceData
}

func (h uploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("Saving story from %s", r.Host)

	if h.data.Secret != "" && r.Header.Get(api.HdrSecret) != h.data.Secret {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		cmdapp.Log.Error("Wrong upload secret")
		return
	}
	if !h.data.acquire() {
		http.Error(w, "BUSY", http.StatusTooManyRequests)
		cmdapp.Log.Error("Upload limit reached")
		return
	}
	defer h.data.release()

	r.Body = http.MaxBytesReader(w, r.Body, h.data.MaxBodyBytes)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		var mbErr *http.MaxBytesError
		if errors.As(err, &mbErr) {
			http.Error(w, "TOO_LARGE", http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, "Can't parse MultipartForm", http.StatusBadRequest)
		}
		cmdapp.Log.Error(errors.Wrap(err, "Can't parse MultipartForm"))
		return
	}
	defer cleanFiles(r.MultipartForm)
	err = validateFormParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	userID := r.FormValue(api.PrmUserID)
	if userID == "" {
		http.Error(w, "No userId", http.StatusBadRequest)
		cmdapp.Log.Error("No userId")
		return
	}
	deviceID := r.Header.Get(api.HdrDeviceID)
	if deviceID == "" {
		deviceID = r.FormValue(api.PrmDeviceID)
	}
	if deviceID == "" {
		http.Error(w, "No deviceId", http.StatusBadRequest)
		cmdapp.Log.Error("No deviceId")
		return
	}
	email := r.FormValue(api.PrmEmail)
	if email != "" {
		err := checkmail.ValidateFormat(email)
		if err != nil {
			http.Error(w, "Wrong email", http.StatusBadRequest)
			cmdapp.Log.Errorf("Wrong email")
			return
		}
	}
	durationSec, err := takeDuration(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	if durationSec > h.data.MaxAudioSeconds {
		http.Error(w, "TOO_LARGE", http.StatusRequestEntityTooLarge)
		cmdapp.Log.Errorf("Too long recording: %d s", durationSec)
		return
	}
	if v := r.FormValue(api.PrmCreatedAt); v != "" {
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "Wrong "+api.PrmCreatedAt, http.StatusBadRequest)
			cmdapp.Log.Error(err)
			return
		}
	}

	file, handler, err := r.FormFile(api.PrmFile)
	if err != nil {
		http.Error(w, "No file", http.StatusBadRequest)
		cmdapp.Log.Error(err)
		return
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(handler.Filename))
	if !checkFileExtension(ext) {
		http.Error(w, "Wrong file extension: "+ext, http.StatusBadRequest)
		cmdapp.Log.Error("Wrong file extension: " + ext)
		return
	}

	id := r.FormValue(api.PrmClientID)
	if id == "" {
		id = uuid.New().String()
	}

	fields := map[string]interface{}{
		"status":       status.Name(status.Queued),
		"deviceId":     deviceID,
		"recordingUrl": userID + "/" + id + ext,
	}
	if v := r.FormValue(api.PrmTitle); v != "" {
		fields["title"] = v
	}
	if v := r.FormValue(api.PrmContextBox); v != "" {
		fields["contextbox"] = v
	}
	if durationSec > 0 {
		fields["durationSec"] = durationSec
	}
	if email != "" {
		fields["email"] = email
	}

	duplicate, err := h.data.RecordKeeper.Ingest(userID, id, fields)
	if err != nil {
		http.Error(w, "Can not save request to DB", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}
	result := StoryResult{id}
	if duplicate {
		// the audio landed here before, keep the first upload
		cmdapp.Log.Infof("Duplicate upload for %s", messages.StoryKey(userID, id))
		writeResult(w, &result, http.StatusConflict)
		return
	}

	err = h.data.FileSaver.Save(filepath.Join(userID, id+ext), file)
	if err != nil {
		http.Error(w, "Can not save file", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}

	err = h.data.MessageSender.Send(messages.NewStoryMessage(id, userID), messages.Process, "")
	if err != nil {
		http.Error(w, "Can not send process message", http.StatusInternalServerError)
		cmdapp.Log.Error(err)
		return
	}

	writeResult(w, &result, http.StatusCreated)
}

func writeResult(w http.ResponseWriter, result *StoryResult, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	encoder := json.NewEncoder(w)
	err := encoder.Encode(result)
	if err != nil {
		cmdapp.Log.Error(err)
	}
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		f.RemoveAll()
	}
}

func checkFileExtension(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a"
}

func takeDuration(r *http.Request) (int, error) {
	v := r.FormValue(api.PrmDurationSec)
	if v == "" {
		return 0, nil
	}
	d, err := strconv.Atoi(v)
	if err != nil || d < 0 {
		return 0, errors.Errorf("Wrong parameter '%s' value '%s'", api.PrmDurationSec, v)
	}
	return d, nil
}

func validateFormParams(r *http.Request) error {
	form := r.Form
	allowed := map[string]bool{api.PrmUserID: true, api.PrmClientID: true, api.PrmTitle: true,
		api.PrmDurationSec: true, api.PrmContextBox: true, api.PrmDeviceID: true,
		api.PrmCreatedAt: true, api.PrmEmail: true}
	for k := range form {
		_, f := allowed[k]
		if !f {
			return errors.Errorf("Unknown parameter '%s'", k)
		}
	}
	for _, p := range []string{api.PrmUserID, api.PrmClientID, api.PrmDeviceID} {
		if err := validateID(r, p); err != nil {
			return err
		}
	}
	return nil
}

func validateID(r *http.Request, paramName string) error {
	p := r.FormValue(paramName)
	lp := strings.ToLower(p)
	for _, k := range []string{"$", "(", ")", "eval", "shell", "{", "}", "/", "\\", ".."} {
		if strings.Contains(lp, k) {
			return errors.Errorf("Wrong parameter '%s' value '%s'", paramName, p)
		}
	}
	return nil
}
