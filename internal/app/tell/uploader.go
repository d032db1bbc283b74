package tell

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	uapi "github.com/welltold/storygo/internal/app/upload/api"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/utils"
)

//ErrTooLarge indicates the recording exceeds server limits
var ErrTooLarge = errors.New("Recording is too large")

//ErrBusy indicates the server is overloaded, retry later
var ErrBusy = errors.New("Server is busy")

//ErrUnauthorized indicates a wrong or missing upload secret
var ErrUnauthorized = errors.New("Unauthorized")

// StoryUpload is the data sent with one recording
type StoryUpload struct {
	UserID      string
	ClientID    string
	Title       string
	ContextBox  string
	DeviceID    string
	Email       string
	DurationSec int
	Path        string
	CreatedAt   time.Time
}

// UploadResult is returned for an accepted upload.
// Duplicate is true when the server saw the story before
type UploadResult struct {
	StoryID   string
	Duplicate bool
}

// Uploader sends the recording to the upload service
type Uploader interface {
	Upload(up *StoryUpload) (*UploadResult, error)
}

// HTTPUploader posts stories to the upload service
type HTTPUploader struct {
	url        string
	secret     string
	httpclient *http.Client
}

//NewHTTPUploader creates uploader from upload.url and upload.secret config
func NewHTTPUploader() (*HTTPUploader, error) {
	res := HTTPUploader{}
	var err error
	res.url, err = utils.GetURLFromConfig("upload.url")
	if err != nil {
		return nil, err
	}
	res.secret = cmdapp.Config.GetString("upload.secret")
	res.httpclient = &http.Client{Timeout: 180 * time.Second}
	return &res, nil
}

// Upload sends the story. A duplicate answer is a success
func (u *HTTPUploader) Upload(up *StoryUpload) (*UploadResult, error) {
	if up.UserID == "" {
		return nil, errors.New("No user ID")
	}
	body, contentType, err := makeBody(up)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, utils.URLJoin(u.url, "upload"), body)
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare request")
	}
	req.Header.Set("Content-Type", contentType)
	if up.DeviceID != "" {
		req.Header.Set(uapi.HdrDeviceID, up.DeviceID)
	}
	if u.secret != "" {
		req.Header.Set(uapi.HdrSecret, u.secret)
	}
	resp, err := u.httpclient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Can't upload story")
	}
	defer resp.Body.Close()
	return takeResult(resp, up)
}

func takeResult(resp *http.Response, up *StoryUpload) (*UploadResult, error) {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return decodeResult(resp, up, false)
	case http.StatusConflict:
		// the story is already there, treat as done
		return decodeResult(resp, up, true)
	case http.StatusRequestEntityTooLarge:
		return nil, ErrTooLarge
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, ErrBusy
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	}
	return nil, utils.ValidateResponse(resp)
}

func decodeResult(resp *http.Response, up *StoryUpload, duplicate bool) (*UploadResult, error) {
	var res struct {
		StoryID string `json:"storyId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || res.StoryID == "" {
		// keep going with the client generated ID
		cmdapp.Log.Warn("No storyId in upload response")
		res.StoryID = up.ClientID
	}
	if res.StoryID == "" {
		return nil, errors.New("No story ID in response")
	}
	return &UploadResult{StoryID: res.StoryID, Duplicate: duplicate}, nil
}

func makeBody(up *StoryUpload) (io.Reader, string, error) {
	file, err := os.Open(up.Path)
	if err != nil {
		return nil, "", errors.Wrap(err, "Can't open "+up.Path)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(uapi.PrmFile, filepath.Base(up.Path))
	if err != nil {
		return nil, "", errors.Wrap(err, "Can't create form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", errors.Wrap(err, "Can't copy file")
	}
	fields := map[string]string{
		uapi.PrmUserID:   up.UserID,
		uapi.PrmClientID: up.ClientID,
		uapi.PrmTitle:    up.Title,
	}
	if up.ContextBox != "" {
		fields[uapi.PrmContextBox] = up.ContextBox
	}
	if up.Email != "" {
		fields[uapi.PrmEmail] = up.Email
	}
	if up.DurationSec > 0 {
		fields[uapi.PrmDurationSec] = strconv.Itoa(up.DurationSec)
	}
	if !up.CreatedAt.IsZero() {
		fields[uapi.PrmCreatedAt] = up.CreatedAt.UTC().Format(time.RFC3339)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", errors.Wrap(err, "Can't write form field "+k)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", errors.Wrap(err, "Can't close form writer")
	}
	return body, writer.FormDataContentType(), nil
}
