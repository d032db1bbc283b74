package tell

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/audio"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/device"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/status"
)

// ServiceData keeps the client dependencies
type ServiceData struct {
	Recorder *audio.Recorder
	Uploader Uploader
	Store    RecordStore
	Devices  *device.Provider
	UserID   string
	Email    string
}

func checkInputs(data *ServiceData) error {
	if data.Uploader == nil {
		return errors.New("No uploader")
	}
	if data.Store == nil {
		return errors.New("No record store")
	}
	if data.Devices == nil {
		return errors.New("No device provider")
	}
	if data.UserID == "" {
		return errors.New("No user ID")
	}
	return nil
}

// Submit validates the capture and sends it as a new story.
// The same capture submitted twice lands on the same story
func (data *ServiceData) Submit(c *audio.Capture, title string) (*UploadResult, error) {
	if err := checkInputs(data); err != nil {
		return nil, err
	}
	if err := ValidateCapture(c); err != nil {
		return nil, err
	}
	dc, err := data.Devices.Get()
	if err != nil {
		return nil, err
	}
	contextText, err := data.Devices.TakePendingContext()
	if err != nil {
		return nil, err
	}
	up := &StoryUpload{UserID: data.UserID, ClientID: uuid.New().String(),
		Title: title, ContextBox: contextText, DeviceID: dc.ID,
		Email: data.Email, DurationSec: c.DurationSec, Path: c.Path,
		CreatedAt: time.Now()}

	fields := map[string]interface{}{"title": up.Title,
		"status": status.Name(status.Queued), "durationSec": up.DurationSec}
	if up.ContextBox != "" {
		fields["contextbox"] = up.ContextBox
	}
	err = data.Store.Merge(messages.StoryKey(up.UserID, up.ClientID), fields)
	if err != nil {
		// upload still creates the record, the shell is a head start for the observer
		cmdapp.Log.Warn(errors.Wrap(err, "Can't create shell record"))
	}

	res, err := data.Uploader.Upload(up)
	if err != nil {
		if up.ContextBox != "" {
			cmdapp.LogIf(data.Devices.SetPendingContext(up.ContextBox))
		}
		return nil, err
	}
	if res.Duplicate {
		cmdapp.Log.Infof("Story %s was already uploaded", res.StoryID)
	}
	return res, nil
}

// Watch subscribes to the story and returns a started observer
func (data *ServiceData) Watch(id string) (*Observer, error) {
	if data.Store == nil {
		return nil, errors.New("No record store")
	}
	res := NewObserver(data.UserID, id, data.Store)
	if err := res.Start(); err != nil {
		return nil, err
	}
	return res, nil
}
