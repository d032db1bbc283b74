package tell

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/welltold/storygo/internal/app/vault/api"
	"github.com/welltold/storygo/internal/pkg/audio"
	"github.com/welltold/storygo/internal/pkg/device"
	"github.com/welltold/storygo/internal/pkg/record"
)

type testUploaderMock struct {
	up  *StoryUpload
	res *UploadResult
	err error
}

func (u *testUploaderMock) Upload(up *StoryUpload) (*UploadResult, error) {
	u.up = up
	return u.res, u.err
}

type testStoreMock struct {
	key    string
	fields map[string]interface{}
	err    error
}

func (s *testStoreMock) Get(key string) (*api.Snapshot, error) { return nil, nil }

func (s *testStoreMock) Merge(key string, fields map[string]interface{}) error {
	s.key = key
	s.fields = fields
	return s.err
}

func (s *testStoreMock) Delete(key string) error { return nil }

func (s *testStoreMock) List(userID string) ([]*record.Record, error) { return nil, nil }

func (s *testStoreMock) Subscribe(key string, out chan<- *api.Snapshot) (io.Closer, error) {
	return nil, errors.New("olia")
}

func newTestServiceData(t *testing.T) (*ServiceData, *testUploaderMock, *testStoreMock) {
	t.Helper()
	uploader := &testUploaderMock{res: &UploadResult{StoryID: "id1"}}
	store := &testStoreMock{}
	data := &ServiceData{Uploader: uploader, Store: store, UserID: "u1", Email: "a@a.a",
		Devices: &device.Provider{Path: filepath.Join(t.TempDir(), "device.json")}}
	return data, uploader, store
}

func newTestCapture() *audio.Capture {
	return &audio.Capture{Path: "olia.mp3", DurationSec: 90, Size: 100}
}

func TestSubmit(t *testing.T) {
	data, uploader, store := newTestServiceData(t)
	res, err := data.Submit(newTestCapture(), "The Title")
	assert.Nil(t, err)
	assert.Equal(t, "id1", res.StoryID)
	assert.Equal(t, "u1", uploader.up.UserID)
	assert.Equal(t, "The Title", uploader.up.Title)
	assert.Equal(t, 90, uploader.up.DurationSec)
	assert.Equal(t, "a@a.a", uploader.up.Email)
	assert.NotEmpty(t, uploader.up.ClientID)
	assert.NotEmpty(t, uploader.up.DeviceID)
	assert.Equal(t, "u1/"+uploader.up.ClientID, store.key)
	assert.Equal(t, "queued", store.fields["status"])
	assert.Equal(t, "The Title", store.fields["title"])
}

func TestSubmit_AttachesPendingContext(t *testing.T) {
	data, uploader, _ := newTestServiceData(t)
	assert.Nil(t, data.Devices.SetPendingContext("birthday party"))
	_, err := data.Submit(newTestCapture(), "The Title")
	assert.Nil(t, err)
	assert.Equal(t, "birthday party", uploader.up.ContextBox)
	text, err := data.Devices.TakePendingContext()
	assert.Nil(t, err)
	assert.Equal(t, "", text)
}

func TestSubmit_KeepsContextOnFailure(t *testing.T) {
	data, uploader, _ := newTestServiceData(t)
	uploader.err = ErrBusy
	assert.Nil(t, data.Devices.SetPendingContext("birthday party"))
	_, err := data.Submit(newTestCapture(), "The Title")
	assert.Equal(t, ErrBusy, err)
	text, err := data.Devices.TakePendingContext()
	assert.Nil(t, err)
	assert.Equal(t, "birthday party", text)
}

func TestSubmit_InvalidCapture(t *testing.T) {
	data, uploader, store := newTestServiceData(t)
	_, err := data.Submit(&audio.Capture{Path: "olia.mp3", DurationSec: 600, Size: 100}, "t")
	assert.Equal(t, ErrTooLarge, err)
	assert.Nil(t, uploader.up)
	assert.Equal(t, "", store.key)
}

func TestSubmit_NoUser(t *testing.T) {
	data, _, _ := newTestServiceData(t)
	data.UserID = ""
	_, err := data.Submit(newTestCapture(), "t")
	assert.NotNil(t, err)
}

func TestSubmit_ShellFailureDoesNotBlock(t *testing.T) {
	data, _, store := newTestServiceData(t)
	store.err = errors.New("olia")
	res, err := data.Submit(newTestCapture(), "t")
	assert.Nil(t, err)
	assert.Equal(t, "id1", res.StoryID)
}

type testFlowStore struct {
	testStoreMock
	testSubscriber
}

func (s *testFlowStore) Subscribe(key string, out chan<- *api.Snapshot) (io.Closer, error) {
	return s.testSubscriber.Subscribe(key, out)
}

func TestSubmitThenObserve(t *testing.T) {
	store := &testFlowStore{}
	uploader := &testUploaderMock{res: &UploadResult{StoryID: "id1"}}
	data := &ServiceData{Uploader: uploader, Store: store, UserID: "u1",
		Devices: &device.Provider{Path: filepath.Join(t.TempDir(), "device.json")}}
	assert.Nil(t, data.Devices.SetPendingContext("birthday story"))

	res, err := data.Submit(&audio.Capture{Path: "olia.mp3", DurationSec: 90, Size: 100}, "Birthday")
	assert.Nil(t, err)
	assert.Equal(t, "birthday story", uploader.up.ContextBox)
	assert.Equal(t, 90, store.fields["durationSec"])
	assert.Equal(t, "queued", store.fields["status"])

	var lock sync.Mutex
	navigated := 0
	obs, err := data.Watch(res.StoryID)
	assert.Nil(t, err)
	defer obs.Stop()
	obs.Navigate = func(userID string, id string) {
		lock.Lock()
		defer lock.Unlock()
		navigated++
	}
	for _, st := range []string{"queued", "transcribing", "analyzing", "ready", "ready"} {
		snap := snapshot(st)
		snap.Record.Feedback = record.Feedback{Structure: "s", Creative: "c"}
		store.push(snap)
	}
	waitFor(t, func() bool { return obs.State() == StateReady })
	time.Sleep(20 * time.Millisecond)
	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, 1, navigated)
}

func waitFor(t *testing.T, f func() bool) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if f() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Condition not reached")
}

func TestWatch_FailsWithoutStore(t *testing.T) {
	data, _, _ := newTestServiceData(t)
	data.Store = nil
	_, err := data.Watch("id1")
	assert.NotNil(t, err)
}
