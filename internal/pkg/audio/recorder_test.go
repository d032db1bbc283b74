package audio

import (
	"bytes"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewRecorder(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	assert.Nil(t, err)
	assert.NotNil(t, r)

	_, err = NewRecorder("")
	assert.NotNil(t, err)
}

func TestRecords(t *testing.T) {
	r, fd := newTestRecorder(t)
	err := r.Start("story1")
	assert.Nil(t, err)
	assert.True(t, r.Active())

	// one second of silence
	fd.push(make([]byte, SampleRate*2))

	res, err := r.Stop()
	assert.Nil(t, err)
	assert.False(t, r.Active())
	assert.Equal(t, 1, res.DurationSec)
	assert.True(t, res.Size > 0)
	_, err = os.Stat(res.Path)
	assert.Nil(t, err)
}

func TestFails_SecondSession(t *testing.T) {
	r, _ := newTestRecorder(t)
	err := r.Start("story1")
	assert.Nil(t, err)
	err = r.Start("story2")
	assert.Equal(t, ErrSessionActive, err)
	_, err = r.Stop()
	assert.Nil(t, err)
}

func TestFails_StopWithoutSession(t *testing.T) {
	r, _ := newTestRecorder(t)
	_, err := r.Stop()
	assert.Equal(t, ErrNoSession, err)
}

func TestFails_NoName(t *testing.T) {
	r, _ := newTestRecorder(t)
	err := r.Start("")
	assert.NotNil(t, err)
	assert.False(t, r.Active())
}

func TestFails_DeviceCapture(t *testing.T) {
	r, fd := newTestRecorder(t)
	fd.captureErr = ErrPermissionDenied
	err := r.Start("story1")
	assert.Equal(t, ErrPermissionDenied, err)
	assert.False(t, r.Active())
}

func TestFails_DeviceStart(t *testing.T) {
	r, fd := newTestRecorder(t)
	fd.startErr = errors.New("olia")
	err := r.Start("story1")
	assert.NotNil(t, err)
	assert.False(t, r.Active())
}

func TestEncodesMP3(t *testing.T) {
	out := bytes.NewBuffer(nil)
	w := newMP3Writer(out)
	err := w.Write(make([]byte, SampleRate*2))
	assert.Nil(t, err)
	err = w.Flush()
	assert.Nil(t, err)
	assert.Equal(t, int64(SampleRate), w.Samples())
	assert.True(t, out.Len() > 0)
}

func TestMapAccessError(t *testing.T) {
	assert.Nil(t, mapAccessError(nil))
	assert.Equal(t, ErrPermissionDenied, mapAccessError(errors.New("Access denied trying to open device")))
	assert.Equal(t, ErrPermissionDenied, mapAccessError(errors.New("operation not permitted: permission")))
	err := errors.New("olia")
	assert.Equal(t, err, mapAccessError(err))
}

func newTestRecorder(t *testing.T) (*Recorder, *fakeDevice) {
	t.Helper()
	r, err := NewRecorder(t.TempDir())
	assert.Nil(t, err)
	fd := &fakeDevice{}
	r.Device = fd
	return r, fd
}

type fakeDevice struct {
	dataC      chan []byte
	captureErr error
	startErr   error
}

func (d *fakeDevice) Capture(dataC chan []byte) error {
	if d.captureErr != nil {
		return d.captureErr
	}
	d.dataC = dataC
	return nil
}

func (d *fakeDevice) Start() error { return d.startErr }
func (d *fakeDevice) Stop() error  { return nil }
func (d *fakeDevice) Dealloc()     {}

func (d *fakeDevice) push(data []byte) {
	d.dataC <- data
}
