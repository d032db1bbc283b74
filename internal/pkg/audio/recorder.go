package audio

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
)

//ErrSessionActive indicates an already running recording session
var ErrSessionActive = errors.New("Recording session already active")

//ErrNoSession indicates Stop was called with no session running
var ErrNoSession = errors.New("No active recording session")

// Capture is the result of a finished recording session
type Capture struct {
	Path        string
	DurationSec int
	Size        int64
}

// Recorder records microphone audio into mp3 files.
// One session may run at a time
type Recorder struct {
	// Dir is the folder recordings are written into
	Dir    string
	Device Device

	lock    sync.Mutex
	session *session
}

type session struct {
	path   string
	file   *os.File
	dataC  chan []byte
	writer *mp3Writer
	done   chan struct{}
	err    error
}

//NewRecorder creates a Recorder writing into dir
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		return nil, errors.New("No recording dir provided")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "Can't create recording dir "+dir)
	}
	return &Recorder{Dir: dir, Device: NewDevice()}, nil
}

// Start opens the capture device and begins encoding into <dir>/<name>.mp3
func (r *Recorder) Start(name string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.session != nil {
		return ErrSessionActive
	}
	if name == "" {
		return errors.New("No recording name provided")
	}
	path := filepath.Join(r.Dir, name+".mp3")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrap(err, "Can't create file "+path)
	}
	s := &session{path: path, file: f, dataC: make(chan []byte, 64),
		writer: newMP3Writer(f), done: make(chan struct{})}
	if err := r.Device.Capture(s.dataC); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	go s.run()
	if err := r.Device.Start(); err != nil {
		r.Device.Dealloc()
		close(s.dataC)
		<-s.done
		f.Close()
		os.Remove(path)
		return err
	}
	cmdapp.Log.Infof("Recording to %s", path)
	r.session = s
	return nil
}

// Stop ends the session and returns the finished capture
func (r *Recorder) Stop() (*Capture, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.session == nil {
		return nil, ErrNoSession
	}
	s := r.session
	r.session = nil
	if err := r.Device.Stop(); err != nil {
		cmdapp.Log.Error(err)
	}
	r.Device.Dealloc()
	close(s.dataC)
	<-s.done
	if err := s.file.Close(); err != nil {
		return nil, errors.Wrap(err, "Can't close file "+s.path)
	}
	if s.err != nil {
		return nil, s.err
	}
	st, err := os.Stat(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stat file "+s.path)
	}
	res := &Capture{Path: s.path, Size: st.Size(),
		DurationSec: int(s.writer.Samples() / SampleRate)}
	cmdapp.Log.Infof("Recorded %s. Duration = %d s, size = %d b", res.Path, res.DurationSec, res.Size)
	return res, nil
}

// Active returns true when a session is running
func (r *Recorder) Active() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.session != nil
}

func (s *session) run() {
	defer close(s.done)
	for data := range s.dataC {
		if s.err != nil {
			continue
		}
		if err := s.writer.Write(data); err != nil {
			s.err = err
		}
	}
	if s.err == nil {
		s.err = s.writer.Flush()
	}
}
