package tell

import (
	"io"
	"sync"
	"time"

	"github.com/welltold/storygo/internal/app/vault/api"
	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/messages"
	"github.com/welltold/storygo/internal/pkg/status"
)

// State is the processing screen state of one observed story
type State int

const (
	//StateIdle - observer created but not started
	StateIdle State = iota
	//StateAuthRequired - no user to observe for
	StateAuthRequired
	//StateMissingID - no story id to observe
	StateMissingID
	//StateLoading - waiting for the first snapshot or the record does not exist yet
	StateLoading
	//StateQueued mirrors the queued record status
	StateQueued
	//StateTranscribing mirrors the transcribing record status
	StateTranscribing
	//StateAnalyzing mirrors the analyzing record status
	StateAnalyzing
	//StateReady mirrors the ready record status
	StateReady
	//StateFailed mirrors the failed record status
	StateFailed
	//StateListenerError - the subscription broke, the story itself may be fine
	StateListenerError
)

var stateName = map[State]string{StateIdle: "idle", StateAuthRequired: "authRequired",
	StateMissingID: "missingID", StateLoading: "loading", StateQueued: "queued",
	StateTranscribing: "transcribing", StateAnalyzing: "analyzing",
	StateReady: "ready", StateFailed: "failed", StateListenerError: "listenerError"}

func (st State) String() string {
	return stateName[st]
}

const keepWaitCooldown = 60 * time.Second

// Subscriber opens a snapshot stream for a story key
type Subscriber interface {
	Subscribe(key string, out chan<- *api.Snapshot) (io.Closer, error)
}

// Observer tracks the processing status of one submitted story.
// The state follows the record status verbatim, it never infers transitions
type Observer struct {
	UserID string
	ID     string
	// OnChange is called after every state change, may be nil
	OnChange func(st State)
	// Navigate is called once when the story first becomes ready, may be nil
	Navigate func(userID string, id string)

	subscriber Subscriber
	nowFunc    func() time.Time

	lock      sync.Mutex
	state     State
	errMsg    string
	navigated bool
	waitStart time.Time
	closer    io.Closer
	stopCh    chan struct{}
}

// NewObserver creates an observer for the story. Call Start to subscribe
func NewObserver(userID string, id string, subscriber Subscriber) *Observer {
	return &Observer{UserID: userID, ID: id, subscriber: subscriber,
		state: StateIdle, nowFunc: time.Now}
}

// Start opens the subscription and begins tracking
func (o *Observer) Start() error {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.UserID == "" {
		o.setStateNoSync(StateAuthRequired)
		return nil
	}
	if o.ID == "" {
		o.setStateNoSync(StateMissingID)
		return nil
	}
	return o.subscribeNoSync()
}

// Retry drops the old subscription and opens a fresh one.
// Clears the error banner and restarts the keep wait cooldown
func (o *Observer) Retry() error {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.UserID == "" || o.ID == "" {
		return nil
	}
	o.closeNoSync()
	o.errMsg = ""
	return o.subscribeNoSync()
}

// Stop closes the subscription. The observer keeps its last state
func (o *Observer) Stop() {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.closeNoSync()
}

// State returns the current state
func (o *Observer) State() State {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.state
}

// ErrMsg returns the server reported error text, empty unless failed
func (o *Observer) ErrMsg() string {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.errMsg
}

// CanKeepWait indicates the story has been in flight long enough that
// offering to wait in the background makes sense. Purely informational
func (o *Observer) CanKeepWait() bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.waitStart.IsZero() {
		return false
	}
	return o.nowFunc().Sub(o.waitStart) >= keepWaitCooldown
}

func (o *Observer) subscribeNoSync() error {
	out := make(chan *api.Snapshot, 2)
	closer, err := o.subscriber.Subscribe(messages.StoryKey(o.UserID, o.ID), out)
	if err != nil {
		o.setStateNoSync(StateListenerError)
		return err
	}
	o.closer = closer
	o.stopCh = make(chan struct{})
	o.waitStart = o.nowFunc()
	o.setStateNoSync(StateLoading)
	go o.listen(out, o.stopCh)
	return nil
}

func (o *Observer) closeNoSync() {
	if o.closer != nil {
		cmdapp.LogIf(o.closer.Close())
		o.closer = nil
	}
	if o.stopCh != nil {
		close(o.stopCh)
		o.stopCh = nil
	}
}

func (o *Observer) listen(out <-chan *api.Snapshot, stopCh chan struct{}) {
	for {
		select {
		case snap, ok := <-out:
			if !ok {
				o.onClosed(stopCh)
				return
			}
			o.apply(snap, stopCh)
		case <-stopCh:
			return
		}
	}
}

func (o *Observer) onClosed(stopCh chan struct{}) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.stopCh != stopCh {
		return
	}
	if status.Terminal(recState(o.state)) {
		return
	}
	o.setStateNoSync(StateListenerError)
}

func (o *Observer) apply(snap *api.Snapshot, stopCh chan struct{}) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.stopCh != stopCh {
		return
	}
	if snap == nil || !snap.Exists || snap.Record == nil {
		o.setStateNoSync(StateLoading)
		return
	}
	st := status.From(snap.Record.Status)
	if st == status.Unknown {
		cmdapp.Log.Warnf("Unknown status '%s' for %s", snap.Record.Status,
			messages.StoryKey(o.UserID, o.ID))
		return
	}
	o.errMsg = snap.Record.Error
	o.setStateNoSync(obsState(st))
	if st == status.Ready && !o.navigated {
		o.navigated = true
		if o.Navigate != nil {
			go o.Navigate(o.UserID, o.ID)
		}
	}
}

func (o *Observer) setStateNoSync(st State) {
	if o.state == st {
		return
	}
	o.state = st
	cmdapp.Log.Infof("Story %s state: %s", messages.StoryKey(o.UserID, o.ID), st)
	if o.OnChange != nil {
		go o.OnChange(st)
	}
}

func obsState(st status.Status) State {
	switch st {
	case status.Queued:
		return StateQueued
	case status.Transcribing:
		return StateTranscribing
	case status.Analyzing:
		return StateAnalyzing
	case status.Ready:
		return StateReady
	case status.Failed:
		return StateFailed
	}
	return StateLoading
}

func recState(st State) status.Status {
	switch st {
	case StateQueued:
		return status.Queued
	case StateTranscribing:
		return status.Transcribing
	case StateAnalyzing:
		return status.Analyzing
	case StateReady:
		return status.Ready
	case StateFailed:
		return status.Failed
	}
	return status.Unknown
}
