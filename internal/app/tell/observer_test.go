package tell

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/welltold/storygo/internal/app/vault/api"
	"github.com/welltold/storygo/internal/pkg/record"
)

type testSubscriber struct {
	lock   sync.Mutex
	outs   []chan *api.Snapshot
	failed bool
}

func (s *testSubscriber) Subscribe(key string, out chan<- *api.Snapshot) (io.Closer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.failed {
		return nil, errors.New("olia")
	}
	c := make(chan *api.Snapshot, 10)
	s.outs = append(s.outs, c)
	go func() {
		for snap := range c {
			out <- snap
		}
		close(out)
	}()
	return &testCloser{c: c}, nil
}

func (s *testSubscriber) push(snap *api.Snapshot) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.outs[len(s.outs)-1] <- snap
}

func (s *testSubscriber) drop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	close(s.outs[len(s.outs)-1])
}

func (s *testSubscriber) count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.outs)
}

type testCloser struct {
	c    chan *api.Snapshot
	once sync.Once
}

func (c *testCloser) Close() error {
	c.once.Do(func() { close(c.c) })
	return nil
}

func snapshot(st string) *api.Snapshot {
	return &api.Snapshot{Key: "u1/id1", Exists: true,
		Record: &record.Record{ID: "id1", Status: st}}
}

func newTestObserver(t *testing.T, sub *testSubscriber) (*Observer, chan State) {
	stateCh := make(chan State, 20)
	res := NewObserver("u1", "id1", sub)
	res.OnChange = func(st State) { stateCh <- st }
	return res, stateCh
}

func waitState(t *testing.T, stateCh chan State, expected State) {
	t.Helper()
	for {
		select {
		case st := <-stateCh:
			if st == expected {
				return
			}
		case <-time.After(time.Second):
			t.Errorf("Did not get state %s", expected)
			return
		}
	}
}

func TestObserver_AuthRequired(t *testing.T) {
	obs := NewObserver("", "id1", &testSubscriber{})
	assert.Nil(t, obs.Start())
	assert.Equal(t, StateAuthRequired, obs.State())
}

func TestObserver_MissingID(t *testing.T) {
	obs := NewObserver("u1", "", &testSubscriber{})
	assert.Nil(t, obs.Start())
	assert.Equal(t, StateMissingID, obs.State())
}

func TestObserver_LoadingUntilSnapshot(t *testing.T) {
	sub := &testSubscriber{}
	obs, _ := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	assert.Equal(t, StateLoading, obs.State())
}

func TestObserver_MissingRecordIsLoading(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	sub.push(&api.Snapshot{Key: "u1/id1", Exists: false})
	sub.push(snapshot("queued"))
	waitState(t, stateCh, StateQueued)
}

func TestObserver_FollowsStatus(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	for _, st := range []string{"queued", "transcribing", "analyzing", "ready"} {
		sub.push(snapshot(st))
	}
	waitState(t, stateCh, StateReady)
}

func TestObserver_ToleratesSkippedAndRepeated(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	sub.push(snapshot("queued"))
	sub.push(snapshot("queued"))
	sub.push(snapshot("ready"))
	waitState(t, stateCh, StateReady)
}

func TestObserver_IgnoresUnknownStatus(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	sub.push(snapshot("olia"))
	sub.push(snapshot("queued"))
	waitState(t, stateCh, StateQueued)
	assert.Equal(t, StateQueued, obs.State())
}

func TestObserver_NavigatesOnceOnReady(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	var lock sync.Mutex
	navigated := 0
	obs.Navigate = func(userID string, id string) {
		lock.Lock()
		defer lock.Unlock()
		navigated++
	}
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	sub.push(snapshot("ready"))
	sub.push(snapshot("ready"))
	waitState(t, stateCh, StateReady)
	sub.push(snapshot("ready"))
	time.Sleep(20 * time.Millisecond)
	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, 1, navigated)
}

func TestObserver_Failed(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	defer obs.Stop()
	fs := snapshot("failed")
	fs.Record.Error = "no sound"
	sub.push(fs)
	waitState(t, stateCh, StateFailed)
	assert.Equal(t, "no sound", obs.ErrMsg())
}

func TestObserver_ListenerError(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	sub.push(snapshot("transcribing"))
	waitState(t, stateCh, StateTranscribing)
	sub.drop()
	waitState(t, stateCh, StateListenerError)
}

func TestObserver_NoListenerErrorAfterTerminal(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	sub.push(snapshot("ready"))
	waitState(t, stateCh, StateReady)
	sub.drop()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateReady, obs.State())
}

func TestObserver_SubscribeFails(t *testing.T) {
	sub := &testSubscriber{failed: true}
	obs := NewObserver("u1", "id1", sub)
	assert.NotNil(t, obs.Start())
	assert.Equal(t, StateListenerError, obs.State())
}

func TestObserver_Retry(t *testing.T) {
	sub := &testSubscriber{}
	obs, stateCh := newTestObserver(t, sub)
	assert.Nil(t, obs.Start())
	sub.push(snapshot("transcribing"))
	waitState(t, stateCh, StateTranscribing)
	sub.drop()
	waitState(t, stateCh, StateListenerError)

	assert.Nil(t, obs.Retry())
	defer obs.Stop()
	assert.Equal(t, 2, sub.count())
	assert.Equal(t, StateLoading, obs.State())
	assert.Equal(t, "", obs.ErrMsg())
	sub.push(snapshot("ready"))
	waitState(t, stateCh, StateReady)
}

func TestObserver_KeepWaitCooldown(t *testing.T) {
	sub := &testSubscriber{}
	obs, _ := newTestObserver(t, sub)
	now := time.Now()
	obs.nowFunc = func() time.Time { return now }
	assert.Nil(t, obs.Start())
	defer obs.Stop()

	assert.False(t, obs.CanKeepWait())
	now = now.Add(59 * time.Second)
	assert.False(t, obs.CanKeepWait())
	now = now.Add(2 * time.Second)
	assert.True(t, obs.CanKeepWait())
}

func TestObserver_KeepWaitResetOnRetry(t *testing.T) {
	sub := &testSubscriber{}
	obs, _ := newTestObserver(t, sub)
	now := time.Now()
	obs.nowFunc = func() time.Time { return now }
	assert.Nil(t, obs.Start())
	now = now.Add(90 * time.Second)
	assert.True(t, obs.CanKeepWait())

	assert.Nil(t, obs.Retry())
	defer obs.Stop()
	assert.False(t, obs.CanKeepWait())
	now = now.Add(61 * time.Second)
	assert.True(t, obs.CanKeepWait())
}

func TestObserver_IdleBeforeStart(t *testing.T) {
	obs := NewObserver("u1", "id1", &testSubscriber{})
	assert.Equal(t, StateIdle, obs.State())
}
