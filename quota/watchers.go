package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/scheduler"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/jonboulle/clockwork"
)

const NewDayNotice = "A new day has started, your votes and refreshes are restored."

type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type watch struct {
	poller   *scheduler.Poller
	refs     int
	lastSeen time.Time
}

// Watchers runs one watermark poll per logged-in voter name. Several sessions
// under the same name share a poller; it stops when the last one logs out, or
// once no request carried the name for the idle timeout. Resets found by the
// poll leave a notice for the voter's next request.
type Watchers struct {
	manager  *Manager
	clock    clockwork.Clock
	interval time.Duration
	idle     time.Duration

	mu      sync.Mutex
	watches map[string]*watch
	notices map[string][]Notice
}

// NewWatchers polls every interval. An idle timeout of zero keeps pollers until logout.
func NewWatchers(manager *Manager, clock clockwork.Clock, interval, idle time.Duration) *Watchers {
	return &Watchers{
		manager:  manager,
		clock:    clock,
		interval: interval,
		idle:     idle,
		watches:  make(map[string]*watch),
		notices:  make(map[string][]Notice),
	}
}

// Watch registers one more session under name.
func (w *Watchers) Watch(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.watches[name]; ok {
		existing.refs++
		existing.lastSeen = w.clock.Now()
		return
	}
	w.startLocked(name)
}

// Touch marks name as active. A session restored from its cookie (after a
// restart or an idle expiry) gets its poller back here.
func (w *Watchers) Touch(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.watches[name]; ok {
		existing.lastSeen = w.clock.Now()
		return
	}
	logging.Log.Debugf("USER: resuming watermark poll for '%s'", name)
	w.startLocked(name)
}

func (w *Watchers) startLocked(name string) {
	var poller *scheduler.Poller
	poller = scheduler.NewPoller(w.clock, w.interval, func(ctx context.Context) error {
		if w.expire(name, poller) {
			return nil
		}
		_, reset, err := w.manager.CheckWatermark(ctx, name)
		if errors.Is(err, storage.ErrItemNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if reset {
			w.Notify(name, NewDayNotice)
		}
		return nil
	})
	w.watches[name] = &watch{poller: poller, refs: 1, lastSeen: w.clock.Now()}
	poller.Start()
}

// expire drops an idle watch. It runs on the poller's own goroutine, so the
// poller is stopped from another one.
func (w *Watchers) expire(name string, poller *scheduler.Poller) bool {
	if w.idle <= 0 {
		return false
	}
	w.mu.Lock()
	existing, ok := w.watches[name]
	if !ok || existing.poller != poller || w.clock.Since(existing.lastSeen) < w.idle {
		w.mu.Unlock()
		return false
	}
	delete(w.watches, name)
	w.mu.Unlock()

	logging.Log.Infof("USER: no request from '%s' for %s, stopping watermark poll", name, w.idle)
	go poller.Stop()
	return true
}

func (w *Watchers) Unwatch(name string) {
	w.mu.Lock()
	existing, ok := w.watches[name]
	if !ok {
		w.mu.Unlock()
		return
	}
	existing.refs--
	if existing.refs > 0 {
		w.mu.Unlock()
		return
	}
	delete(w.watches, name)
	delete(w.notices, name)
	w.mu.Unlock()

	existing.poller.Stop()
}

func (w *Watchers) Watching(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watches[name]
	return ok
}

func (w *Watchers) Notify(name, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notices[name] = append(w.notices[name], Notice{Message: message, At: w.clock.Now().UTC()})
}

// Drain returns and forgets the pending notices of a voter.
func (w *Watchers) Drain(name string) []Notice {
	w.mu.Lock()
	defer w.mu.Unlock()
	notices := w.notices[name]
	delete(w.notices, name)
	return notices
}

func (w *Watchers) StopAll() {
	w.mu.Lock()
	watches := w.watches
	w.watches = make(map[string]*watch)
	w.mu.Unlock()

	for _, existing := range watches {
		existing.poller.Stop()
	}
}
