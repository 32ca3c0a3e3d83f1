package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/jonboulle/clockwork"
)

// NextFireTime returns the next hour:minute wall-clock instant in loc strictly
// after now. Being exactly on the instant targets the following day, so a task
// that fires on time never re-fires for the same day.
func NextFireTime(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !local.Before(target) {
		target = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return target
}

// DailyTask runs a function once per day at a fixed wall-clock instant. It is a
// single timer re-armed after every run, whether the run succeeded, failed or panicked.
type DailyTask struct {
	name     string
	clock    clockwork.Clock
	location *time.Location
	hour     int
	minute   int
	run      func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	next   time.Time
}

func NewDailyTask(name string, clock clockwork.Clock, location *time.Location, hour, minute int, run func(ctx context.Context) error) *DailyTask {
	return &DailyTask{
		name:     name,
		clock:    clock,
		location: location,
		hour:     hour,
		minute:   minute,
		run:      run,
	}
}

// Start arms the task. It returns false when it was already armed.
func (d *DailyTask) Start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.loop(ctx, d.done)
	logging.Log.Infof("SCHEDULER: %s armed for %02d:%02d %s", d.name, d.hour, d.minute, d.location)
	return true
}

// Stop disarms the task and waits for an in-flight run to return.
func (d *DailyTask) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.next = time.Time{}
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logging.Log.Infof("SCHEDULER: %s disarmed", d.name)
}

func (d *DailyTask) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// NextRun is the armed fire time, false when the task is not armed.
func (d *DailyTask) NextRun() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next, d.cancel != nil && !d.next.IsZero()
}

func (d *DailyTask) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := d.clock.Now()
		next := NextFireTime(now, d.location, d.hour, d.minute)

		d.mu.Lock()
		d.next = next
		d.mu.Unlock()

		logging.Log.Infof("SCHEDULER: next %s at %s (in %s)", d.name, next.Format(time.RFC3339), next.Sub(now).Round(time.Second))
		timer := d.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		if err := d.fire(ctx); err != nil {
			logging.Log.Errorf("SCHEDULER: %s failed, re-arming for tomorrow: %v", d.name, err)
		}
	}
}

func (d *DailyTask) fire(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", d.name, r)
		}
	}()
	logging.Log.Infof("SCHEDULER: running %s", d.name)
	return d.run(ctx)
}
