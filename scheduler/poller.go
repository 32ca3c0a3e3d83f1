package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/jonboulle/clockwork"
)

// Poller calls check every interval. The next wait only starts once the previous
// check has returned, so checks never overlap.
type Poller struct {
	clock    clockwork.Clock
	interval time.Duration
	check    func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(clock clockwork.Clock, interval time.Duration, check func(ctx context.Context) error) *Poller {
	return &Poller{clock: clock, interval: interval, check: check}
}

func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(p.interval):
		}
		if err := p.check(ctx); err != nil {
			logging.Log.Warnf("SCHEDULER: poll check failed: %v", err)
		}
	}
}
