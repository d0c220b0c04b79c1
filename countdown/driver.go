package countdown

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPeriod is how often a Driver recomputes its breakdown.
const DefaultPeriod = time.Second

// Driver re-evaluates Decompose on a ticker and publishes every new
// Breakdown to its subscribers. Each countdown display owns its own Driver.
type Driver struct {
	mu     sync.Mutex
	target *time.Time
	latest Breakdown
	subs   map[uuid.UUID]chan Breakdown

	period time.Duration
	now    func() time.Time

	running  bool
	stopped  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

type Option func(*Driver)

// WithPeriod overrides the tick period.
func WithPeriod(period time.Duration) Option {
	return func(d *Driver) {
		if period > 0 {
			d.period = period
		}
	}
}

// WithClock overrides the wall clock read on every tick.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDriver(target *time.Time, opts ...Option) *Driver {
	d := &Driver{
		subs:     make(map[uuid.UUID]chan Breakdown),
		period:   DefaultPeriod,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.target = copyTime(target)
	d.latest = Decompose(d.target, d.now())
	return d
}

// Start launches the ticker. Calling it again, or after Stop, does nothing.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.stopped {
		return
	}
	d.running = true

	d.wg.Add(1)
	go d.run()
}

// Stop cancels the ticker, waits for it to exit and closes every subscriber
// channel. It is safe to call more than once.
func (d *Driver) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopChan)
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
	d.running = false
	d.mu.Unlock()
}

func (d *Driver) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.tick()
		case <-d.stopChan:
			return
		}
	}
}

func (d *Driver) tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.latest = Decompose(d.target, d.now())
	for _, ch := range d.subs {
		publish(ch, d.latest)
	}
}

// publish replaces whatever the subscriber has not read yet with b.
func publish(ch chan Breakdown, b Breakdown) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

// SetTarget switches the countdown to a new target, nil clearing it, and
// publishes the recomputed breakdown right away.
func (d *Driver) SetTarget(target *time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.target = copyTime(target)
	d.latest = Decompose(d.target, d.now())
	for _, ch := range d.subs {
		publish(ch, d.latest)
	}
}

// Target returns the instant currently counted down to.
func (d *Driver) Target() *time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyTime(d.target)
}

// Latest returns the most recently computed breakdown.
func (d *Driver) Latest() Breakdown {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

// Subscribe registers a listener. The channel holds at most the newest
// breakdown and is closed by Unsubscribe or Stop.
func (d *Driver) Subscribe() (uuid.UUID, <-chan Breakdown) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.New()
	ch := make(chan Breakdown, 1)
	if d.stopped {
		close(ch)
		return id, ch
	}
	ch <- d.latest
	d.subs[id] = ch
	return id, ch
}

func (d *Driver) Unsubscribe(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subs[id]; ok {
		close(ch)
		delete(d.subs, id)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
