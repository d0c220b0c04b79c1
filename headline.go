package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"f1countdown/broadcaster"
	"f1countdown/countdown"
	"f1countdown/season"
)

// headline counts down to the next session of the season and fans every
// tick out to all /ws clients. When that session starts it moves on to the
// following one.
type headline struct {
	source      calendarSource
	driver      *countdown.Driver
	broadcaster *broadcaster.Broadcaster
	loc         *time.Location
	now         func() time.Time

	mu      sync.Mutex
	current *season.Upcoming
	last    []byte
}

func newHeadline(source calendarSource, b *broadcaster.Broadcaster, loc *time.Location, opts ...countdown.Option) *headline {
	h := &headline{
		source:      source,
		broadcaster: b,
		loc:         loc,
		now:         time.Now,
	}
	h.driver = countdown.NewDriver(nil, opts...)
	return h
}

// run drives the headline countdown until ctx is done.
func (h *headline) run(ctx context.Context) {
	id, ticks := h.driver.Subscribe()
	defer h.driver.Unsubscribe(id)
	h.driver.Start()
	defer h.driver.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-ticks:
			if !ok {
				return
			}
			if h.retarget() {
				// the driver publishes the new target right away
				continue
			}
			h.publish(b)
		}
	}
}

// retarget points the driver at the next session whenever it differs from
// the current target by key or start, so reloads that reschedule a session
// are picked up. It reports whether the target changed.
func (h *headline) retarget() bool {
	h.mu.Lock()
	current := h.current
	h.mu.Unlock()

	next, found := season.NextSession(h.source.Weekends(), h.now())
	switch {
	case !found && current == nil:
		return false
	case !found:
		h.setCurrent(nil)
		h.driver.SetTarget(nil)
		return true
	case current != nil && current.Session.Key == next.Session.Key &&
		current.Session.Start.Equal(next.Session.Start):
		return false
	}

	log.Printf("Headline countdown now targets %s %s at %s", next.Weekend.RaceName, next.Session.Label, next.Session.Start)
	h.setCurrent(&next)
	start := next.Session.Start
	h.driver.SetTarget(&start)
	return true
}

func (h *headline) setCurrent(up *season.Upcoming) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = up
}

func (h *headline) publish(b countdown.Breakdown) {
	h.mu.Lock()
	frame := newCountdownFrame(h.current, b, headlineLabel, h.loc)
	h.mu.Unlock()

	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("Error encoding countdown frame: %v", err)
		return
	}

	h.mu.Lock()
	h.last = payload
	h.mu.Unlock()
	h.broadcaster.Broadcast(payload)
}

// lastFrame is sent to clients as soon as they connect.
func (h *headline) lastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *headline) serve(w http.ResponseWriter, r *http.Request) {
	h.broadcaster.HandleConnections(w, r, h.lastFrame())
}
