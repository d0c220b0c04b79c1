package main

import (
	"fmt"
	"time"

	"f1countdown/countdown"
	"f1countdown/model"
	"f1countdown/season"
)

const (
	sessionLayout = "Mon 02 Jan 15:04 MST"
	rangeLayout   = "02 Jan"
)

type sessionView struct {
	Key   string            `json:"key"`
	Type  model.SessionType `json:"type"`
	Label string            `json:"label"`
	Start time.Time         `json:"start"`
	Local string            `json:"local"`
}

type weekendView struct {
	ID          string        `json:"id"`
	Season      int           `json:"season"`
	Round       int           `json:"round"`
	RaceName    string        `json:"raceName"`
	Locality    string        `json:"locality"`
	Country     string        `json:"country"`
	CircuitName string        `json:"circuitName"`
	DateRange   string        `json:"dateRange"`
	Sessions    []sessionView `json:"sessions"`
}

type seasonResponse struct {
	Timezone  string        `json:"timezone"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Weekends  []weekendView `json:"weekends"`
}

// countdownFrame is what countdown displays receive, on request or every tick.
type countdownFrame struct {
	Status    string              `json:"status"`
	Weekend   *weekendView        `json:"weekend,omitempty"`
	Session   *sessionView        `json:"session,omitempty"`
	Breakdown countdown.Breakdown `json:"breakdown"`
}

func newSessionView(s model.Session, loc *time.Location) sessionView {
	return sessionView{
		Key:   s.Key,
		Type:  s.Type,
		Label: s.Label,
		Start: s.Start,
		Local: s.Start.In(loc).Format(sessionLayout),
	}
}

func newWeekendView(w model.RaceWeekend, loc *time.Location) weekendView {
	sessions := make([]sessionView, 0, len(w.Sessions))
	for _, s := range w.Sessions {
		sessions = append(sessions, newSessionView(s, loc))
	}
	return weekendView{
		ID:          w.ID,
		Season:      w.Season,
		Round:       w.Round,
		RaceName:    w.RaceName,
		Locality:    w.Locality,
		Country:     w.Country,
		CircuitName: w.CircuitName,
		DateRange:   dateRange(w, loc),
		Sessions:    sessions,
	}
}

// dateRange spans the first to the last session of the weekend.
func dateRange(w model.RaceWeekend, loc *time.Location) string {
	first, ok := w.FirstSession()
	if !ok {
		return ""
	}
	last, _ := w.LastSession()
	from := first.Start.In(loc).Format(rangeLayout)
	to := last.Start.In(loc).Format(rangeLayout)
	if from == to {
		return from
	}
	return fmt.Sprintf("%s - %s", from, to)
}

func newCountdownFrame(up *season.Upcoming, b countdown.Breakdown, label string, loc *time.Location) countdownFrame {
	if up == nil {
		return countdownFrame{Status: countdown.Status(nil, b, label), Breakdown: b}
	}
	w := newWeekendView(up.Weekend, loc)
	s := newSessionView(up.Session, loc)
	start := up.Session.Start
	return countdownFrame{
		Status:    countdown.Status(&start, b, label),
		Weekend:   &w,
		Session:   &s,
		Breakdown: b,
	}
}
