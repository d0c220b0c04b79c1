package season

import (
	"time"

	"f1countdown/model"
)

// Upcoming pairs a session with the weekend it belongs to.
type Upcoming struct {
	Weekend model.RaceWeekend
	Session model.Session
}

// NextSession returns the earliest session starting strictly after now.
// Ties keep the order of the calendar.
func NextSession(weekends []model.RaceWeekend, now time.Time) (Upcoming, bool) {
	var next Upcoming
	found := false
	for _, w := range weekends {
		for _, s := range w.Sessions {
			if !s.Start.After(now) {
				continue
			}
			if !found || s.Start.Before(next.Session.Start) {
				next = Upcoming{Weekend: w, Session: s}
				found = true
			}
		}
	}
	return next, found
}

// UpcomingWeekends keeps the weekends that still have a session after now.
func UpcomingWeekends(weekends []model.RaceWeekend, now time.Time) []model.RaceWeekend {
	upcoming := make([]model.RaceWeekend, 0, len(weekends))
	for _, w := range weekends {
		if last, ok := w.LastSession(); ok && last.Start.After(now) {
			upcoming = append(upcoming, w)
		}
	}
	return upcoming
}

// FindSession looks a session up by key across the whole season.
func FindSession(weekends []model.RaceWeekend, key string) (Upcoming, bool) {
	for _, w := range weekends {
		if s, ok := w.SessionByKey(key); ok {
			return Upcoming{Weekend: w, Session: s}, true
		}
	}
	return Upcoming{}, false
}
