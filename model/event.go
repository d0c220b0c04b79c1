package model

import "time"

// SessionType tags one timed activity of a race weekend.
type SessionType string

const (
	SessionFirstPractice  SessionType = "FP1"
	SessionSecondPractice SessionType = "FP2"
	SessionThirdPractice  SessionType = "FP3"
	SessionQualifying     SessionType = "QUALIFYING"
	SessionSprint         SessionType = "SPRINT"
	SessionRace           SessionType = "RACE"
)

// Label returns the human readable name of the session type.
func (t SessionType) Label() string {
	switch t {
	case SessionFirstPractice:
		return "Practice 1"
	case SessionSecondPractice:
		return "Practice 2"
	case SessionThirdPractice:
		return "Practice 3"
	case SessionQualifying:
		return "Qualifying"
	case SessionSprint:
		return "Sprint"
	case SessionRace:
		return "Race"
	}
	return string(t)
}

// Session represents a single timed activity within a race weekend.
type Session struct {
	Key   string      `json:"key"` // unique within a season: "<round>-<type>"
	Type  SessionType `json:"type"`
	Label string      `json:"label"`
	Start time.Time   `json:"start"` // always UTC
}

// RaceWeekend holds one round of the season. Sessions are sorted by start.
type RaceWeekend struct {
	ID          string    `json:"id"` // "<season>-<round>"
	Season      int       `json:"season"`
	Round       int       `json:"round"`
	RaceName    string    `json:"raceName"`
	Locality    string    `json:"locality"`
	Country     string    `json:"country"`
	CircuitName string    `json:"circuitName"`
	Sessions    []Session `json:"sessions"`
}

// FirstSession returns the earliest session of the weekend.
func (w RaceWeekend) FirstSession() (Session, bool) {
	if len(w.Sessions) == 0 {
		return Session{}, false
	}
	return w.Sessions[0], true
}

// LastSession returns the latest session of the weekend.
func (w RaceWeekend) LastSession() (Session, bool) {
	if len(w.Sessions) == 0 {
		return Session{}, false
	}
	return w.Sessions[len(w.Sessions)-1], true
}

// SessionByKey looks a session up by its key.
func (w RaceWeekend) SessionByKey(key string) (Session, bool) {
	for _, s := range w.Sessions {
		if s.Key == key {
			return s, true
		}
	}
	return Session{}, false
}
