package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"f1countdown/countdown"
	"f1countdown/model"
	"f1countdown/season"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	headlineLabel = "Time remaining"
	sessionLabel  = "Starts in"

	unavailableMessage = "Calendar unavailable. Try again later."

	writeWait = 10 * time.Second
)

// calendarSource is the read side of season.Loader.
type calendarSource interface {
	Weekends() []model.RaceWeekend
	Err() error
	FetchedAt() time.Time
}

type server struct {
	source   calendarSource
	headline *headline
	loc      *time.Location
	now      func() time.Time
	period   time.Duration
	upgrader websocket.Upgrader
}

func newServer(source calendarSource, hl *headline, loc *time.Location) *server {
	return &server{
		source:   source,
		headline: hl,
		loc:      loc,
		now:      time.Now,
		period:   countdown.DefaultPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/season", s.handleSeason).Methods(http.MethodGet)
	r.HandleFunc("/season.ics", s.handleSeasonICS).Methods(http.MethodGet)
	r.HandleFunc("/next", s.handleNext).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleHeadline).Methods(http.MethodGet)
	r.HandleFunc("/ws/sessions/{key}", s.handleSessionStream).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// location resolves the "tz" query parameter, falling back to the default zone.
func (s *server) location(r *http.Request) (*time.Location, bool) {
	name := r.URL.Query().Get("tz")
	if name == "" {
		return s.loc, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// weekends returns the calendar or answers 503 when there is none.
func (s *server) weekends(w http.ResponseWriter) ([]model.RaceWeekend, bool) {
	weekends := s.source.Weekends()
	if len(weekends) == 0 {
		if err := s.source.Err(); err != nil {
			log.Printf("Serving unavailable calendar: %v", err)
		}
		writeMessage(w, http.StatusServiceUnavailable, unavailableMessage)
		return nil, false
	}
	return weekends, true
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleSeason(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.location(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "unknown timezone")
		return
	}
	weekends, ok := s.weekends(w)
	if !ok {
		return
	}
	if r.URL.Query().Get("upcoming") == "true" {
		weekends = season.UpcomingWeekends(weekends, s.now())
	}

	views := make([]weekendView, 0, len(weekends))
	for _, wk := range weekends {
		views = append(views, newWeekendView(wk, loc))
	}
	writeJSON(w, http.StatusOK, seasonResponse{
		Timezone:  loc.String(),
		FetchedAt: s.source.FetchedAt(),
		Weekends:  views,
	})
}

func (s *server) handleSeasonICS(w http.ResponseWriter, r *http.Request) {
	weekends, ok := s.weekends(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write([]byte(season.ToICS(weekends, s.source.FetchedAt())))
}

func (s *server) handleNext(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.location(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "unknown timezone")
		return
	}
	weekends, ok := s.weekends(w)
	if !ok {
		return
	}

	now := s.now()
	next, found := season.NextSession(weekends, now)
	if !found {
		writeMessage(w, http.StatusNotFound, "No more sessions scheduled.")
		return
	}
	start := next.Session.Start
	writeJSON(w, http.StatusOK, newCountdownFrame(&next, countdown.Decompose(&start, now), headlineLabel, loc))
}

func (s *server) handleHeadline(w http.ResponseWriter, r *http.Request) {
	s.headline.serve(w, r)
}

// handleSessionStream pushes a countdown for one session, once per tick, over
// a WebSocket. Each connection runs its own Driver, stopped on disconnect.
func (s *server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	loc, ok := s.location(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "unknown timezone")
		return
	}
	weekends, ok := s.weekends(w)
	if !ok {
		return
	}
	key := mux.Vars(r)["key"]
	up, found := season.FindSession(weekends, key)
	if !found {
		writeMessage(w, http.StatusNotFound, "unknown session "+key)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade HTTP to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	start := up.Session.Start
	driver := countdown.NewDriver(&start, countdown.WithClock(s.now), countdown.WithPeriod(s.period))
	defer driver.Stop()
	subID, frames := driver.Subscribe()
	defer driver.Unsubscribe(subID)
	driver.Start()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-frames:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(newCountdownFrame(&up, b, sessionLabel, loc)); err != nil {
				log.Printf("Error streaming session %s to %s: %v", key, conn.RemoteAddr(), err)
				return
			}
		}
	}
}
