package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"f1countdown/broadcaster"
	"f1countdown/countdown"
	"f1countdown/model"
	"f1countdown/season"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	weekends  []model.RaceWeekend
	err       error
	fetchedAt time.Time
}

func (s stubSource) Weekends() []model.RaceWeekend { return s.weekends }
func (s stubSource) Err() error                    { return s.err }
func (s stubSource) FetchedAt() time.Time          { return s.fetchedAt }

func session(round int, typ model.SessionType, start time.Time) model.Session {
	return model.Session{
		Key:   fmt.Sprintf("%d-%s", round, typ),
		Type:  typ,
		Label: typ.Label(),
		Start: start,
	}
}

func testWeekends() []model.RaceWeekend {
	return []model.RaceWeekend{
		{
			ID: "2025-5", Season: 2025, Round: 5,
			RaceName: "Saudi Arabian Grand Prix", Locality: "Jeddah", Country: "Saudi Arabia",
			CircuitName: "Jeddah Corniche Circuit",
			Sessions: []model.Session{
				session(5, model.SessionQualifying, time.Date(2025, 4, 19, 17, 0, 0, 0, time.UTC)),
				session(5, model.SessionRace, time.Date(2025, 4, 20, 17, 0, 0, 0, time.UTC)),
			},
		},
		{
			ID: "2025-6", Season: 2025, Round: 6,
			RaceName: "Miami Grand Prix", Locality: "Miami", Country: "USA",
			CircuitName: "Miami International Autodrome",
			Sessions: []model.Session{
				session(6, model.SessionFirstPractice, time.Date(2025, 5, 2, 16, 30, 0, 0, time.UTC)),
				session(6, model.SessionSprint, time.Date(2025, 5, 3, 16, 0, 0, 0, time.UTC)),
				session(6, model.SessionRace, time.Date(2025, 5, 4, 20, 0, 0, 0, time.UTC)),
			},
		},
	}
}

func newTestServer(t *testing.T, source calendarSource) (*server, *httptest.Server) {
	t.Helper()
	hl := newHeadline(source, broadcaster.NewBroadcaster(), time.UTC,
		countdown.WithClock(func() time.Time { return testNow }),
		countdown.WithPeriod(5*time.Millisecond))
	hl.now = func() time.Time { return testNow }

	s := newServer(source, hl, time.UTC)
	s.now = func() time.Time { return testNow }
	s.period = 5 * time.Millisecond

	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, stubSource{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSeason_Unavailable(t *testing.T) {
	_, srv := newTestServer(t, stubSource{err: &season.FetchError{Attempts: 2, Err: season.ErrEmptyCalendar}})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/season", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, unavailableMessage, body["message"])

	for _, path := range []string{"/next", "/season.ics", "/ws/sessions/6-RACE"} {
		resp := getJSON(t, srv.URL+path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestSeason_Timezone(t *testing.T) {
	fetchedAt := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	_, srv := newTestServer(t, stubSource{weekends: testWeekends(), fetchedAt: fetchedAt})

	var body seasonResponse
	resp := getJSON(t, srv.URL+"/season?tz=America/New_York", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "America/New_York", body.Timezone)
	assert.True(t, fetchedAt.Equal(body.FetchedAt))
	require.Len(t, body.Weekends, 2)

	miami := body.Weekends[1]
	assert.Equal(t, "02 May - 04 May", miami.DateRange)
	require.Len(t, miami.Sessions, 3)
	fp1 := miami.Sessions[0]
	assert.Equal(t, "6-FP1", fp1.Key)
	assert.Equal(t, "Fri 02 May 12:30 EDT", fp1.Local)
	assert.True(t, fp1.Start.Equal(time.Date(2025, 5, 2, 16, 30, 0, 0, time.UTC)), "instants stay absolute")
}

func TestSeason_BadTimezone(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})
	resp := getJSON(t, srv.URL+"/season?tz=Not/AZone", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSeason_UpcomingOnly(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})

	var body seasonResponse
	getJSON(t, srv.URL+"/season?upcoming=true", &body)
	require.Len(t, body.Weekends, 1)
	assert.Equal(t, "Miami Grand Prix", body.Weekends[0].RaceName)
}

func TestNext(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})

	var frame countdownFrame
	resp := getJSON(t, srv.URL+"/next", &frame)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, frame.Session)
	assert.Equal(t, "6-FP1", frame.Session.Key)
	assert.Equal(t, "Miami Grand Prix", frame.Weekend.RaceName)
	assert.Equal(t, headlineLabel, frame.Status)
	assert.Equal(t, int64(4), frame.Breakdown.Hours)
	assert.Equal(t, int64(30), frame.Breakdown.Minutes)
	assert.False(t, frame.Breakdown.IsPast)
}

func TestNext_NoneLeft(t *testing.T) {
	weekends := testWeekends()[:1]
	_, srv := newTestServer(t, stubSource{weekends: weekends})

	resp := getJSON(t, srv.URL+"/next", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSeasonICS(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})

	resp, err := http.Get(srv.URL + "/season.ics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/calendar; charset=utf-8", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(buf.String(), "BEGIN:VEVENT"))
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func readFrame(t *testing.T, conn *websocket.Conn) countdownFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame countdownFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestSessionStream(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/sessions/6-SPRINT?tz=Europe/Lisbon"), nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 3; i++ {
		frame := readFrame(t, conn)
		require.NotNil(t, frame.Session)
		assert.Equal(t, "6-SPRINT", frame.Session.Key)
		assert.Equal(t, "Sat 03 May 17:00 WEST", frame.Session.Local)
		assert.Equal(t, sessionLabel, frame.Status)
		assert.Equal(t, int64(1), frame.Breakdown.Days)
		assert.Equal(t, int64(4), frame.Breakdown.Hours)
	}
}

func TestSessionStream_PastSession(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/sessions/5-RACE"), nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := readFrame(t, conn)
	assert.Equal(t, "Already started", frame.Status)
	assert.True(t, frame.Breakdown.IsPast)
	assert.Zero(t, frame.Breakdown.Total)
}

func TestSessionStream_UnknownSession(t *testing.T) {
	_, srv := newTestServer(t, stubSource{weekends: testWeekends()})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/sessions/9-RACE"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHeadlineStream(t *testing.T) {
	s, srv := newTestServer(t, stubSource{weekends: testWeekends()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.headline.run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// an early frame may predate the first retarget
	for i := 0; i < 50; i++ {
		frame := readFrame(t, conn)
		if frame.Session == nil {
			continue
		}
		assert.Equal(t, "6-FP1", frame.Session.Key)
		assert.Equal(t, headlineLabel, frame.Status)
		return
	}
	t.Fatal("headline never targeted the next session")
}

func TestHeadline_NoUpcomingSession(t *testing.T) {
	h := newHeadline(stubSource{weekends: testWeekends()[:1]}, broadcaster.NewBroadcaster(), time.UTC,
		countdown.WithClock(func() time.Time { return testNow }))
	h.now = func() time.Time { return testNow }

	assert.False(t, h.retarget())
	h.publish(h.driver.Latest())

	var frame countdownFrame
	require.NoError(t, json.Unmarshal(h.lastFrame(), &frame))
	assert.Equal(t, "No date available", frame.Status)
	assert.Nil(t, frame.Session)
	h.driver.Stop()
}

// swappableSource lets a test replace the calendar under a running headline.
type swappableSource struct {
	mu       sync.Mutex
	weekends []model.RaceWeekend
}

func (s *swappableSource) set(weekends []model.RaceWeekend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weekends = weekends
}

func (s *swappableSource) Weekends() []model.RaceWeekend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weekends
}

func (s *swappableSource) Err() error           { return nil }
func (s *swappableSource) FetchedAt() time.Time { return time.Time{} }

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func raceAt(start time.Time) []model.RaceWeekend {
	return []model.RaceWeekend{{
		ID: "2025-6", Season: 2025, Round: 6, RaceName: "Miami Grand Prix",
		Sessions: []model.Session{session(6, model.SessionRace, start)},
	}}
}

func newManualHeadline(source calendarSource, clock *manualClock) *headline {
	h := newHeadline(source, broadcaster.NewBroadcaster(), time.UTC, countdown.WithClock(clock.Now))
	h.now = clock.Now
	return h
}

func TestHeadline_FollowsRescheduledSession(t *testing.T) {
	clock := &manualClock{now: testNow}
	source := &swappableSource{weekends: raceAt(testNow.Add(time.Hour))}
	h := newManualHeadline(source, clock)
	defer h.driver.Stop()

	require.True(t, h.retarget())
	assert.True(t, testNow.Add(time.Hour).Equal(*h.driver.Target()))
	assert.False(t, h.retarget(), "unchanged calendar keeps the target")

	later := testNow.Add(3 * time.Hour)
	source.set(raceAt(later))
	clock.Set(testNow.Add(2 * time.Hour))

	require.True(t, h.retarget())
	assert.True(t, later.Equal(*h.driver.Target()))

	h.publish(h.driver.Latest())
	var frame countdownFrame
	require.NoError(t, json.Unmarshal(h.lastFrame(), &frame))
	assert.Equal(t, headlineLabel, frame.Status)
	assert.False(t, frame.Breakdown.IsPast)
	assert.Equal(t, int64(1), frame.Breakdown.Hours)
}

func TestHeadline_FollowsSessionMovedEarlier(t *testing.T) {
	clock := &manualClock{now: testNow}
	source := &swappableSource{weekends: raceAt(testNow.Add(3 * time.Hour))}
	h := newManualHeadline(source, clock)
	defer h.driver.Stop()

	require.True(t, h.retarget())
	earlier := testNow.Add(30 * time.Minute)
	source.set(raceAt(earlier))

	require.True(t, h.retarget())
	assert.True(t, earlier.Equal(*h.driver.Target()))
}

func TestHeadline_MovesOnWhenSessionStarts(t *testing.T) {
	clock := &manualClock{now: testNow}
	h := newManualHeadline(stubSource{weekends: testWeekends()}, clock)
	defer h.driver.Stop()

	require.True(t, h.retarget())
	h.mu.Lock()
	assert.Equal(t, "6-FP1", h.current.Session.Key)
	h.mu.Unlock()

	clock.Set(time.Date(2025, 5, 2, 17, 0, 0, 0, time.UTC))
	require.True(t, h.retarget())
	h.mu.Lock()
	assert.Equal(t, "6-SPRINT", h.current.Session.Key)
	h.mu.Unlock()
	assert.False(t, h.driver.Latest().IsPast)

	clock.Set(time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC))
	require.True(t, h.retarget(), "clearing the target is a change")
	assert.Nil(t, h.driver.Target())
	assert.False(t, h.retarget())
}

func TestPrintCalendar(t *testing.T) {
	var out bytes.Buffer
	printCalendar(&out, testWeekends(), testNow, time.UTC)

	text := out.String()
	assert.Contains(t, text, "Next: Miami Grand Prix - Practice 1")
	assert.Contains(t, text, "00D 04H 30M 00S")
	assert.Contains(t, text, "Miami, USA")
	assert.NotContains(t, text, "Saudi Arabian Grand Prix")

	out.Reset()
	printCalendar(&out, testWeekends(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	assert.Contains(t, out.String(), "No more races scheduled.")
}
