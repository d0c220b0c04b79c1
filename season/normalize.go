package season

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"f1countdown/model"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const racesPath = "MRData.RaceTable.Races"

// sessionSlots lists the session sub-objects of a race record, in display order.
// The race itself has no sub-object; its date and time live on the record.
var sessionSlots = []struct {
	field string
	typ   model.SessionType
}{
	{"FirstPractice", model.SessionFirstPractice},
	{"SecondPractice", model.SessionSecondPractice},
	{"ThirdPractice", model.SessionThirdPractice},
	{"Qualifying", model.SessionQualifying},
	{"Sprint", model.SessionSprint},
	{"", model.SessionRace},
}

// parseRaces extracts and normalizes every race of a results API document.
func parseRaces(body []byte) ([]model.RaceWeekend, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.Wrap(ErrMalformed, "response is not valid JSON")
	}

	races := gjson.GetBytes(body, racesPath).Array()
	if len(races) == 0 {
		return nil, ErrEmptyCalendar
	}

	weekends := make([]model.RaceWeekend, 0, len(races))
	seen := make(map[string]bool, len(races))
	for i, race := range races {
		w, err := mapRace(race)
		if err != nil {
			return nil, errors.Wrapf(err, "race #%d", i)
		}
		if seen[w.ID] {
			return nil, errors.Wrapf(ErrMalformed, "duplicate round %d in season %d", w.Round, w.Season)
		}
		seen[w.ID] = true
		weekends = append(weekends, w)
	}
	return weekends, nil
}

func mapRace(race gjson.Result) (model.RaceWeekend, error) {
	seasonText := race.Get("season").String()
	season, err := strconv.Atoi(strings.TrimSpace(seasonText))
	if err != nil {
		return model.RaceWeekend{}, errors.Wrapf(ErrMalformed, "season %q", seasonText)
	}
	roundText := race.Get("round").String()
	round, err := strconv.Atoi(strings.TrimSpace(roundText))
	if err != nil || round < 1 {
		return model.RaceWeekend{}, errors.Wrapf(ErrMalformed, "round %q", roundText)
	}

	sessions := make([]model.Session, 0, len(sessionSlots))
	for _, slot := range sessionSlots {
		src := race
		if slot.field != "" {
			src = race.Get(slot.field)
			if !src.Get("date").Exists() {
				continue
			}
		}

		start, err := buildStart(src.Get("date").String(), src.Get("time").String())
		if err != nil {
			return model.RaceWeekend{}, errors.Wrapf(err, "round %d %s", round, slot.typ)
		}
		sessions = append(sessions, model.Session{
			Key:   fmt.Sprintf("%d-%s", round, slot.typ),
			Type:  slot.typ,
			Label: slot.typ.Label(),
			Start: start,
		})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Start.Before(sessions[j].Start)
	})

	return model.RaceWeekend{
		ID:          fmt.Sprintf("%d-%d", season, round),
		Season:      season,
		Round:       round,
		RaceName:    race.Get("raceName").String(),
		CircuitName: race.Get("Circuit.circuitName").String(),
		Locality:    race.Get("Circuit.Location.locality").String(),
		Country:     race.Get("Circuit.Location.country").String(),
		Sessions:    sessions,
	}, nil
}

// buildStart combines a "2006-01-02" date with an optional "15:04:05" time.
// Times without a zone are UTC; a missing time means midnight UTC.
func buildStart(date, clock string) (time.Time, error) {
	switch {
	case clock == "":
		clock = "00:00:00Z"
	case !hasZone(clock):
		clock += "Z"
	}
	start, err := time.Parse(time.RFC3339, date+"T"+clock)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrMalformed, "start %q %q", date, clock)
	}
	return start.UTC(), nil
}

func hasZone(clock string) bool {
	if strings.HasSuffix(clock, "Z") {
		return true
	}
	n := len(clock)
	return n > 6 && (clock[n-6] == '+' || clock[n-6] == '-') && clock[n-3] == ':'
}
