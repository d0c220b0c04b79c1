package season

import (
	"fmt"
	"strings"
	"time"

	"f1countdown/model"

	ics "github.com/arran4/golang-ical"
)

const calendarProductID = "-//f1countdown//season//EN"

// nominal session lengths, the source only carries start times
var sessionLength = map[model.SessionType]time.Duration{
	model.SessionFirstPractice:  time.Hour,
	model.SessionSecondPractice: time.Hour,
	model.SessionThirdPractice:  time.Hour,
	model.SessionQualifying:     time.Hour,
	model.SessionSprint:         time.Hour,
	model.SessionRace:           2 * time.Hour,
}

// ToICS renders every session of the season as an iCalendar feed.
func ToICS(weekends []model.RaceWeekend, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName("Formula 1")

	for _, w := range weekends {
		location := strings.Trim(fmt.Sprintf("%s, %s", w.Locality, w.Country), ", ")
		for _, s := range w.Sessions {
			event := cal.AddEvent(fmt.Sprintf("%d-%s@f1countdown", w.Season, s.Key))
			event.SetDtStampTime(stamp.UTC())
			event.SetStartAt(s.Start)
			event.SetEndAt(s.Start.Add(lengthOf(s.Type)))
			event.SetSummary(fmt.Sprintf("%s - %s", w.RaceName, s.Label))
			event.SetLocation(location)
			event.SetDescription(fmt.Sprintf("Round %d, %s", w.Round, w.CircuitName))
		}
	}
	return cal.Serialize()
}

func lengthOf(t model.SessionType) time.Duration {
	if d, ok := sessionLength[t]; ok {
		return d
	}
	return time.Hour
}
