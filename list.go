package main

import (
	"fmt"
	"io"
	"time"

	"f1countdown/countdown"
	"f1countdown/model"
	"f1countdown/season"

	"github.com/jedib0t/go-pretty/v6/table"
)

// printCalendar writes the upcoming weekends with a countdown to their first
// session, plus the headline next session.
func printCalendar(out io.Writer, weekends []model.RaceWeekend, now time.Time, loc *time.Location) {
	if next, ok := season.NextSession(weekends, now); ok {
		start := next.Session.Start
		b := countdown.Decompose(&start, now)
		fmt.Fprintf(out, "Next: %s - %s (%s)\n%s %s\n\n",
			next.Weekend.RaceName, next.Session.Label, start.In(loc).Format(sessionLayout),
			countdown.Status(&start, b, headlineLabel), formatBreakdown(b))
	}

	upcoming := season.UpcomingWeekends(weekends, now)
	if len(upcoming) == 0 {
		fmt.Fprintln(out, "No more races scheduled.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Rnd", "Grand Prix", "Location", "Dates", "Starts in"})
	for _, w := range upcoming {
		first, _ := w.FirstSession()
		start := first.Start
		b := countdown.Decompose(&start, now)
		t.AppendRow(table.Row{
			w.Round,
			w.RaceName,
			fmt.Sprintf("%s, %s", w.Locality, w.Country),
			dateRange(w, loc),
			countdownCell(&start, b),
		})
	}
	t.Render()
}

func countdownCell(target *time.Time, b countdown.Breakdown) string {
	if b.IsPast {
		return countdown.Status(target, b, "")
	}
	return formatBreakdown(b)
}

func formatBreakdown(b countdown.Breakdown) string {
	return fmt.Sprintf("%02dD %02dH %02dM %02dS", b.Days, b.Hours, b.Minutes, b.Seconds)
}
