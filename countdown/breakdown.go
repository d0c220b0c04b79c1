package countdown

import "time"

const (
	SecondMs int64 = 1000
	MinuteMs       = 60 * SecondMs
	HourMs         = 60 * MinuteMs
	DayMs          = 24 * HourMs
)

// Progress holds how far the countdown sits inside each unit bucket, in [0,1].
type Progress struct {
	Days    float64 `json:"days"`
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// Breakdown is the remaining time until a target split into units.
// It is a value: every tick produces a new one.
type Breakdown struct {
	Total    int64    `json:"total"` // remaining milliseconds, never negative
	Days     int64    `json:"days"`
	Hours    int64    `json:"hours"`
	Minutes  int64    `json:"minutes"`
	Seconds  int64    `json:"seconds"`
	IsPast   bool     `json:"isPast"`
	Progress Progress `json:"progress"`
}

// Decompose splits target-now into days, hours, minutes and seconds.
// A nil target yields the zero Breakdown with IsPast false, meaning no
// countdown is active.
func Decompose(target *time.Time, now time.Time) Breakdown {
	if target == nil {
		return Breakdown{}
	}

	raw := target.Sub(now)
	var total int64
	if raw > 0 {
		total = raw.Milliseconds()
		// keep a live countdown distinct from the no-target zero value
		if total == 0 {
			total = 1
		}
	}

	days := total / DayMs
	afterDays := total - days*DayMs

	hours := afterDays / HourMs
	afterHours := afterDays - hours*HourMs

	minutes := afterHours / MinuteMs
	afterMinutes := afterHours - minutes*MinuteMs

	seconds := afterMinutes / SecondMs
	afterSeconds := afterMinutes - seconds*SecondMs

	return Breakdown{
		Total:   total,
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
		Seconds: seconds,
		IsPast:  raw <= 0,
		Progress: Progress{
			Days:    float64(afterDays) / float64(DayMs),
			Hours:   float64(afterHours) / float64(HourMs),
			Minutes: float64(afterMinutes) / float64(MinuteMs),
			// seconds cycle over a one minute window, not per second
			Seconds: (float64(seconds) + float64(afterSeconds)/float64(SecondMs)) / 60,
		},
	}
}

// Duration reassembles the whole units of the breakdown, dropping sub-second remainder.
func (b Breakdown) Duration() time.Duration {
	ms := b.Days*DayMs + b.Hours*HourMs + b.Minutes*MinuteMs + b.Seconds*SecondMs
	return time.Duration(ms) * time.Millisecond
}

// Status returns the headline text shown above a countdown.
func Status(target *time.Time, b Breakdown, label string) string {
	switch {
	case target == nil:
		return "No date available"
	case b.IsPast:
		return "Already started"
	case label != "":
		return label
	}
	return "Countdown"
}
