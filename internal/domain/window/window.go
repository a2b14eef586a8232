// Package window maps calendar inputs onto absolute time ranges for ledger
// scans.
package window

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date input form, e.g. "2024-03-10".
const DateLayout = "2006-01-02"

// endOfDayOffset places the upper bound at 23:59:59.999 local time. The
// bound is inclusive rather than half-open; dashboards and stored reports
// depend on the .999 boundary, so it is preserved as-is.
const endOfDayOffset = 24*time.Hour - time.Millisecond

// Window is a bounded time range. Both bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ErrBadDate reports an unparseable calendar input.
var ErrBadDate = errors.New("bad date")

// Day resolves a calendar date to its full-day window in loc. An empty date
// means the current local date.
func Day(date string, loc *time.Location, now func() time.Time) (Window, error) {
	var d time.Time
	if date == "" {
		d = now().In(loc)
	} else {
		parsed, err := time.ParseInLocation(DateLayout, date, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: %q", ErrBadDate, date)
		}
		d = parsed
	}

	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.Add(endOfDayOffset)}, nil
}

// Range resolves an explicit start/end pair. The start instant is used
// as-is; the end date is advanced to its end-of-day bound so a single-day
// "end" input covers that whole day. Inputs are RFC 3339 instants or bare
// calendar dates.
func Range(start, end string, loc *time.Location) (Window, error) {
	s, err := parseInstant(start, loc)
	if err != nil {
		return Window{}, err
	}
	e, err := parseInstant(end, loc)
	if err != nil {
		return Window{}, err
	}

	e = e.In(loc)
	eod := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc).Add(endOfDayOffset)
	return Window{Start: s, End: eod}, nil
}

func parseInstant(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, v, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, v)
}
