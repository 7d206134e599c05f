package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// DateRange is an optional inclusive calendar range. A nil bound is open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// Contains compares the calendar date of t, taken in each bound's
// location, against the bound's date. Both bounds are inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil {
		start := startOfDay(*r.Start)
		if t.Before(start) {
			return false
		}
	}
	if r.End != nil {
		next := startOfDay(*r.End).AddDate(0, 0, 1)
		if !t.Before(next) {
			return false
		}
	}
	return true
}

// IsSameDay reports whether both bounds are set and fall on one date
func (r DateRange) IsSameDay() bool {
	if r.Start == nil || r.End == nil {
		return false
	}
	return r.Start.Format(types.WorkDateLayout) == r.End.In(r.Start.Location()).Format(types.WorkDateLayout)
}

// Description renders the range for report headers, or "" when unbounded
func (r DateRange) Description() string {
	const layout = "Jan 02, 2006"
	switch {
	case r.Start != nil && r.End != nil:
		return r.Start.Format(layout) + " - " + r.End.Format(layout)
	case r.Start != nil:
		return "From " + r.Start.Format(layout)
	case r.End != nil:
		return "Until " + r.End.Format(layout)
	default:
		return ""
	}
}

// ParseDateRange builds a range from optional "YYYY-MM-DD" bounds. Start
// snaps to start of day and end to end of day in loc. An end before the
// start is rejected.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	var r DateRange
	if start != "" {
		t, err := time.ParseInLocation(types.WorkDateLayout, start, loc)
		if err != nil {
			return DateRange{}, goerr.Wrap(ValidationErrors{"start": "Start date must be YYYY-MM-DD"}, "invalid start date", goerr.V("start", start))
		}
		r.Start = &t
	}
	if end != "" {
		t, err := time.ParseInLocation(types.WorkDateLayout, end, loc)
		if err != nil {
			return DateRange{}, goerr.Wrap(ValidationErrors{"end": "End date must be YYYY-MM-DD"}, "invalid end date", goerr.V("end", end))
		}
		e := endOfDay(t)
		r.End = &e
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return DateRange{}, goerr.Wrap(ValidationErrors{"end": "End date must not be before start date"}, "inverted date range",
			goerr.V("start", start),
			goerr.V("end", end),
		)
	}
	return r, nil
}

// DatePreset is a named quick range
type DatePreset string

const (
	DatePresetToday     DatePreset = "today"
	DatePresetYesterday DatePreset = "yesterday"
	DatePresetWeek      DatePreset = "week"
	DatePresetMonth     DatePreset = "month"
	DatePresetAll       DatePreset = "all"
)

// Label returns the display name of the preset
func (p DatePreset) Label() string {
	switch p {
	case DatePresetToday:
		return "Today"
	case DatePresetYesterday:
		return "Yesterday"
	case DatePresetWeek:
		return "Last 7 days"
	case DatePresetMonth:
		return "Last 30 days"
	case DatePresetAll:
		return "All time"
	default:
		return string(p)
	}
}

// DatePresets returns the presets in display order
func DatePresets() []DatePreset {
	return []DatePreset{DatePresetToday, DatePresetYesterday, DatePresetWeek, DatePresetMonth, DatePresetAll}
}

// Range resolves the preset relative to now
func (p DatePreset) Range(now time.Time) (DateRange, error) {
	day := func(offset int) time.Time { return startOfDay(now.AddDate(0, 0, -offset)) }
	span := func(from int) DateRange {
		start := day(from)
		end := endOfDay(now)
		return DateRange{Start: &start, End: &end}
	}

	switch p {
	case DatePresetToday:
		return span(0), nil
	case DatePresetYesterday:
		start := day(1)
		end := endOfDay(start)
		return DateRange{Start: &start, End: &end}, nil
	case DatePresetWeek:
		return span(6), nil
	case DatePresetMonth:
		return span(29), nil
	case DatePresetAll, "":
		return DateRange{}, nil
	default:
		return DateRange{}, goerr.Wrap(ValidationErrors{"preset": "Unknown date preset"}, "invalid date preset", goerr.V("preset", p))
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
