// Package dates resolves relative and partially specified due-date
// expressions into absolute timestamps against a caller-supplied reference
// time.
package dates

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ResolutionError is returned when a date expression cannot be resolved
type ResolutionError struct {
	Input string
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve date %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("cannot resolve date %q", e.Input)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Components is the relative due-date shape emitted by the extraction model.
// Each field is either a number (an offset relative to the reference time,
// resolved independently of the other fields) or a string (a literal value,
// for Month the full English month name).
type Components struct {
	Month any `json:"month"`
	Day   any `json:"day"`
	Year  any `json:"year"`
	Time  any `json:"time"`
}

// stringLayouts are tried in order when resolving a literal date string
var stringLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var daysFromNowRe = regexp.MustCompile(`^(\d+) days? from now$`)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveString resolves a date expression given as a string. Absolute ISO
// timestamps resolve to themselves, so resolution is idempotent. A small set
// of relative phrases ("today", "tomorrow", "3 days from now",
// "next friday") is also understood.
func ResolveString(s string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, &ResolutionError{Input: s}
	}

	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}

	lower := strings.ToLower(trimmed)
	switch lower {
	case "today":
		return startOfDay(now), nil
	case "tomorrow":
		return startOfDay(now.AddDate(0, 0, 1)), nil
	}

	if m := daysFromNowRe.FindStringSubmatch(lower); m != nil {
		offset, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, &ResolutionError{Input: s, Err: err}
		}
		return startOfDay(now.AddDate(0, 0, offset)), nil
	}

	if day, ok := weekdays[strings.TrimSpace(strings.TrimPrefix(lower, "next"))]; ok {
		ahead := (int(day) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return startOfDay(now.AddDate(0, 0, ahead)), nil
	}

	return time.Time{}, &ResolutionError{Input: s}
}

// ResolveComponents resolves a month/day/year component payload. Numeric
// fields are offsets applied to the reference time, each independently:
// month wraps modulo twelve, year adds, and a day offset resolves to the
// later of the literal day-of-month and the day reached by adding the
// offset to the reference date. A day of zero pins the reference day.
func ResolveComponents(c Components, now time.Time) (time.Time, error) {
	var month int
	if m, ok := asInt(c.Month); ok {
		if m == 0 {
			month = int(now.Month())
		} else {
			month = ((int(now.Month())+m-1)%12+12)%12 + 1
		}
	} else if name, ok := c.Month.(string); ok {
		t, err := time.Parse("January", name)
		if err != nil {
			return time.Time{}, &ResolutionError{Input: name, Err: err}
		}
		month = int(t.Month())
	} else {
		return time.Time{}, &ResolutionError{Input: fmt.Sprintf("month=%v", c.Month)}
	}

	var year int
	if y, ok := asInt(c.Year); ok {
		if y == 0 {
			year = now.Year()
		} else {
			year = now.Year() + y
		}
	} else if s, ok := c.Year.(string); ok {
		y, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, &ResolutionError{Input: s, Err: err}
		}
		year = y
	} else {
		return time.Time{}, &ResolutionError{Input: fmt.Sprintf("year=%v", c.Year)}
	}

	var day int
	if d, ok := asInt(c.Day); ok {
		if d == 0 {
			return time.Date(year, time.Month(month), now.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		// A positive offset resolves to whichever is later: the literal
		// day-of-month or the day reached by walking the calendar forward.
		// Surprising near month boundaries, but long-standing behavior that
		// callers depend on.
		day = d
		if walked := now.AddDate(0, 0, d).Day(); walked > day {
			day = walked
		}
	} else if s, ok := c.Day.(string); ok {
		d, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, &ResolutionError{Input: s, Err: err}
		}
		day = d
	} else {
		return time.Time{}, &ResolutionError{Input: fmt.Sprintf("day=%v", c.Day)}
	}

	if day < 1 || day > 31 {
		return time.Time{}, &ResolutionError{Input: fmt.Sprintf("day=%d", day)}
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// Resolve dispatches on the raw JSON shape of a due date: null resolves to
// no due date, a string resolves via ResolveString, and an object resolves
// via ResolveComponents.
func Resolve(raw json.RawMessage, now time.Time) (*time.Time, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ResolutionError{Input: trimmed, Err: err}
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		t, err := ResolveString(s, now)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var c Components
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &ResolutionError{Input: trimmed, Err: err}
		}
		t, err := ResolveComponents(c, now)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	return nil, &ResolutionError{Input: trimmed}
}

// Friendly renders a due date the way a person would say it: Today,
// Tomorrow, the weekday name within a week, or the full date beyond that.
func Friendly(t time.Time, now time.Time) string {
	timeStr := t.Format(" at 03:04 PM")
	today := startOfDay(now)
	day := startOfDay(t)

	switch {
	case day.Equal(today):
		return "Today" + timeStr
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow" + timeStr
	case day.Before(today.AddDate(0, 0, 7)) && day.After(today):
		return t.Format("Monday") + timeStr
	default:
		return t.Format("January 02, 2006") + timeStr
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
