package entity

import (
	"fmt"
	"time"
)

// DateFilter selects responses by relative submission date.
type DateFilter string

const (
	FilterAll       DateFilter = "all"
	FilterToday     DateFilter = "today"
	FilterYesterday DateFilter = "yesterday"
	FilterThisWeek  DateFilter = "thisWeek"
)

// ParseDateFilter accepts the four filter names; empty means all.
func ParseDateFilter(s string) (DateFilter, error) {
	switch f := DateFilter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterYesterday, FilterThisWeek:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrValidation, s)
	}
}

// Bounds returns the half-open window [start, end) for the filter evaluated at
// now in now's location. A nil bound is open.
func (f DateFilter) Bounds(now time.Time) (start, end *time.Time) {
	midnight := StartOfDay(now)

	switch f {
	case FilterToday:
		return &midnight, nil
	case FilterYesterday:
		yesterday := midnight.AddDate(0, 0, -1)
		return &yesterday, &midnight
	case FilterThisWeek:
		monday := StartOfWeek(now)
		return &monday, nil
	default:
		return nil, nil
	}
}

// Match reports whether t falls into the filter window.
func (f DateFilter) Match(t, now time.Time) bool {
	start, end := f.Bounds(now)
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && !t.Before(*end) {
		return false
	}
	return true
}

// FilterResponses keeps the responses whose submission time matches f.
func FilterResponses(responses []Response, f DateFilter, now time.Time) []Response {
	out := make([]Response, 0, len(responses))
	for _, r := range responses {
		if f.Match(r.SubmittedAt, now) {
			out = append(out, r)
		}
	}
	return out
}

// StartOfDay is local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek is local midnight of the most recent Monday; on Sunday that is
// six days back.
func StartOfWeek(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return StartOfDay(t).AddDate(0, 0, -offset)
}
