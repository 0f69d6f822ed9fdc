package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFilter(t *testing.T) {
	for _, s := range []string{"all", "today", "yesterday", "thisWeek"} {
		f, err := ParseDateFilter(s)
		require.NoError(t, err)
		assert.Equal(t, DateFilter(s), f)
	}

	f, err := ParseDateFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseDateFilter("lastYear")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestStartOfWeek(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"monday", time.Date(2026, 10, 19, 15, 0, 0, 0, loc), time.Date(2026, 10, 19, 0, 0, 0, 0, loc)},
		{"wednesday", time.Date(2026, 10, 21, 8, 30, 0, 0, loc), time.Date(2026, 10, 19, 0, 0, 0, 0, loc)},
		{"sunday goes six days back", time.Date(2026, 10, 25, 23, 59, 0, 0, loc), time.Date(2026, 10, 19, 0, 0, 0, 0, loc)},
		{"across month", time.Date(2026, 11, 1, 12, 0, 0, 0, loc), time.Date(2026, 10, 26, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(StartOfWeek(tt.now)), "got %s", StartOfWeek(tt.now))
		})
	}
}

func TestDateFilter_Match(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 10, 21, 14, 0, 0, 0, loc) // Wednesday
	midnight := time.Date(2026, 10, 21, 0, 0, 0, 0, loc)

	at := func(d time.Duration) time.Time { return midnight.Add(d) }

	tests := []struct {
		filter DateFilter
		t      time.Time
		want   bool
	}{
		{FilterAll, at(-1000 * time.Hour), true},

		{FilterToday, midnight, true},
		{FilterToday, at(-time.Nanosecond), false},
		{FilterToday, at(20 * time.Hour), true},

		{FilterYesterday, at(-24 * time.Hour), true},
		{FilterYesterday, at(-time.Nanosecond), true},
		{FilterYesterday, midnight, false},
		{FilterYesterday, at(-24*time.Hour - time.Nanosecond), false},

		{FilterThisWeek, at(-48 * time.Hour), true}, // Monday midnight
		{FilterThisWeek, at(-48*time.Hour - time.Second), false},
		{FilterThisWeek, at(2 * time.Hour), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.filter.Match(tt.t, now), "%s at %s", tt.filter, tt.t)
	}

	t.Run("instants from other zones compare by instant", func(t *testing.T) {
		utc := midnight.UTC() // 05:00 UTC
		assert.True(t, FilterToday.Match(utc, now))
		assert.False(t, FilterYesterday.Match(utc, now))
	})
}

func TestFilterResponses(t *testing.T) {
	now := time.Date(2026, 10, 21, 14, 0, 0, 0, time.UTC)

	responses := []Response{
		{ID: "today", SubmittedAt: now.Add(-time.Hour)},
		{ID: "yesterday", SubmittedAt: now.Add(-20 * time.Hour)},
		{ID: "last-week", SubmittedAt: now.Add(-8 * 24 * time.Hour)},
	}

	ids := func(rs []Response) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"today", "yesterday", "last-week"}, ids(FilterResponses(responses, FilterAll, now)))
	assert.Equal(t, []string{"today"}, ids(FilterResponses(responses, FilterToday, now)))
	assert.Equal(t, []string{"yesterday"}, ids(FilterResponses(responses, FilterYesterday, now)))
	assert.Equal(t, []string{"today", "yesterday"}, ids(FilterResponses(responses, FilterThisWeek, now)))
}
