package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounterMap_Merge(t *testing.T) {
	tests := []struct {
		name  string
		base  CounterMap
		other CounterMap
		want  CounterMap
	}{
		{
			name:  "sums matching keys and unions new keys",
			base:  CounterMap{"web": 3, "api": 1},
			other: CounterMap{"web": 2, "widget": 5},
			want:  CounterMap{"web": 5, "api": 1, "widget": 5},
		},
		{
			name:  "merge into nil map",
			base:  nil,
			other: CounterMap{"web": 2},
			want:  CounterMap{"web": 2},
		},
		{
			name:  "merge of empty other keeps base",
			base:  CounterMap{"web": 3},
			other: CounterMap{},
			want:  CounterMap{"web": 3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.base.Merge(tc.other))
		})
	}
}

func TestCounterMap_Increment(t *testing.T) {
	m := CounterMap{}
	m.Increment("desktop")
	m.Increment("desktop")
	m.Increment("")

	assert.Equal(t, CounterMap{"desktop": 2, "unknown": 1}, m)
	assert.Equal(t, int64(3), m.Total())
}

func TestDayOf_TruncatesToUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ts := time.Date(2026, 8, 29, 4, 30, 0, 0, loc) // 2026-08-28T20:30Z

	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), DayOf(ts))
}

func TestViewEvent_Authenticated(t *testing.T) {
	anon := ViewEventModel{}
	assert.False(t, anon.Authenticated())

	empty := ""
	anon.ViewerUserID = &empty
	assert.False(t, anon.Authenticated())

	viewer := "user-1"
	authed := ViewEventModel{ViewerUserID: &viewer}
	assert.True(t, authed.Authenticated())
}
