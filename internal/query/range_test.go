package query

import (
	"testing"
	"time"
)

func TestParseIntRange(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		low, high  int
		begin, end int
	}{
		{"open low on priority", "~10", PriorityLow, PriorityHigh, 1, 10},
		{"open low on percent", "~10", PercentLow, PercentHigh, 0, 10},
		{"open high on priority", "5~", PriorityLow, PriorityHigh, 5, 1000},
		{"reversed bounds reorder", "3~1", PriorityLow, PriorityHigh, 1, 3},
		{"exact", "7", PriorityLow, PriorityHigh, 7, 7},
		{"span", "2~8", PriorityLow, PriorityHigh, 2, 8},
		{"garbage falls back", "x", PriorityLow, PriorityHigh, 1, 1000},
		{"half garbage", "x~8", PriorityLow, PriorityHigh, 1, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			begin, end := ParseIntRange(tt.in, tt.low, tt.high)
			if begin != tt.begin || end != tt.end {
				t.Errorf("ParseIntRange(%q) = (%d,%d), want (%d,%d)", tt.in, begin, end, tt.begin, tt.end)
			}
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	utc := time.UTC
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, utc)

	t.Run("bare date spans the whole day", func(t *testing.T) {
		begin, end := ParseTimeRange("2024-06-01", now, utc)
		if !begin.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, utc)) {
			t.Errorf("begin = %v", begin)
		}
		if !end.Equal(time.Date(2024, 6, 1, 23, 59, 59, 0, utc)) {
			t.Errorf("end = %v, want last second of the day", end)
		}
	})

	t.Run("open low falls back to origin", func(t *testing.T) {
		begin, end := ParseTimeRange("~2024-06-01", now, utc)
		if !begin.Equal(rangeOrigin) {
			t.Errorf("begin = %v, want origin", begin)
		}
		if !end.Equal(time.Date(2024, 6, 1, 23, 59, 59, 0, utc)) {
			t.Errorf("end = %v", end)
		}
	})

	t.Run("open high falls back to reference clock", func(t *testing.T) {
		begin, end := ParseTimeRange("2024-06-01~", now, utc)
		if !begin.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, utc)) {
			t.Errorf("begin = %v", begin)
		}
		if !end.Equal(now) {
			t.Errorf("end = %v, want reference clock", end)
		}
	})

	t.Run("unparseable sides fall back", func(t *testing.T) {
		begin, end := ParseTimeRange("whenever", now, utc)
		if !begin.Equal(rangeOrigin) || !end.Equal(now) {
			t.Errorf("got (%v, %v), want (origin, now)", begin, end)
		}
	})

	// Query terms are lowercased wholesale before range parsing, so
	// the zulu form arrives with a lowercase t and z.
	t.Run("lowercased zulu bound is honored", func(t *testing.T) {
		begin, end := ParseTimeRange("2024-06-01t12:00:00z~", now, utc)
		if !begin.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, utc)) {
			t.Errorf("begin = %v, want the parsed zulu bound, not the origin fallback", begin)
		}
		if !end.Equal(now) {
			t.Errorf("end = %v, want reference clock", end)
		}
	})

	t.Run("reversed bounds reorder", func(t *testing.T) {
		begin, end := ParseTimeRange("2024-06-10 08:00~2024-06-01 08:00", now, utc)
		if begin.After(end) {
			t.Errorf("unordered result (%v, %v)", begin, end)
		}
		if !begin.Equal(time.Date(2024, 6, 1, 8, 0, 0, 0, utc)) {
			t.Errorf("begin = %v", begin)
		}
	})
}
