package recur

import (
	"errors"
	"testing"
	"time"
)

func intp(n int) *int { return &n }

func TestParseRecognition(t *testing.T) {
	for _, expr := range []string{"", "every tuesday", "often", "frequency high"} {
		r, err := Parse(expr, time.UTC)
		if err != nil {
			t.Errorf("Parse(%q) err = %v, want nil", expr, err)
		}
		if r != nil {
			t.Errorf("Parse(%q) = %+v, want nil rule", expr, r)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, expr := range []string{
		"freq=daily;count",
		"freq=daily;interval==2",
		"freq=daily;bogus",
	} {
		if _, err := Parse(expr, time.UTC); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformed", expr, err)
		}
	}
}

func TestParseFields(t *testing.T) {
	until := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		expr string
		want Rule
	}{
		{
			name: "basic daily",
			expr: "freq=daily;interval=2;count=5",
			want: Rule{Freq: Daily, Interval: 2, Count: 5},
		},
		{
			name: "case insensitive keys and values",
			expr: "FREQ=Weekly;BYWEEKDAY=mo",
			want: Rule{Freq: Weekly, ByWeekday: "MO"},
		},
		{
			name: "until date",
			expr: "freq=monthly;until=2024-06-01",
			want: Rule{Freq: Monthly, Until: &until},
		},
		{
			name: "until in zulu form",
			expr: "freq=daily;until=2024-06-01T00:00Z",
			want: Rule{Freq: Daily, Until: &until},
		},
		{
			name: "zulu date list",
			expr: "freq=daily;date=2024-06-01T00:00Z",
			want: Rule{Freq: Daily, Dates: []time.Time{until}},
		},
		{
			name: "valid by-constraints",
			expr: "freq=yearly;byhour=0;bymonth=12;bymonthday=31;byyearday=366;byweekno=53;bysetpos=-1",
			want: Rule{Freq: Yearly, ByHour: intp(0), ByMonth: 12, ByMonthDay: 31,
				ByYearDay: 366, ByWeekNo: 53, BySetPos: intp(-1)},
		},
		{
			name: "invalid values normalize to absent",
			expr: "freq=fortnightly;byhour=24;byweekday=xx;bymonth=13;bymonthday=0;byyearday=400;byweekno=54;count=abc",
			want: Rule{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr, time.UTC)
			if err != nil {
				t.Fatalf("Parse(%q) err = %v", tt.expr, err)
			}
			if got == nil {
				t.Fatalf("Parse(%q) = nil rule", tt.expr)
			}
			assertRuleEqual(t, got, &tt.want)
		})
	}
}

func TestParseDateLists(t *testing.T) {
	r, err := Parse("freq=daily;date=2024-03-05,2024-03-01,notadate;except=2024-03-03", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Dates) != 2 {
		t.Fatalf("Dates = %v, want 2 entries (bad entry dropped)", r.Dates)
	}
	if !r.Dates[0].Before(r.Dates[1]) {
		t.Errorf("Dates not sorted ascending: %v", r.Dates)
	}
	if len(r.Excepts) != 1 {
		t.Errorf("Excepts = %v, want 1 entry", r.Excepts)
	}
}

func TestStringRoundTrip(t *testing.T) {
	exprs := []string{
		"freq=daily;interval=2;count=5",
		"freq=weekly;byweekday=fr;until=2025-01-01 09:30",
		"freq=monthly;bymonthday=15;byhour=8",
		"freq=yearly;bymonth=7;bysetpos=-2;date=2024-05-05 12:00,2024-06-06",
		"freq=daily;except=2024-04-01",
	}
	for _, expr := range exprs {
		first, err := Parse(expr, time.UTC)
		if err != nil {
			t.Fatalf("Parse(%q) err = %v", expr, err)
		}
		second, err := Parse(first.String(), time.UTC)
		if err != nil {
			t.Fatalf("reparse of %q err = %v", first.String(), err)
		}
		assertRuleEqual(t, second, first)
	}
}

func assertRuleEqual(t *testing.T, got, want *Rule) {
	t.Helper()
	if got.Freq != want.Freq {
		t.Errorf("Freq = %q, want %q", got.Freq, want.Freq)
	}
	if got.Interval != want.Interval {
		t.Errorf("Interval = %d, want %d", got.Interval, want.Interval)
	}
	if got.Count != want.Count {
		t.Errorf("Count = %d, want %d", got.Count, want.Count)
	}
	if (got.Until == nil) != (want.Until == nil) {
		t.Errorf("Until = %v, want %v", got.Until, want.Until)
	} else if got.Until != nil && !got.Until.Equal(*want.Until) {
		t.Errorf("Until = %v, want %v", got.Until, want.Until)
	}
	if (got.ByHour == nil) != (want.ByHour == nil) {
		t.Errorf("ByHour = %v, want %v", got.ByHour, want.ByHour)
	} else if got.ByHour != nil && *got.ByHour != *want.ByHour {
		t.Errorf("ByHour = %d, want %d", *got.ByHour, *want.ByHour)
	}
	if got.ByWeekday != want.ByWeekday {
		t.Errorf("ByWeekday = %q, want %q", got.ByWeekday, want.ByWeekday)
	}
	if got.ByMonth != want.ByMonth || got.ByMonthDay != want.ByMonthDay ||
		got.ByYearDay != want.ByYearDay || got.ByWeekNo != want.ByWeekNo {
		t.Errorf("by-constraints = %d/%d/%d/%d, want %d/%d/%d/%d",
			got.ByMonth, got.ByMonthDay, got.ByYearDay, got.ByWeekNo,
			want.ByMonth, want.ByMonthDay, want.ByYearDay, want.ByWeekNo)
	}
	if (got.BySetPos == nil) != (want.BySetPos == nil) {
		t.Errorf("BySetPos = %v, want %v", got.BySetPos, want.BySetPos)
	} else if got.BySetPos != nil && *got.BySetPos != *want.BySetPos {
		t.Errorf("BySetPos = %d, want %d", *got.BySetPos, *want.BySetPos)
	}
	if len(got.Dates) != len(want.Dates) {
		t.Errorf("Dates = %v, want %v", got.Dates, want.Dates)
	} else {
		for i := range got.Dates {
			if !got.Dates[i].Equal(want.Dates[i]) {
				t.Errorf("Dates[%d] = %v, want %v", i, got.Dates[i], want.Dates[i])
			}
		}
	}
	if len(got.Excepts) != len(want.Excepts) {
		t.Errorf("Excepts = %v, want %v", got.Excepts, want.Excepts)
	} else {
		for i := range got.Excepts {
			if !got.Excepts[i].Equal(want.Excepts[i]) {
				t.Errorf("Excepts[%d] = %v, want %v", i, got.Excepts[i], want.Excepts[i])
			}
		}
	}
}
