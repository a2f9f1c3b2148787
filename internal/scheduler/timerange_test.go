package scheduler

import (
	"testing"
	"time"
)

func TestOverlapsIsSymmetric(t *testing.T) {
	base := at("2025-06-03", "00:00")
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }

	tests := []struct {
		name       string
		a, b       Range
		wantExpect bool
	}{
		{"disjoint", Range{h(1), h(2)}, Range{h(3), h(4)}, false},
		{"adjacent", Range{h(10), h(12)}, Range{h(12), h(13)}, false},
		{"partial", Range{h(10), h(12)}, Range{h(11), h(13)}, true},
		{"contained", Range{h(8), h(16)}, Range{h(9), h(10)}, true},
		{"identical", Range{h(9), h(10)}, Range{h(9), h(10)}, true},
		{"zero length inside", Range{h(8), h(12)}, Range{h(9), h(9)}, false},
		{"inverted", Range{h(12), h(8)}, Range{h(9), h(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := tt.a.Overlaps(tt.b)
			ba := tt.b.Overlaps(tt.a)
			if ab != ba {
				t.Fatalf("overlap not symmetric: %v vs %v", ab, ba)
			}
			if ab != tt.wantExpect {
				t.Fatalf("Overlaps = %v, want %v", ab, tt.wantExpect)
			}
		})
	}
}

func TestZeroLengthNeverOverlapsItself(t *testing.T) {
	p := at("2025-06-03", "09:00")
	if Overlaps(p, p, p, p) {
		t.Fatal("zero-length range overlapped itself")
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	tests := map[string]string{
		"2025-06-02": "2025-06-02", // Monday
		"2025-06-04": "2025-06-02",
		"2025-06-08": "2025-06-02", // Sunday
		"2025-06-09": "2025-06-09",
	}
	for day, want := range tests {
		got := DayKey(WeekStart(at(day, "15:00"), pht), pht)
		if got != want {
			t.Errorf("WeekStart(%s) = %s, want %s", day, got, want)
		}
	}
}

func TestDayBoundariesFollowLocation(t *testing.T) {
	// 2025-06-02 17:00 UTC is already 2025-06-03 in UTC+8.
	instant := time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC)
	if got := DayKey(instant, pht); got != "2025-06-03" {
		t.Fatalf("DayKey = %s, want 2025-06-03", got)
	}
	if SameDay(instant, date("2025-06-02"), pht) {
		t.Fatal("instant should not share a local day with 2025-06-02")
	}
}

func TestCombineDateClock(t *testing.T) {
	d, err := ParseDate("2025-06-03", pht)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	got, err := CombineDateClock(d, "13:30", pht)
	if err != nil {
		t.Fatalf("CombineDateClock: %v", err)
	}
	if !got.Equal(at("2025-06-03", "13:30")) {
		t.Fatalf("got %v", got)
	}
	if _, err := CombineDateClock(d, "1:3pm", pht); err == nil {
		t.Fatal("expected error for malformed clock")
	}
	if _, err := ParseDate("03/06/2025", pht); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
