package util

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	got, ok := ParseDay("2025-08-13")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
	if _, ok := ParseDay(""); ok {
		t.Fatalf("empty string must not parse")
	}
	if _, ok := ParseDay("13/08/2025"); ok {
		t.Fatalf("wrong layout must not parse")
	}
}

func TestDayWindow(t *testing.T) {
	now := time.Date(2025, 8, 27, 15, 0, 0, 0, time.UTC)
	from, to := DayWindow(now, 14)
	if from != "2025-08-13" || to != "2025-08-27" {
		t.Fatalf("unexpected window %s..%s", from, to)
	}
}
