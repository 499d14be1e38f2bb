package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-03-02T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2026-03-02")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 2 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatalf("expected not ok for empty")
	}
	if _, ok := ParseTime("not-a-time"); ok {
		t.Fatalf("expected not ok for garbage")
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 3, 2, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("42", 7); got != 42 {
		t.Fatalf("unexpected %d", got)
	}
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("unexpected %d", got)
	}
	if got := ParseIntDefault("abc", 7); got != 7 {
		t.Fatalf("unexpected %d", got)
	}
}

func TestIsTradingDay(t *testing.T) {
	mon := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sat := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	if !IsTradingDay(mon) {
		t.Fatalf("monday should be a trading day")
	}
	if IsTradingDay(sat) {
		t.Fatalf("saturday should not be a trading day")
	}
}

func TestAddTradingDaysSkipsWeekend(t *testing.T) {
	// Monday + 5 trading days lands on the following Monday.
	mon := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	got := AddTradingDays(mon, 5)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestAddTradingDaysFromFriday(t *testing.T) {
	fri := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	got := AddTradingDays(fri, 1)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}

func TestTruncateDay(t *testing.T) {
	ts := time.Date(2026, 3, 2, 15, 30, 45, 0, time.UTC)
	got := TruncateDay(ts)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
}
