package core

import (
	"reflect"
	"testing"
)

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2025-08-01", "2025-08-01", 1}, // zero-length range floors to 1
		{"2025-08-01", "2025-08-02", 2},
		{"2025-08-01", "2025-08-31", 31},
		{"2025-01-01", "2025-12-31", 365},
		{"2025-08-31", "2025-08-01", 1}, // inverted range floors to 1
		{"", "2025-08-01", 1},
		{"bogus", "2025-08-01", 1},
	}
	for i, tc := range cases {
		if got := DaysBetween(tc.start, tc.end); got != tc.want {
			t.Fatalf("case %d (%s..%s): expected %d, got %d", i, tc.start, tc.end, tc.want, got)
		}
	}
}

func TestAggregate(t *testing.T) {
	s := Aggregate(sampleExpenses(), "2025-08-01", "2025-08-31")
	if s.Total.Cents != 33800 {
		t.Fatalf("expected total 33800, got %d", s.Total.Cents)
	}
	if s.Count != 3 {
		t.Fatalf("expected count 3, got %d", s.Count)
	}
	wantAvg := 338.0 / 31.0
	if s.AvgPerDay != wantAvg {
		t.Fatalf("expected avg %v, got %v", wantAvg, s.AvgPerDay)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, "2025-08-01", "2025-08-01")
	if s.Total.Cents != 0 || s.Count != 0 || s.AvgPerDay != 0 {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}

func TestBucketTotals(t *testing.T) {
	days := []DayTotal{
		{"2025-01-15", Money{Cents: 100}},
		{"2025-02-01", Money{Cents: 200}},
		{"2025-02-20", Money{Cents: 300}},
		{"2025-04-02", Money{Cents: 400}},
		{"2026-01-01", Money{Cents: 500}},
	}

	cases := []struct {
		period string
		want   []PeriodTotal
	}{
		{PeriodDay, []PeriodTotal{
			{"2025-01-15", Money{Cents: 100}},
			{"2025-02-01", Money{Cents: 200}},
			{"2025-02-20", Money{Cents: 300}},
			{"2025-04-02", Money{Cents: 400}},
			{"2026-01-01", Money{Cents: 500}},
		}},
		{PeriodMonth, []PeriodTotal{
			{"2025-01-01", Money{Cents: 100}},
			{"2025-02-01", Money{Cents: 500}},
			{"2025-04-01", Money{Cents: 400}},
			{"2026-01-01", Money{Cents: 500}},
		}},
		{PeriodQuarter, []PeriodTotal{
			{"2025-01-01", Money{Cents: 600}},
			{"2025-04-01", Money{Cents: 400}},
			{"2026-01-01", Money{Cents: 500}},
		}},
		{PeriodYear, []PeriodTotal{
			{"2025-01-01", Money{Cents: 1000}},
			{"2026-01-01", Money{Cents: 500}},
		}},
	}
	for i, tc := range cases {
		got := BucketTotals(tc.period, days)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("case %d (%s): expected %+v, got %+v", i, tc.period, tc.want, got)
		}
	}
}
