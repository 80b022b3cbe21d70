package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/maktab/school-engine/engine"
)

// =============================================================================
// MONTH ARITHMETIC TESTS
// =============================================================================

func TestAddMonths_ClampsToLastDay(t *testing.T) {
	// GIVEN: January 31
	// WHEN: Adding one month
	// THEN: February 28, not March 2/3 (the time.AddDate rollover)

	d := engine.NewDate(2023, time.January, 31).AddMonths(1)
	if want := engine.NewDate(2023, time.February, 28); !d.Equal(want) {
		t.Errorf("expected %s, got %s", want, d)
	}
}

func TestAddMonths_LeapFebruary(t *testing.T) {
	d := engine.NewDate(2024, time.January, 31).AddMonths(1)
	if want := engine.NewDate(2024, time.February, 29); !d.Equal(want) {
		t.Errorf("expected %s, got %s", want, d)
	}
}

func TestAddMonths_AnchorArithmetic_NoDecay(t *testing.T) {
	// GIVEN: A day-31 anchor
	// WHEN: Adding 1, 2, 3 months from the SAME anchor
	// THEN: Feb clamps but Mar and Apr recover the original day

	anchor := engine.NewDate(2023, time.January, 31)

	cases := []struct {
		months int
		want   engine.Date
	}{
		{1, engine.NewDate(2023, time.February, 28)},
		{2, engine.NewDate(2023, time.March, 31)},
		{3, engine.NewDate(2023, time.April, 30)},
		{12, engine.NewDate(2024, time.January, 31)},
	}
	for _, tc := range cases {
		got := anchor.AddMonths(tc.months)
		if !got.Equal(tc.want) {
			t.Errorf("+%d months: expected %s, got %s", tc.months, tc.want, got)
		}
	}
}

func TestAddMonths_YearBoundary(t *testing.T) {
	d := engine.NewDate(2024, time.November, 15).AddMonths(3)
	if want := engine.NewDate(2025, time.February, 15); !d.Equal(want) {
		t.Errorf("expected %s, got %s", want, d)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2023, time.February, 28},
		{2024, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tc := range cases {
		if got := engine.DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("%v %d: expected %d days, got %d", tc.month, tc.year, tc.want, got)
		}
	}
}

// =============================================================================
// PARSING AND COMPARISON TESTS
// =============================================================================

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := engine.ParseDate("2024-06-20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-06-20" {
		t.Errorf("round trip mismatch: %s", d)
	}
}

func TestParseDate_Malformed_IsEnrollmentDateError(t *testing.T) {
	// GIVEN: An unparseable date string
	// WHEN: Parsing
	// THEN: The failure classifies as an invalid enrollment date

	_, err := engine.ParseDate("20/06/2024")
	if !errors.Is(err, engine.ErrInvalidEnrollmentDate) {
		t.Errorf("expected ErrInvalidEnrollmentDate, got %v", err)
	}
}

func TestDate_ComparisonIgnoresTimeOfDay(t *testing.T) {
	// GIVEN: The same calendar date at different times of day
	// WHEN: Comparing
	// THEN: They are equal - day granularity throughout

	morning := engine.DateOf(time.Date(2024, time.June, 20, 8, 0, 0, 0, time.UTC))
	evening := engine.DateOf(time.Date(2024, time.June, 20, 23, 59, 0, 0, time.UTC))
	if !morning.Equal(evening) {
		t.Errorf("expected %s == %s", morning, evening)
	}
}

func TestPeriod_MonthOf_Contains(t *testing.T) {
	june := engine.MonthOf(2024, time.June)

	if !june.Contains(engine.NewDate(2024, time.June, 1)) {
		t.Error("expected June 1 inside the June period")
	}
	if !june.Contains(engine.NewDate(2024, time.June, 30)) {
		t.Error("expected June 30 inside the June period")
	}
	if june.Contains(engine.NewDate(2024, time.May, 31)) {
		t.Error("expected May 31 outside the June period")
	}
	if june.Contains(engine.NewDate(2024, time.July, 1)) {
		t.Error("expected July 1 outside the June period")
	}
}
