package engine

import (
	"time"
)

// =============================================================================
// DATE - Calendar date, day granularity, UTC
// =============================================================================

// Date is a calendar date with no time component. All engine calculations
// compare dates at day granularity.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &InvalidEnrollmentDateError{Value: s, Cause: err}
	}
	return DateOf(t), nil
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }
func (d Date) String() string    { return d.Time.Format("2006-01-02") }

// InMonth reports whether the date falls in the given calendar month.
// Only the year and month components are compared; the day is ignored.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.Time.AddDate(0, 0, n)) }

// AddMonths advances the date by n whole months, clamping the day to the
// last valid day of the target month. This is NOT time.AddDate, which rolls
// Jan 31 + 1 month over to Mar 2/3; here Jan 31 + 1 month = Feb 28 (or 29).
// The clamping convention matters for enrollment-anniversary billing and is
// tested explicitly.
func (d Date) AddMonths(n int) Date {
	months := d.Year()*12 + int(d.Month()) - 1 + n
	year := months / 12
	month := time.Month(months%12 + 1)

	day := d.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// =============================================================================
// MONTH HELPERS
// =============================================================================

// DaysInMonth returns the number of days in a calendar month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] date range.
type Period struct {
	Start Date
	End   Date
}

// MonthOf returns the period covering one calendar month.
func MonthOf(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Contains reports whether t falls within [Start, End].
func (p Period) Contains(t Date) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
