/*
attendance.go - Monthly attendance aggregation

PURPOSE:
  Reduces raw attendance records into a per-staff, per-month hours total.
  This is the input to payroll calculation for hourly positions.

DUPLICATE POLICY:
  The surrounding application replaces a day's records wholesale on save,
  which prevents most duplicates but does not guarantee it. The aggregator
  SUMS duplicate (staff, date) records rather than taking the last one.
  This is a deliberate inclusive policy, not a bug: if two records exist
  for the same day, both were submitted as worked hours. The persistence
  layer separately enforces one row per (staff, date) with last-write-wins.

MONTH CONVENTION:
  Months are time.Month (1-12, January = 1) throughout the engine.

SEE ALSO:
  - payroll.go: Consumes the aggregated total
  - store.go: AttendanceStore with replace-by-day batch semantics
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// maxDailyHours bounds a single day's record.
var maxDailyHours = decimal.NewFromInt(24)

// ValidateAttendanceRecord rejects records whose hours fall outside [0, 24].
// This is the validation boundary; AggregateMonthlyHours assumes validated
// input and simply sums.
func ValidateAttendanceRecord(rec AttendanceRecord) error {
	if rec.Hours.IsNegative() || rec.Hours.GreaterThan(maxDailyHours) {
		return &InvalidHoursError{StaffID: rec.StaffID, Date: rec.Date, Hours: rec.Hours}
	}
	return nil
}

// AggregateMonthlyHours sums the hours of all records matching staffID whose
// date falls within the given calendar month (year + month components only;
// the day is ignored for matching). Month is 1-12 (time.Month).
//
// Records for other staff - including orphans left behind by a deleted staff
// member - are ignored. Duplicate (staff, date) records are summed. If no
// records match, the total is zero: that is a valid default, not an error.
//
// Pure reduction; calling it twice with identical inputs yields identical
// results.
func AggregateMonthlyHours(records []AttendanceRecord, staffID StaffID, year int, month time.Month) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		if rec.StaffID != staffID {
			continue
		}
		if !rec.Date.InMonth(year, month) {
			continue
		}
		total = total.Add(rec.Hours)
	}
	return total
}
