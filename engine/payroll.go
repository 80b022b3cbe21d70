/*
payroll.go - Salary derivation from position and attendance

PURPOSE:
  Derives a staff member's payable amount for a month from their Position
  (type + rate) and their aggregated hours for that month.

THE TWO RULES:
  monthly: payable = Rate, unconditionally. A fixed salary does not depend
           on attendance.
  hourly:  payable = totalHours x Rate. No overtime multiplier, no rounding
           beyond decimal precision.

POLICY FLAG:
  Earlier revisions of the source system paid a monthly salary only if the
  employee worked at least one day that month; the final revision pays
  unconditionally. Both behaviors were observed in production, so the rule
  is an explicit policy flag rather than a silent pick:

    RequireAttendanceForMonthly = false (default): always pay the full rate
    RequireAttendanceForMonthly = true:            zero hours => zero pay

SEE ALSO:
  - attendance.go: Produces the totalHours input
  - school: Runs payroll across all staff for a month
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYROLL POLICY
// =============================================================================

// PayrollPolicy selects between observed variants of the monthly-salary rule.
type PayrollPolicy struct {
	// RequireAttendanceForMonthly pays a monthly salary only when the staff
	// member logged at least some hours in the month. Off by default.
	RequireAttendanceForMonthly bool
}

// DefaultPayrollPolicy pays monthly salaries regardless of attendance.
func DefaultPayrollPolicy() PayrollPolicy {
	return PayrollPolicy{RequireAttendanceForMonthly: false}
}

// =============================================================================
// PAYROLL CALCULATOR
// =============================================================================

// PayrollCalculator derives payable amounts. The zero value uses the
// default policy.
type PayrollCalculator struct {
	Policy PayrollPolicy
}

// Calculate returns the payable amount for one staff member for one month.
//
// Inputs are validated here even though upstream aggregation should already
// have done so - the calculator does not trust its caller. A negative rate
// fails with ErrInvalidPositionRate, negative hours with ErrInvalidHours,
// and an unrecognized position type with ErrUnknownPositionType.
//
// Pure function of (Position, totalHours); no hidden state.
func (pc PayrollCalculator) Calculate(pos Position, totalHours decimal.Decimal) (Money, error) {
	if pos.Rate.IsNegative() {
		return Money{}, &InvalidPositionRateError{PositionID: pos.ID, Rate: pos.Rate}
	}
	if totalHours.IsNegative() {
		return Money{}, &InvalidHoursError{Hours: totalHours}
	}

	switch pos.Type {
	case PositionMonthly:
		if pc.Policy.RequireAttendanceForMonthly && totalHours.IsZero() {
			return Money{Value: decimal.Zero}, nil
		}
		return pos.Rate, nil

	case PositionHourly:
		return pos.Rate.Mul(totalHours), nil

	default:
		return Money{}, &UnknownPositionTypeError{Value: string(pos.Type)}
	}
}
