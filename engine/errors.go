/*
errors.go - Centralized error types for the calculation engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; the structured types carry
  the offending values for user-facing messages.

ERROR CATEGORIES:
  1. Validation errors - input outside the documented domain
  2. Reference errors - pre-resolved entity lookups that failed upstream
  3. Ledger errors - payment persistence failures

PROPAGATION POLICY:
  Every calculation validates its own inputs and fails fast with a
  specific kind. Validation failures are always recoverable by the
  caller; nothing in this package is fatal. A failure for one staff
  member or student never aborts calculations for the others - that
  isolation is enforced in the school services.

SEE ALSO:
  - payroll.go, billing.go, attendance.go: produce these errors
  - school: maps them to per-record failures
  - api: maps them to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidHours is returned when worked hours are negative or above 24.
	ErrInvalidHours = errors.New("invalid hours: must be within [0, 24]")

	// ErrInvalidPositionRate is returned when a position's rate is negative.
	ErrInvalidPositionRate = errors.New("invalid position rate: must be >= 0")

	// ErrInvalidEnrollmentDate is returned when an enrollment date is missing
	// or unparseable.
	ErrInvalidEnrollmentDate = errors.New("invalid enrollment date")

	// ErrUnknownPaymentType is returned for a value outside {monthly, anniversary}.
	ErrUnknownPaymentType = errors.New("unknown payment type")

	// ErrUnknownPositionType is returned for a value outside {hourly, monthly}.
	ErrUnknownPositionType = errors.New("unknown position type")

	// ErrStaffNotFound is returned when a staff reference does not resolve.
	ErrStaffNotFound = errors.New("staff member not found")

	// ErrStudentNotFound is returned when a student reference does not resolve.
	ErrStudentNotFound = errors.New("student not found")

	// ErrAttendanceNotFound is returned when editing an attendance record
	// that does not exist. The staff member may well exist; the (staff, date)
	// row does not.
	ErrAttendanceNotFound = errors.New("attendance record not found")

	// ErrDuplicateIdempotencyKey is returned when a payment with the same
	// idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidHoursError reports worked hours outside [0, 24].
type InvalidHoursError struct {
	StaffID StaffID
	Date    Date
	Hours   decimal.Decimal
}

func (e *InvalidHoursError) Error() string {
	return fmt.Sprintf("invalid hours %v for %s on %s: must be within [0, 24]",
		e.Hours, e.StaffID, e.Date)
}

func (e *InvalidHoursError) Unwrap() error { return ErrInvalidHours }

// InvalidPositionRateError reports a negative pay rate.
type InvalidPositionRateError struct {
	PositionID PositionID
	Rate       Money
}

func (e *InvalidPositionRateError) Error() string {
	return fmt.Sprintf("invalid rate %v for position %s: must be >= 0", e.Rate, e.PositionID)
}

func (e *InvalidPositionRateError) Unwrap() error { return ErrInvalidPositionRate }

// InvalidEnrollmentDateError reports a missing or unparseable enrollment date.
type InvalidEnrollmentDateError struct {
	Value string
	Cause error
}

func (e *InvalidEnrollmentDateError) Error() string {
	if e.Value == "" {
		return "invalid enrollment date: missing"
	}
	return fmt.Sprintf("invalid enrollment date %q", e.Value)
}

func (e *InvalidEnrollmentDateError) Unwrap() error { return ErrInvalidEnrollmentDate }

// UnknownPaymentTypeError reports a payment type outside the closed enum.
type UnknownPaymentTypeError struct {
	Value string
}

func (e *UnknownPaymentTypeError) Error() string {
	return fmt.Sprintf("unknown payment type %q (want %q or %q)",
		e.Value, PaymentMonthly, PaymentAnniversary)
}

func (e *UnknownPaymentTypeError) Unwrap() error { return ErrUnknownPaymentType }

// UnknownPositionTypeError reports a position type outside the closed enum.
type UnknownPositionTypeError struct {
	Value string
}

func (e *UnknownPositionTypeError) Error() string {
	return fmt.Sprintf("unknown position type %q (want %q or %q)",
		e.Value, PositionHourly, PositionMonthly)
}

func (e *UnknownPositionTypeError) Unwrap() error { return ErrUnknownPositionType }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// and the caller can recover (e.g., reject a form submission).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrInvalidPositionRate) ||
		errors.Is(err, ErrInvalidEnrollmentDate) ||
		errors.Is(err, ErrUnknownPaymentType) ||
		errors.Is(err, ErrUnknownPositionType) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates an unresolved reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrAttendanceNotFound)
}
