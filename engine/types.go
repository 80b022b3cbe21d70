/*
Package engine provides the core school billing and payroll calculations.

PURPOSE:
  This package contains the pure calculation rules for a school
  administration system: summing attendance into monthly hours, deriving
  a staff member's payable salary from their position, deriving a
  student's next payment deadline from their billing cycle, and applying
  payments against a student balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A fixed-point currency amount (minor-unit agnostic)
  - Position: A pay policy (hourly wage or fixed monthly salary)
  - AttendanceRecord: One staff member's worked hours on one date
  - Payment: An immutable ledger entry with a balance snapshot

DESIGN PRINCIPLES:
  1. Purity: Every calculation is a deterministic function of its inputs
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Defensive validation: Calculations never trust their callers
  4. Immutability: Payments are never modified, only appended

USAGE:
  total := engine.AggregateMonthlyHours(records, "staff-1", 2024, time.June)
  pay, err := engine.PayrollCalculator{}.Calculate(position, total)

SEE ALSO:
  - date.go: Calendar dates and clamped month arithmetic
  - payroll.go: Salary derivation rules
  - billing.go: Payment-deadline derivation
  - ledger.go: Payment application and the append-only ledger
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point currency amount
// =============================================================================

// Money is a currency amount. The unit (so'm, cents, whole units) is the
// caller's convention; the engine never converts between units.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money               { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money               { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money     { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                      { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool                { return m.Value.IsNegative() }
func (m Money) IsZero() bool                    { return m.Value.IsZero() }
func (m Money) IsPositive() bool                { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool        { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool           { return m.Value.LessThan(o.Value) }
func (m Money) Equal(o Money) bool              { return m.Value.Equal(o.Value) }
func (m Money) String() string                  { return m.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type StaffID string
type PositionID string
type PaymentID string

// =============================================================================
// POSITION - Pay policy (hourly wage vs. fixed monthly salary)
// =============================================================================

type PositionType string

const (
	// PositionHourly: Rate is a per-hour wage; pay = hours worked x rate.
	PositionHourly PositionType = "hourly"

	// PositionMonthly: Rate is a fixed monthly salary.
	PositionMonthly PositionType = "monthly"
)

// ParsePositionType validates a position type string.
func ParsePositionType(s string) (PositionType, error) {
	switch PositionType(s) {
	case PositionHourly, PositionMonthly:
		return PositionType(s), nil
	default:
		return "", &UnknownPositionTypeError{Value: s}
	}
}

// Position is a named pay policy. Staff members reference a Position;
// changing its Rate changes future calculations for everyone referencing it.
type Position struct {
	ID   PositionID
	Name string
	Type PositionType
	Rate Money
}

// Validate checks the Position invariants: a known type and a non-negative rate.
func (p Position) Validate() error {
	if _, err := ParsePositionType(string(p.Type)); err != nil {
		return err
	}
	if p.Rate.IsNegative() {
		return &InvalidPositionRateError{PositionID: p.ID, Rate: p.Rate}
	}
	return nil
}

// =============================================================================
// BILLING CYCLE - How a student's payment deadline recurs
// =============================================================================

type PaymentType string

const (
	// PaymentMonthly: Due on the 1st of each calendar month.
	PaymentMonthly PaymentType = "monthly"

	// PaymentAnniversary: Due on the enrollment day-of-month, every month.
	PaymentAnniversary PaymentType = "anniversary"
)

// ParsePaymentType validates a payment type string. There is no silent
// default: an unrecognized value is an error.
func ParsePaymentType(s string) (PaymentType, error) {
	switch PaymentType(s) {
	case PaymentMonthly, PaymentAnniversary:
		return PaymentType(s), nil
	default:
		return "", &UnknownPaymentTypeError{Value: s}
	}
}

// =============================================================================
// ATTENDANCE RECORD - One day's worked hours for one staff member
// =============================================================================

type AttendanceRecord struct {
	ID      string
	StaffID StaffID
	Date    Date
	Hours   decimal.Decimal
}

// =============================================================================
// PAYMENT - Immutable ledger entry
// =============================================================================

// Payment records one ledger entry for a student. BalanceAfter is the
// student's balance snapshot immediately after this payment, computed at
// recording time and never recalculated.
type Payment struct {
	ID           PaymentID
	StudentID    StudentID
	Amount       Money // positive for funds received
	Note         string
	Date         Date
	BalanceAfter Money

	// IdempotencyKey guards against double submission (retries, double-clicks).
	IdempotencyKey string

	// Audit fields
	CreatedBy string
	CreatedAt Date
}
