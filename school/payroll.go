/*
payroll.go - Monthly payroll runs across the staff roster

PURPOSE:
  Glues the pure calculations together for one month: load a staff
  member's attendance, aggregate it, derive the payable amount from their
  position. A run covers the whole roster and isolates per-staff failures
  so one bad position never aborts payroll for everyone else.

CLOCK:
  The service carries an injected clock so "current month" payroll can be
  tested against fixed dates.
*/
package school

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maktab/school-engine/engine"
)

// StaffPayroll is one staff member's payroll result for one month.
type StaffPayroll struct {
	StaffID    engine.StaffID
	FullName   string
	Position   engine.Position
	Year       int
	Month      time.Month
	TotalHours decimal.Decimal
	Payable    engine.Money
}

// PayrollFailure records a staff member skipped during a run.
type PayrollFailure struct {
	StaffID engine.StaffID
	Err     error
}

// PayrollRun is the result of running payroll for a whole month.
type PayrollRun struct {
	Year         int
	Month        time.Month
	Entries      []StaffPayroll
	TotalPayable engine.Money
	Failures     []PayrollFailure
}

// PayrollService derives monthly pay from stored attendance.
type PayrollService struct {
	Staff      StaffStore
	Attendance engine.AttendanceStore
	Calc       engine.PayrollCalculator

	// Clock supplies "now" for current-month calculations. Defaults to
	// time.Now when nil.
	Clock func() time.Time
}

func NewPayrollService(staff StaffStore, attendance engine.AttendanceStore, calc engine.PayrollCalculator) *PayrollService {
	return &PayrollService{Staff: staff, Attendance: attendance, Calc: calc, Clock: time.Now}
}

func (s *PayrollService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// MonthlyPay computes one staff member's payroll for a month.
// Fails with engine.ErrStaffNotFound when the reference does not resolve.
func (s *PayrollService) MonthlyPay(ctx context.Context, staffID engine.StaffID, year int, month time.Month) (StaffPayroll, error) {
	member, err := s.Staff.GetStaff(ctx, staffID)
	if err != nil {
		return StaffPayroll{}, err
	}
	if member == nil {
		return StaffPayroll{}, engine.ErrStaffNotFound
	}
	return s.payFor(ctx, *member, year, month)
}

// CurrentMonthPay computes payroll for the month the clock is in.
func (s *PayrollService) CurrentMonthPay(ctx context.Context, staffID engine.StaffID) (StaffPayroll, error) {
	now := s.now()
	return s.MonthlyPay(ctx, staffID, now.Year(), now.Month())
}

// RunMonth computes payroll for every staff member. Per-staff errors are
// collected as Failures; they never abort the rest of the run.
func (s *PayrollService) RunMonth(ctx context.Context, year int, month time.Month) (PayrollRun, error) {
	roster, err := s.Staff.ListStaff(ctx)
	if err != nil {
		return PayrollRun{}, err
	}

	run := PayrollRun{Year: year, Month: month}
	for _, member := range roster {
		entry, err := s.payFor(ctx, member, year, month)
		if err != nil {
			run.Failures = append(run.Failures, PayrollFailure{StaffID: member.ID, Err: err})
			continue
		}
		run.Entries = append(run.Entries, entry)
		run.TotalPayable = run.TotalPayable.Add(entry.Payable)
	}
	return run, nil
}

func (s *PayrollService) payFor(ctx context.Context, member StaffMember, year int, month time.Month) (StaffPayroll, error) {
	records, err := s.Attendance.RecordsInMonth(ctx, member.ID, year, month)
	if err != nil {
		return StaffPayroll{}, err
	}

	total := engine.AggregateMonthlyHours(records, member.ID, year, month)
	payable, err := s.Calc.Calculate(member.Position, total)
	if err != nil {
		return StaffPayroll{}, err
	}

	return StaffPayroll{
		StaffID:    member.ID,
		FullName:   member.FullName,
		Position:   member.Position,
		Year:       year,
		Month:      month,
		TotalHours: total,
		Payable:    payable,
	}, nil
}
