// Package school implements the school administration domain on top of the
// calculation engine: students, staff, positions, payroll runs, payment
// recording, and due-date lookups.
package school

import (
	"errors"
	"fmt"

	"github.com/maktab/school-engine/engine"
)

var (
	// ErrInvalidGrade is returned when a grade is zero or negative.
	ErrInvalidGrade = errors.New("grade must be a positive integer")

	// ErrInvalidScore is returned when a test score is outside [0, 100].
	ErrInvalidScore = errors.New("score must be within [0, 100]")

	// ErrInvalidMonthlyFee is returned when a monthly fee is negative.
	ErrInvalidMonthlyFee = errors.New("monthly fee must be >= 0")
)

// =============================================================================
// DOMAIN ENTITIES
// =============================================================================

// Student carries enrollment and billing attributes. Balance only changes
// through payment application: balance_after = balance_before + amount.
// Negative balance means the student owes; positive means credit.
type Student struct {
	ID             engine.StudentID
	FullName       string
	Grade          int
	EnrollmentDate engine.Date
	MonthlyFee     engine.Money
	Balance        engine.Money
	IsArchived     bool
	PaymentType    engine.PaymentType
}

// Validate checks the Student invariants before persistence.
func (s Student) Validate() error {
	if s.EnrollmentDate.IsZero() {
		return &engine.InvalidEnrollmentDateError{}
	}
	if _, err := engine.ParsePaymentType(string(s.PaymentType)); err != nil {
		return err
	}
	if s.Grade <= 0 {
		return fmt.Errorf("grade %d: %w", s.Grade, ErrInvalidGrade)
	}
	if s.MonthlyFee.IsNegative() {
		return fmt.Errorf("monthly fee %v: %w", s.MonthlyFee, ErrInvalidMonthlyFee)
	}
	return nil
}

// Test is one graded assessment for a grade cohort, labeled by month
// ("June 2025").
type Test struct {
	ID    string
	Month string
	Grade int
}

// Validate checks the Test invariants before persistence.
func (t Test) Validate() error {
	if t.Grade <= 0 {
		return fmt.Errorf("grade %d: %w", t.Grade, ErrInvalidGrade)
	}
	return nil
}

// TestResult is one student's score on a test, in whole points within
// [0, 100]. StudentName is resolved at recording time so results stay
// readable after roster changes.
type TestResult struct {
	ID          string
	TestID      string
	StudentID   engine.StudentID
	StudentName string
	Score       int
}

// Validate checks the TestResult invariants before persistence.
func (r TestResult) Validate() error {
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("score %d for student %s: %w", r.Score, r.StudentID, ErrInvalidScore)
	}
	return nil
}

// Expense is one school expense line on the dashboard.
type Expense struct {
	ID          string
	Date        engine.Date
	Amount      engine.Money
	Description string
}

// StaffMember is a person paid according to a Position. The Position is a
// shared reference, not owned: editing the Position definition retroactively
// changes future calculations for all staff referencing it.
type StaffMember struct {
	ID       engine.StaffID
	FullName string
	Position engine.Position
}
