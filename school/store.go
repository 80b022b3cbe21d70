/*
store.go - Persistence interfaces consumed by the school services

PURPOSE:
  The services in this package depend on these narrow interfaces, not on a
  concrete database. store/sqlite implements all of them; tests use small
  fakes or the in-memory stores.

ATOMICITY:
  PaymentSink.ApplyPayment is the atomic unit required by the payment
  ledger invariant: the ledger append and the balance update happen
  together or not at all. The SQLite implementation runs both in one
  database transaction.

SEE ALSO:
  - store/sqlite: Production implementation
  - payments.go: The serializing caller
*/
package school

import (
	"context"

	"github.com/maktab/school-engine/engine"
)

// StudentStore persists students.
type StudentStore interface {
	// GetStudent returns nil (no error) when the student does not exist.
	GetStudent(ctx context.Context, id engine.StudentID) (*Student, error)
	ListStudents(ctx context.Context, includeArchived bool) ([]Student, error)
	SaveStudent(ctx context.Context, s Student) error
	SetStudentArchived(ctx context.Context, id engine.StudentID, archived bool) error
	DeleteStudent(ctx context.Context, id engine.StudentID) error
}

// StaffStore persists staff members with their resolved Position.
type StaffStore interface {
	// GetStaff returns nil (no error) when the staff member does not exist.
	GetStaff(ctx context.Context, id engine.StaffID) (*StaffMember, error)
	ListStaff(ctx context.Context) ([]StaffMember, error)
	SaveStaff(ctx context.Context, m StaffMember) error
	DeleteStaff(ctx context.Context, id engine.StaffID) error
}

// PositionStore persists positions.
type PositionStore interface {
	GetPosition(ctx context.Context, id engine.PositionID) (*engine.Position, error)
	ListPositions(ctx context.Context) ([]engine.Position, error)
	SavePosition(ctx context.Context, p engine.Position) error
	DeletePosition(ctx context.Context, id engine.PositionID) error
}

// ExpenseStore persists expense lines.
type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]Expense, error)
	SaveExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, id string) error
}

// TestStore persists tests with their per-student results.
type TestStore interface {
	ListTests(ctx context.Context) ([]Test, error)
	// ResultsForTest returns a test's results, highest score first.
	ResultsForTest(ctx context.Context, testID string) ([]TestResult, error)
	// SaveTest writes the test and replaces its result set wholesale.
	SaveTest(ctx context.Context, t Test, results []TestResult) error
	DeleteTest(ctx context.Context, id string) error
}

// PaymentSink persists a payment and the resulting student balance as one
// atomic write.
type PaymentSink interface {
	ApplyPayment(ctx context.Context, p engine.Payment, newBalance engine.Money) error
}
