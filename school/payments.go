/*
payments.go - Payment recording with per-student serialization

PURPOSE:
  Owns the read-modify-write around engine.ApplyPayment. The engine's
  ledger invariant (latest BalanceAfter == current balance) only holds if
  applications for the same student never interleave, so this service
  serializes them with a per-student mutex. Concurrent payments for
  DIFFERENT students proceed in parallel.

FLOW:
  1. Acquire the student's lock
  2. Load the student (current balance)
  3. engine.ApplyPayment - pure arithmetic
  4. Idempotency check, then atomic persist (ledger append + balance update)
  5. Audit entry

SEE ALSO:
  - engine/ledger.go: The pure application and the caller contract
  - store/sqlite: PaymentSink implemented as one SQL transaction
*/
package school

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maktab/school-engine/engine"
)

// PaymentInput describes one payment submission.
type PaymentInput struct {
	Amount engine.Money
	Note   string

	// Actor is who recorded the payment (for the audit log).
	Actor string

	// IdempotencyKey guards against double submission. Optional.
	IdempotencyKey string
}

// PaymentService records payments and answers due-date queries.
type PaymentService struct {
	Ledger *engine.DefaultLedger // history reads and idempotency checks
	Store  StudentStore
	Sink   PaymentSink
	Audit  engine.AuditLog
	Clock  func() time.Time

	mu    sync.Mutex
	locks map[engine.StudentID]*sync.Mutex
}

func NewPaymentService(payments engine.PaymentStore, students StudentStore, sink PaymentSink, audit engine.AuditLog) *PaymentService {
	return &PaymentService{
		Ledger: engine.NewLedger(payments),
		Store:  students,
		Sink:   sink,
		Audit:  audit,
		Clock:  time.Now,
		locks:  make(map[engine.StudentID]*sync.Mutex),
	}
}

func (s *PaymentService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// lockFor returns the mutex serializing payment application for one student.
func (s *PaymentService) lockFor(id engine.StudentID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// RecordPayment applies a payment to a student's balance and appends the
// ledger entry, atomically. Fails with engine.ErrStudentNotFound for an
// unresolved reference and engine.ErrDuplicateIdempotencyKey for a repeated
// submission.
func (s *PaymentService) RecordPayment(ctx context.Context, studentID engine.StudentID, in PaymentInput) (engine.Payment, error) {
	lock := s.lockFor(studentID)
	lock.Lock()
	defer lock.Unlock()

	student, err := s.Store.GetStudent(ctx, studentID)
	if err != nil {
		return engine.Payment{}, err
	}
	if student == nil {
		return engine.Payment{}, engine.ErrStudentNotFound
	}

	if err := s.Ledger.CheckIdempotency(ctx, in.IdempotencyKey); err != nil {
		return engine.Payment{}, err
	}

	today := engine.DateOf(s.now())
	app := engine.ApplyPayment(studentID, student.Balance, in.Amount, in.Note, today)

	entry := app.Entry
	entry.ID = engine.PaymentID(uuid.NewString())
	entry.IdempotencyKey = in.IdempotencyKey
	entry.CreatedBy = in.Actor
	entry.CreatedAt = today

	if err := s.Sink.ApplyPayment(ctx, entry, app.NewBalance); err != nil {
		return engine.Payment{}, err
	}

	if s.Audit != nil {
		_ = s.Audit.Append(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Timestamp: today,
			ActorID:   in.Actor,
			Action:    engine.AuditPaymentRecorded,
			StudentID: studentID,
			Payload: map[string]any{
				"amount":        in.Amount.String(),
				"balance_after": app.NewBalance.String(),
			},
		})
	}

	return entry, nil
}

// History returns a student's payment ledger, chronologically.
func (s *PaymentService) History(ctx context.Context, studentID engine.StudentID) ([]engine.Payment, error) {
	student, err := s.Store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, engine.ErrStudentNotFound
	}
	return s.Ledger.History(ctx, studentID)
}

// NextDueDate computes the student's next payment deadline as of the
// service clock.
func (s *PaymentService) NextDueDate(ctx context.Context, studentID engine.StudentID) (engine.Date, error) {
	student, err := s.Store.GetStudent(ctx, studentID)
	if err != nil {
		return engine.Date{}, err
	}
	if student == nil {
		return engine.Date{}, engine.ErrStudentNotFound
	}
	return engine.NextDueDate(student.EnrollmentDate, student.PaymentType, engine.DateOf(s.now()))
}
