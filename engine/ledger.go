/*
ledger.go - Payment application and the append-only payment ledger

PURPOSE:
  The ledger is the immutable record of every payment a student has made.
  Each entry carries BalanceAfter, the balance snapshot computed at
  recording time. The most recent entry's BalanceAfter must equal the
  student's current balance - that is the ledger's core invariant.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. Ever.
  2. SNAPSHOT: BalanceAfter is computed once and never recalculated.
  3. IDEMPOTENT: Same idempotency key = same payment (no duplicates).

CORRECTIONS:
  A mistaken payment is not edited. A compensating entry with the opposite
  amount is appended; both remain in the ledger.

SERIALIZATION DISCIPLINE (caller contract):
  ApplyPayment is a pure read-modify-write: it computes BalanceAfter from
  the balance it is given. Two interleaved applications for the same
  student would both read the same prior balance and produce an
  inconsistent ledger. The engine does not lock; callers MUST serialize
  payment application per student. school.PaymentService does this with a
  per-student mutex.

SEE ALSO:
  - store.go: PaymentStore persistence interface
  - school: PaymentService, the serializing caller
*/
package engine

import "context"

// =============================================================================
// PAYMENT APPLICATION - Pure balance arithmetic
// =============================================================================

// PaymentApplication is the result of applying a payment amount to a balance.
type PaymentApplication struct {
	NewBalance Money
	Entry      Payment
}

// ApplyPayment returns the student's new balance and the ledger entry to
// append: NewBalance = balance + amount, Entry.BalanceAfter = NewBalance.
// Negative balances mean the student owes; a positive amount is funds
// received. The Entry's ID and audit fields are assigned by the caller at
// persistence time.
//
// Callers must not interleave applications for the same student; see the
// serialization discipline in the package documentation above.
func ApplyPayment(studentID StudentID, balance, amount Money, note string, date Date) PaymentApplication {
	newBalance := balance.Add(amount)
	return PaymentApplication{
		NewBalance: newBalance,
		Entry: Payment{
			StudentID:    studentID,
			Amount:       amount,
			Note:         note,
			Date:         date,
			BalanceAfter: newBalance,
		},
	}
}

// =============================================================================
// LEDGER - Append-only payment log per student
// =============================================================================

// Ledger is the source of truth for a student's payment history.
//
// INVARIANTS:
//   - Append-only: No Update, No Delete.
//   - Immutable: Once written, entries cannot be modified.
//   - The latest entry's BalanceAfter equals the student's current balance.
type Ledger interface {
	// Append adds a payment. Fails if the idempotency key exists.
	// This is the ONLY write operation.
	Append(ctx context.Context, p Payment) error

	// History returns all payments for a student, chronologically.
	History(ctx context.Context, studentID StudentID) ([]Payment, error)

	// LatestBalance returns the BalanceAfter of the most recent payment.
	// ok is false when the student has no payments yet.
	LatestBalance(ctx context.Context, studentID StudentID) (balance Money, ok bool, err error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using PaymentStore
// =============================================================================

type DefaultLedger struct {
	Store PaymentStore
}

func NewLedger(store PaymentStore) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, p Payment) error {
	if err := l.CheckIdempotency(ctx, p.IdempotencyKey); err != nil {
		return err
	}
	return l.Store.Append(ctx, p)
}

// CheckIdempotency reports ErrDuplicateIdempotencyKey when the key has
// already been recorded. An empty key is never a duplicate. Callers that
// persist through their own write path (the school payment flow appends the
// entry and the balance update in one transaction) run this same check
// before writing.
func (l *DefaultLedger) CheckIdempotency(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	exists, err := l.Store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateIdempotencyKey
	}
	return nil
}

func (l *DefaultLedger) History(ctx context.Context, studentID StudentID) ([]Payment, error) {
	return l.Store.Load(ctx, studentID)
}

func (l *DefaultLedger) LatestBalance(ctx context.Context, studentID StudentID) (Money, bool, error) {
	payments, err := l.Store.Load(ctx, studentID)
	if err != nil {
		return Money{}, false, err
	}
	if len(payments) == 0 {
		return Money{}, false, nil
	}
	return payments[len(payments)-1].BalanceAfter, true, nil
}
