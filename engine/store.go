/*
store.go - Persistence interfaces for payments, attendance, and audit

PURPOSE:
  Defines the interface between the calculation engine and storage.
  Different implementations use SQLite or in-memory maps; the engine
  itself stays stateless and takes all data as explicit arguments.

KEY INTERFACES:
  PaymentStore:    Append-only payment persistence
  AttendanceStore: Day-keyed attendance with replace-by-day batches
  AuditLog:        Who performed which mutation and when

APPEND-ONLY CONTRACT (payments):
  - Append(): the only write
  - NO Update() or Delete() methods exist
  - Idempotency keys reject duplicate submissions

ATTENDANCE SEMANTICS:
  A day's submission replaces ALL records for that date - the source
  system's batch save pattern. Storage keys records by (staffID, date)
  with last-write-wins, while AggregateMonthlyHours stays tolerant of
  duplicates in whatever slice it is handed.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - engine/store: In-memory for testing/dev

SEE ALSO:
  - ledger.go: Higher-level ledger over PaymentStore
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT STORE - Append-only
// =============================================================================

// PaymentStore persists payments. APPEND-ONLY: corrections are made via
// compensating entries, never edits.
type PaymentStore interface {
	// Append persists a payment. Returns an error if the idempotency key exists.
	Append(ctx context.Context, p Payment) error

	// Load returns all payments for a student, ordered by date then insertion.
	Load(ctx context.Context, studentID StudentID) ([]Payment, error)

	// Exists checks if an idempotency key was already used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// ATTENDANCE STORE - Replace-by-day batches
// =============================================================================

// AttendanceStore persists attendance records keyed by (staffID, date).
type AttendanceStore interface {
	// ReplaceDay removes every record for the given date and inserts the
	// batch in its place. Records must all carry that date and pass
	// ValidateAttendanceRecord.
	ReplaceDay(ctx context.Context, date Date, records []AttendanceRecord) error

	// UpdateHours edits a single existing day's hours for one staff member.
	UpdateHours(ctx context.Context, staffID StaffID, date Date, hours decimal.Decimal) error

	// RecordsInMonth returns one staff member's records within a calendar month.
	RecordsInMonth(ctx context.Context, staffID StaffID, year int, month time.Month) ([]AttendanceRecord, error)

	// RecordsForRange returns all staff records within [from, to], for listing.
	RecordsForRange(ctx context.Context, from, to Date) ([]AttendanceRecord, error)

	// DeleteForStaff removes every record belonging to a staff member.
	// Called when the owning staff member is deleted.
	DeleteForStaff(ctx context.Context, staffID StaffID) error
}

// =============================================================================
// AUDIT LOG - Separate from the ledger, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp Date
	ActorID   string
	Action    AuditAction
	StudentID StudentID
	StaffID   StaffID
	Payload   map[string]any
}

type AuditAction string

const (
	AuditPaymentRecorded    AuditAction = "payment_recorded"
	AuditAttendanceReplaced AuditAction = "attendance_replaced"
	AuditAttendanceEdited   AuditAction = "attendance_edited"
	AuditStudentArchived    AuditAction = "student_archived"
	AuditStudentDeleted     AuditAction = "student_deleted"
	AuditStaffDeleted       AuditAction = "staff_deleted"
	AuditPositionChanged    AuditAction = "position_changed"
	AuditTestRecorded       AuditAction = "test_recorded"
)

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	StudentID *StudentID
	StaffID   *StaffID
	ActorID   *string
	Actions   []AuditAction
	From      *Date
	To        *Date
}
