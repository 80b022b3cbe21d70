/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence interface the school services consume
  (StudentStore, StaffStore, PositionStore, ExpenseStore, TestStore,
  PaymentSink)
  plus the engine's PaymentStore and AttendanceStore. The audit log is a
  separate view obtained via Audit().

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the payments and audit_log
  tables. Payment corrections are compensating entries.

KEY TABLES:
  students:    Enrollment + billing attributes, balance snapshot
  staff:       Staff members referencing positions
  positions:   Pay policies (hourly/monthly + rate)
  attendance:  One row per (staff_id, date); day batches replace wholesale
  payments:    Immutable ledger with balance snapshots
  audit_log:   Who performed which mutation and when
  expenses:    Dashboard expense lines
  tests:       Graded assessments, with per-student results

ATTENDANCE UNIQUENESS:
  UNIQUE(staff_id, date) with upsert gives last-write-wins at the
  persistence layer. The aggregator still tolerates duplicates in any
  slice it is handed.

MONEY & DATES:
  Money and hours are stored as decimal TEXT (never floats); dates as
  YYYY-MM-DD.

WAL MODE:
  SQLite is opened with WAL for better read concurrency. A sync.RWMutex
  serializes writers, as in any single-file SQLite deployment.

USAGE:
  store, err := sqlite.New("./data/school.db")  // or ":memory:"
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface contracts
  - engine/store/memory.go: In-memory counterpart for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/maktab/school-engine/engine"
	"github.com/maktab/school-engine/school"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time interface checks.
var (
	_ school.StudentStore    = (*Store)(nil)
	_ school.StaffStore      = (*Store)(nil)
	_ school.PositionStore   = (*Store)(nil)
	_ school.ExpenseStore    = (*Store)(nil)
	_ school.TestStore       = (*Store)(nil)
	_ school.PaymentSink     = (*Store)(nil)
	_ engine.PaymentStore    = (*Store)(nil)
	_ engine.AttendanceStore = (*Store)(nil)
	_ engine.AuditLog        = (*auditLog)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite is single-writer anyway, and ":memory:"
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('hourly', 'monthly')),
		rate TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		position_id TEXT NOT NULL REFERENCES positions(id),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_staff_position ON staff(position_id);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		grade INTEGER NOT NULL,
		enrollment_date TEXT NOT NULL,
		monthly_fee TEXT NOT NULL,
		balance TEXT NOT NULL,
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		payment_type TEXT NOT NULL CHECK (payment_type IN ('monthly', 'anniversary')),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_archived ON students(is_archived);

	-- One row per (staff, date): last write wins on day re-submission
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		UNIQUE(staff_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);

	-- Payments (append-only ledger)
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT,
		date TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student_date ON payments(student_id, date);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		student_id TEXT,
		staff_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		grade INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	-- student_name is denormalized so results survive roster changes
	CREATE TABLE IF NOT EXISTS test_results (
		id TEXT PRIMARY KEY,
		test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		score INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		UNIQUE(test_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_test_results_test ON test_results(test_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseMoney(s string) engine.Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.Money{Value: decimal.Zero}
	}
	return engine.Money{Value: d}
}

func parseDate(s string) engine.Date {
	d, err := engine.ParseDate(s)
	if err != nil {
		return engine.Date{}
	}
	return d
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// POSITIONS
// =============================================================================

func (s *Store) SavePosition(ctx context.Context, p engine.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, name, type, rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type, rate = excluded.rate`,
		string(p.ID), p.Name, string(p.Type), p.Rate.String(), nowStamp())
	return err
}

func (s *Store) GetPosition(ctx context.Context, id engine.PositionID) (*engine.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, rate FROM positions WHERE id = ?`, string(id))
	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPositions(ctx context.Context) ([]engine.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, rate FROM positions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []engine.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func (s *Store) DeletePosition(ctx context.Context, id engine.PositionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE id = ?`, string(id))
	return err
}

func scanPosition(r rowScanner) (*engine.Position, error) {
	var p engine.Position
	var id, posType, rate string
	if err := r.Scan(&id, &p.Name, &posType, &rate); err != nil {
		return nil, err
	}
	p.ID = engine.PositionID(id)
	p.Type = engine.PositionType(posType)
	p.Rate = parseMoney(rate)
	return &p, nil
}

// =============================================================================
// STAFF
// =============================================================================

func (s *Store) SaveStaff(ctx context.Context, m school.StaffMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, full_name, position_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET full_name = excluded.full_name, position_id = excluded.position_id`,
		string(m.ID), m.FullName, string(m.Position.ID), nowStamp())
	return err
}

func (s *Store) GetStaff(ctx context.Context, id engine.StaffID) (*school.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT st.id, st.full_name, p.id, p.name, p.type, p.rate
		FROM staff st JOIN positions p ON p.id = st.position_id
		WHERE st.id = ?`, string(id))

	m, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) ListStaff(ctx context.Context) ([]school.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT st.id, st.full_name, p.id, p.name, p.type, p.rate
		FROM staff st JOIN positions p ON p.id = st.position_id
		ORDER BY st.full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []school.StaffMember
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		roster = append(roster, *m)
	}
	return roster, rows.Err()
}

func (s *Store) DeleteStaff(ctx context.Context, id engine.StaffID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Attendance rows go with the staff member (ON DELETE CASCADE).
	_, err := s.db.ExecContext(ctx, `DELETE FROM staff WHERE id = ?`, string(id))
	return err
}

func scanStaff(r rowScanner) (*school.StaffMember, error) {
	var m school.StaffMember
	var staffID, posID, posType, rate string
	if err := r.Scan(&staffID, &m.FullName, &posID, &m.Position.Name, &posType, &rate); err != nil {
		return nil, err
	}
	m.ID = engine.StaffID(staffID)
	m.Position.ID = engine.PositionID(posID)
	m.Position.Type = engine.PositionType(posType)
	m.Position.Rate = parseMoney(rate)
	return &m, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveStudent(ctx context.Context, st school.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// balance and is_archived are absent from the update set: after creation,
	// the balance moves only through ApplyPayment and the archive flag only
	// through SetStudentArchived. Re-saving a student must not reset either.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, full_name, grade, enrollment_date, monthly_fee, balance, is_archived, payment_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			grade = excluded.grade,
			enrollment_date = excluded.enrollment_date,
			monthly_fee = excluded.monthly_fee,
			payment_type = excluded.payment_type`,
		string(st.ID), st.FullName, st.Grade, st.EnrollmentDate.String(),
		st.MonthlyFee.String(), st.Balance.String(), st.IsArchived,
		string(st.PaymentType), nowStamp())
	return err
}

func (s *Store) GetStudent(ctx context.Context, id engine.StudentID) (*school.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, grade, enrollment_date, monthly_fee, balance, is_archived, payment_type
		FROM students WHERE id = ?`, string(id))

	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context, includeArchived bool) ([]school.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, full_name, grade, enrollment_date, monthly_fee, balance, is_archived, payment_type
		FROM students`
	if !includeArchived {
		query += ` WHERE is_archived = FALSE`
	}
	query += ` ORDER BY full_name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []school.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *st)
	}
	return students, rows.Err()
}

func (s *Store) SetStudentArchived(ctx context.Context, id engine.StudentID, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE students SET is_archived = ? WHERE id = ?`, archived, string(id))
	return err
}

func (s *Store) DeleteStudent(ctx context.Context, id engine.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, string(id))
	return err
}

func scanStudent(r rowScanner) (*school.Student, error) {
	var st school.Student
	var id, enrollment, fee, balance, paymentType string
	if err := r.Scan(&id, &st.FullName, &st.Grade, &enrollment, &fee, &balance, &st.IsArchived, &paymentType); err != nil {
		return nil, err
	}
	st.ID = engine.StudentID(id)
	st.EnrollmentDate = parseDate(enrollment)
	st.MonthlyFee = parseMoney(fee)
	st.Balance = parseMoney(balance)
	st.PaymentType = engine.PaymentType(paymentType)
	return &st, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) ReplaceDay(ctx context.Context, date engine.Date, records []engine.AttendanceRecord) error {
	for _, rec := range records {
		if err := engine.ValidateAttendanceRecord(rec); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE date = ?`, date.String()); err != nil {
		return err
	}
	for _, rec := range records {
		// Upsert keyed by (staff_id, date): last write wins within the batch.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (id, staff_id, date, hours)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(staff_id, date) DO UPDATE SET hours = excluded.hours`,
			rec.ID, string(rec.StaffID), date.String(), rec.Hours.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) UpdateHours(ctx context.Context, staffID engine.StaffID, date engine.Date, hours decimal.Decimal) error {
	if err := engine.ValidateAttendanceRecord(engine.AttendanceRecord{StaffID: staffID, Date: date, Hours: hours}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE attendance SET hours = ? WHERE staff_id = ? AND date = ?`,
		hours.String(), string(staffID), date.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrAttendanceNotFound
	}
	return nil
}

func (s *Store) RecordsInMonth(ctx context.Context, staffID engine.StaffID, year int, month time.Month) ([]engine.AttendanceRecord, error) {
	period := engine.MonthOf(year, month)
	return s.queryAttendance(ctx, `
		SELECT id, staff_id, date, hours FROM attendance
		WHERE staff_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		string(staffID), period.Start.String(), period.End.String())
}

func (s *Store) RecordsForRange(ctx context.Context, from, to engine.Date) ([]engine.AttendanceRecord, error) {
	return s.queryAttendance(ctx, `
		SELECT id, staff_id, date, hours FROM attendance
		WHERE date >= ? AND date <= ?
		ORDER BY date, staff_id`,
		from.String(), to.String())
}

func (s *Store) DeleteForStaff(ctx context.Context, staffID engine.StaffID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE staff_id = ?`, string(staffID))
	return err
}

func (s *Store) queryAttendance(ctx context.Context, query string, args ...any) ([]engine.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []engine.AttendanceRecord
	for rows.Next() {
		var rec engine.AttendanceRecord
		var staffID, date, hours string
		if err := rows.Scan(&rec.ID, &staffID, &date, &hours); err != nil {
			return nil, err
		}
		rec.StaffID = engine.StaffID(staffID)
		rec.Date = parseDate(date)
		h, err := decimal.NewFromString(hours)
		if err != nil {
			return nil, fmt.Errorf("corrupt hours value %q: %w", hours, err)
		}
		rec.Hours = h
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// PAYMENTS - Append-only
// =============================================================================

func (s *Store) Append(ctx context.Context, p engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return insertPayment(ctx, s.db, p)
}

// ApplyPayment appends the ledger entry and updates the student balance in
// one database transaction: both happen or neither does.
func (s *Store) ApplyPayment(ctx context.Context, p engine.Payment, newBalance engine.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertPayment(ctx, tx, p); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE students SET balance = ? WHERE id = ?`,
		newBalance.String(), string(p.StudentID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrStudentNotFound
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPayment(ctx context.Context, db execer, p engine.Payment) error {
	var idemKey any
	if p.IdempotencyKey != "" {
		idemKey = p.IdempotencyKey
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, student_id, amount, note, date, balance_after, idempotency_key, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.StudentID), p.Amount.String(), p.Note,
		p.Date.String(), p.BalanceAfter.String(), idemKey, p.CreatedBy, nowStamp())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: payments.idempotency_key") {
		return engine.ErrDuplicateIdempotencyKey
	}
	return err
}

func (s *Store) Load(ctx context.Context, studentID engine.StudentID) ([]engine.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, amount, COALESCE(note, ''), date, balance_after,
		       COALESCE(idempotency_key, ''), COALESCE(created_by, ''), created_at
		FROM payments WHERE student_id = ?
		ORDER BY date, created_at`, string(studentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []engine.Payment
	for rows.Next() {
		var p engine.Payment
		var id, sid, amount, date, balanceAfter, createdAt string
		if err := rows.Scan(&id, &sid, &amount, &p.Note, &date, &balanceAfter, &p.IdempotencyKey, &p.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		p.ID = engine.PaymentID(id)
		p.StudentID = engine.StudentID(sid)
		p.Amount = parseMoney(amount)
		p.Date = parseDate(date)
		p.BalanceAfter = parseMoney(balanceAfter)
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			p.CreatedAt = engine.DateOf(ts)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM payments WHERE idempotency_key = ?`, idempotencyKey).Scan(&count)
	return count > 0, err
}

// =============================================================================
// AUDIT LOG - Append-only
// =============================================================================

// Audit returns the audit-log view of the store.
func (s *Store) Audit() engine.AuditLog {
	return &auditLog{store: s}
}

// auditLog is a separate type because PaymentStore.Append and AuditLog.Append
// would otherwise collide on *Store.
type auditLog struct {
	store *Store
}

func (a *auditLog) Append(ctx context.Context, entry engine.AuditEntry) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	_, err = a.store.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, student_id, staff_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.String(), entry.ActorID, string(entry.Action),
		string(entry.StudentID), string(entry.StaffID), string(payload))
	return err
}

func (a *auditLog) Query(ctx context.Context, filter engine.AuditFilter) ([]engine.AuditEntry, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	query := `SELECT id, timestamp, COALESCE(actor_id, ''), action, COALESCE(student_id, ''), COALESCE(staff_id, ''), COALESCE(payload_json, '') FROM audit_log WHERE 1=1`
	var args []any
	if filter.StudentID != nil {
		query += ` AND student_id = ?`
		args = append(args, string(*filter.StudentID))
	}
	if filter.StaffID != nil {
		query += ` AND staff_id = ?`
		args = append(args, string(*filter.StaffID))
	}
	if filter.ActorID != nil {
		query += ` AND actor_id = ?`
		args = append(args, *filter.ActorID)
	}
	if filter.From != nil {
		query += ` AND timestamp >= ?`
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		query += ` AND timestamp <= ?`
		args = append(args, filter.To.String())
	}
	query += ` ORDER BY timestamp`

	rows, err := a.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []engine.AuditEntry
	for rows.Next() {
		var e engine.AuditEntry
		var timestamp, action, studentID, staffID, payload string
		if err := rows.Scan(&e.ID, &timestamp, &e.ActorID, &action, &studentID, &staffID, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = parseDate(timestamp)
		e.Action = engine.AuditAction(action)
		e.StudentID = engine.StudentID(studentID)
		e.StaffID = engine.StaffID(staffID)
		if payload != "" && payload != "null" {
			_ = json.Unmarshal([]byte(payload), &e.Payload)
		}
		if len(filter.Actions) > 0 && !actionMatches(filter.Actions, e.Action) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func actionMatches(actions []engine.AuditAction, a engine.AuditAction) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) SaveExpense(ctx context.Context, e school.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, date, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, amount = excluded.amount, description = excluded.description`,
		e.ID, e.Date.String(), e.Amount.String(), e.Description, nowStamp())
	return err
}

func (s *Store) ListExpenses(ctx context.Context) ([]school.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, amount, COALESCE(description, '') FROM expenses ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []school.Expense
	for rows.Next() {
		var e school.Expense
		var date, amount string
		if err := rows.Scan(&e.ID, &date, &amount, &e.Description); err != nil {
			return nil, err
		}
		e.Date = parseDate(date)
		e.Amount = parseMoney(amount)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	return err
}

// =============================================================================
// TESTS AND RESULTS
// =============================================================================

// SaveTest upserts the test row and replaces its result set wholesale, the
// same pattern as a day's attendance batch.
func (s *Store) SaveTest(ctx context.Context, t school.Test, results []school.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tests (id, month, grade, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET month = excluded.month, grade = excluded.grade`,
		t.ID, t.Month, t.Grade, nowStamp()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM test_results WHERE test_id = ?`, t.ID); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO test_results (id, test_id, student_id, student_name, score)
			VALUES (?, ?, ?, ?, ?)`,
			r.ID, t.ID, string(r.StudentID), r.StudentName, r.Score); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListTests(ctx context.Context) ([]school.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, month, grade FROM tests ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []school.Test
	for rows.Next() {
		var t school.Test
		if err := rows.Scan(&t.ID, &t.Month, &t.Grade); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// ResultsForTest returns a test's results, highest score first.
func (s *Store) ResultsForTest(ctx context.Context, testID string) ([]school.TestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, test_id, student_id, student_name, score FROM test_results
		WHERE test_id = ?
		ORDER BY score DESC, student_name`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []school.TestResult
	for rows.Next() {
		var r school.TestResult
		var studentID string
		if err := rows.Scan(&r.ID, &r.TestID, &studentID, &r.StudentName, &r.Score); err != nil {
			return nil, err
		}
		r.StudentID = engine.StudentID(studentID)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) DeleteTest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Results go with the test (ON DELETE CASCADE).
	_, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	return err
}
