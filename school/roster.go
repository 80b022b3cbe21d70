/*
roster.go - Student and staff lifecycle

PURPOSE:
  Create/edit/archive/delete flows with the referential rules the
  calculation engine relies on:
    - deleting a staff member cascade-deletes their attendance records
    - a student with ledger entries cannot be deleted, only archived
      (the ledger is append-only; deleting its owner would orphan it)
    - positions referenced by staff cannot be deleted

  The aggregator tolerates orphaned attendance regardless; the cascade
  keeps storage tidy rather than protecting correctness.
*/
package school

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/maktab/school-engine/engine"
)

var (
	// ErrStudentHasPayments is returned when deleting a student whose
	// ledger is non-empty. Archive instead.
	ErrStudentHasPayments = errors.New("student has recorded payments; archive instead of deleting")

	// ErrPositionInUse is returned when deleting a position still
	// referenced by staff.
	ErrPositionInUse = errors.New("position is referenced by staff members")
)

// RosterService owns entity lifecycle and the cascade rules.
type RosterService struct {
	Students   StudentStore
	Staff      StaffStore
	Positions  PositionStore
	Tests      TestStore
	Attendance engine.AttendanceStore
	Payments   engine.PaymentStore
	Audit      engine.AuditLog
	Clock      func() time.Time
}

func NewRosterService(students StudentStore, staff StaffStore, positions PositionStore, tests TestStore, attendance engine.AttendanceStore, payments engine.PaymentStore, audit engine.AuditLog) *RosterService {
	return &RosterService{
		Students:   students,
		Staff:      staff,
		Positions:  positions,
		Tests:      tests,
		Attendance: attendance,
		Payments:   payments,
		Audit:      audit,
		Clock:      time.Now,
	}
}

func (s *RosterService) today() engine.Date {
	if s.Clock != nil {
		return engine.DateOf(s.Clock())
	}
	return engine.Today()
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *RosterService) SaveStudent(ctx context.Context, student Student) error {
	if err := student.Validate(); err != nil {
		return err
	}
	return s.Students.SaveStudent(ctx, student)
}

// ArchiveStudent marks a student archived without touching their ledger.
func (s *RosterService) ArchiveStudent(ctx context.Context, id engine.StudentID, actor string) error {
	student, err := s.Students.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if student == nil {
		return engine.ErrStudentNotFound
	}
	if err := s.Students.SetStudentArchived(ctx, id, true); err != nil {
		return err
	}
	s.audit(ctx, engine.AuditEntry{Action: engine.AuditStudentArchived, StudentID: id, ActorID: actor})
	return nil
}

// DeleteStudent removes a student with an empty ledger. A student with
// payments is rejected with ErrStudentHasPayments.
func (s *RosterService) DeleteStudent(ctx context.Context, id engine.StudentID, actor string) error {
	student, err := s.Students.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if student == nil {
		return engine.ErrStudentNotFound
	}

	payments, err := s.Payments.Load(ctx, id)
	if err != nil {
		return err
	}
	if len(payments) > 0 {
		return ErrStudentHasPayments
	}

	if err := s.Students.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, engine.AuditEntry{Action: engine.AuditStudentDeleted, StudentID: id, ActorID: actor})
	return nil
}

// =============================================================================
// STAFF
// =============================================================================

func (s *RosterService) SaveStaff(ctx context.Context, member StaffMember) error {
	if err := member.Position.Validate(); err != nil {
		return err
	}
	return s.Staff.SaveStaff(ctx, member)
}

// DeleteStaff removes a staff member and cascade-deletes their attendance.
func (s *RosterService) DeleteStaff(ctx context.Context, id engine.StaffID, actor string) error {
	member, err := s.Staff.GetStaff(ctx, id)
	if err != nil {
		return err
	}
	if member == nil {
		return engine.ErrStaffNotFound
	}

	if err := s.Staff.DeleteStaff(ctx, id); err != nil {
		return err
	}
	if err := s.Attendance.DeleteForStaff(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, engine.AuditEntry{Action: engine.AuditStaffDeleted, StaffID: id, ActorID: actor})
	return nil
}

// =============================================================================
// POSITIONS
// =============================================================================

func (s *RosterService) SavePosition(ctx context.Context, pos engine.Position, actor string) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	if err := s.Positions.SavePosition(ctx, pos); err != nil {
		return err
	}
	s.audit(ctx, engine.AuditEntry{Action: engine.AuditPositionChanged, ActorID: actor, Payload: map[string]any{
		"position_id": string(pos.ID),
		"type":        string(pos.Type),
		"rate":        pos.Rate.String(),
	}})
	return nil
}

// DeletePosition refuses while any staff member references the position.
func (s *RosterService) DeletePosition(ctx context.Context, id engine.PositionID) error {
	roster, err := s.Staff.ListStaff(ctx)
	if err != nil {
		return err
	}
	for _, member := range roster {
		if member.Position.ID == id {
			return ErrPositionInUse
		}
	}
	return s.Positions.DeletePosition(ctx, id)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SubmitDay replaces a day's attendance wholesale, the source system's save
// pattern. Zero-hour entries are dropped before storage.
func (s *RosterService) SubmitDay(ctx context.Context, date engine.Date, records []engine.AttendanceRecord, actor string) error {
	kept := make([]engine.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if err := engine.ValidateAttendanceRecord(rec); err != nil {
			return err
		}
		if rec.Hours.IsZero() {
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.Date = date
		kept = append(kept, rec)
	}

	if err := s.Attendance.ReplaceDay(ctx, date, kept); err != nil {
		return err
	}
	s.audit(ctx, engine.AuditEntry{Action: engine.AuditAttendanceReplaced, ActorID: actor, Payload: map[string]any{
		"date":    date.String(),
		"records": len(kept),
	}})
	return nil
}

// =============================================================================
// TESTS
// =============================================================================

// RecordTest stores a test with its per-student scores. Every result must
// reference an existing student; names are resolved at recording time so the
// results stay readable after later roster changes.
func (s *RosterService) RecordTest(ctx context.Context, test Test, results []TestResult, actor string) (Test, []TestResult, error) {
	if err := test.Validate(); err != nil {
		return Test{}, nil, err
	}
	if test.ID == "" {
		test.ID = uuid.NewString()
	}

	stored := make([]TestResult, 0, len(results))
	for _, r := range results {
		if err := r.Validate(); err != nil {
			return Test{}, nil, err
		}
		student, err := s.Students.GetStudent(ctx, r.StudentID)
		if err != nil {
			return Test{}, nil, err
		}
		if student == nil {
			return Test{}, nil, engine.ErrStudentNotFound
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.TestID = test.ID
		r.StudentName = student.FullName
		stored = append(stored, r)
	}

	if err := s.Tests.SaveTest(ctx, test, stored); err != nil {
		return Test{}, nil, err
	}
	s.audit(ctx, engine.AuditEntry{Action: engine.AuditTestRecorded, ActorID: actor, Payload: map[string]any{
		"test_id": test.ID,
		"grade":   test.Grade,
		"results": len(stored),
	}})
	return test, stored, nil
}

// DeleteTest removes a test and its results.
func (s *RosterService) DeleteTest(ctx context.Context, id string) error {
	return s.Tests.DeleteTest(ctx, id)
}

func (s *RosterService) audit(ctx context.Context, entry engine.AuditEntry) {
	if s.Audit == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.Timestamp = s.today()
	_ = s.Audit.Append(ctx, entry)
}
