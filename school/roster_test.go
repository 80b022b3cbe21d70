package school_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktab/school-engine/engine"
	"github.com/maktab/school-engine/school"
	"github.com/maktab/school-engine/store/sqlite"
)

func newRosterService(t *testing.T) (*school.RosterService, *sqlite.Store) {
	store := newTestStore(t)
	svc := school.NewRosterService(store, store, store, store, store, store, store.Audit())
	return svc, store
}

// =============================================================================
// STUDENT LIFECYCLE TESTS
// =============================================================================

func TestRosterService_SaveStudent_ValidatesInvariants(t *testing.T) {
	svc, _ := newRosterService(t)
	ctx := context.Background()

	// Missing enrollment date
	err := svc.SaveStudent(ctx, school.Student{
		ID: "s-1", FullName: "No Date", PaymentType: engine.PaymentMonthly,
	})
	assert.ErrorIs(t, err, engine.ErrInvalidEnrollmentDate)

	// Unknown payment type - no silent default
	err = svc.SaveStudent(ctx, school.Student{
		ID: "s-1", FullName: "Bad Cycle",
		EnrollmentDate: engine.NewDate(2023, time.September, 1),
		PaymentType:    "weekly",
	})
	assert.ErrorIs(t, err, engine.ErrUnknownPaymentType)

	// Grade must be a positive integer
	for _, grade := range []int{0, -1} {
		err = svc.SaveStudent(ctx, school.Student{
			ID: "s-1", FullName: "Bad Grade", Grade: grade,
			EnrollmentDate: engine.NewDate(2023, time.September, 1),
			PaymentType:    engine.PaymentMonthly,
		})
		assert.ErrorIs(t, err, school.ErrInvalidGrade, "grade %d", grade)
	}
}

func TestRosterService_DeleteStudent_BlockedByLedger(t *testing.T) {
	// GIVEN: A student with a recorded payment
	// WHEN: Deleting them
	// THEN: Refused - the append-only ledger must not be orphaned

	svc, store := newRosterService(t)
	ctx := context.Background()
	seedStudent(t, store, "student-1", "0", engine.PaymentMonthly, engine.NewDate(2023, time.September, 1))

	payments := school.NewPaymentService(store, store, store, store.Audit())
	_, err := payments.RecordPayment(ctx, "student-1", school.PaymentInput{
		Amount: engine.MustParseMoney("100000"),
	})
	require.NoError(t, err)

	err = svc.DeleteStudent(ctx, "student-1", "admin")
	assert.ErrorIs(t, err, school.ErrStudentHasPayments)

	// Archiving is the supported path.
	require.NoError(t, svc.ArchiveStudent(ctx, "student-1", "admin"))

	students, err := store.ListStudents(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, students, "archived students leave the default listing")

	students, err = store.ListStudents(ctx, true)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.True(t, students[0].IsArchived)
}

func TestRosterService_DeleteStudent_EmptyLedger_Allowed(t *testing.T) {
	svc, store := newRosterService(t)
	ctx := context.Background()
	seedStudent(t, store, "student-1", "0", engine.PaymentMonthly, engine.NewDate(2023, time.September, 1))

	require.NoError(t, svc.DeleteStudent(ctx, "student-1", "admin"))

	student, err := store.GetStudent(ctx, "student-1")
	require.NoError(t, err)
	assert.Nil(t, student)
}

// =============================================================================
// STAFF AND POSITION LIFECYCLE TESTS
// =============================================================================

func TestRosterService_DeleteStaff_CascadesAttendance(t *testing.T) {
	// GIVEN: A staff member with logged attendance
	// WHEN: Deleting them
	// THEN: Their attendance records go too

	svc, store := newRosterService(t)
	ctx := context.Background()
	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-1", "Aziza Karimova", teacher)
	day := engine.NewDate(2024, time.June, 3)
	seedDay(t, store, day, "staff-1", 6)

	require.NoError(t, svc.DeleteStaff(ctx, "staff-1", "admin"))

	records, err := store.RecordsForRange(ctx, day, day)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRosterService_DeletePosition_RefusedWhileReferenced(t *testing.T) {
	svc, store := newRosterService(t)
	ctx := context.Background()
	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-1", "Aziza Karimova", teacher)

	err := svc.DeletePosition(ctx, "pos-teacher")
	assert.ErrorIs(t, err, school.ErrPositionInUse)

	require.NoError(t, svc.DeleteStaff(ctx, "staff-1", "admin"))
	require.NoError(t, svc.DeletePosition(ctx, "pos-teacher"))
}

func TestRosterService_SavePosition_RejectsNegativeRate(t *testing.T) {
	svc, _ := newRosterService(t)

	err := svc.SavePosition(context.Background(), engine.Position{
		ID: "pos-1", Name: "Broken", Type: engine.PositionHourly,
		Rate: engine.MustParseMoney("-100"),
	}, "admin")
	assert.ErrorIs(t, err, engine.ErrInvalidPositionRate)
}

// =============================================================================
// ATTENDANCE SUBMISSION TESTS
// =============================================================================

func TestRosterService_SubmitDay_DropsZeroHourEntries(t *testing.T) {
	// GIVEN: A day batch where one staff member has zero hours
	// WHEN: Submitting the day
	// THEN: The zero-hour entry is not stored

	svc, store := newRosterService(t)
	ctx := context.Background()
	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-1", "Aziza Karimova", teacher)
	seedStaff(t, store, "staff-2", "Jasur Toshpulatov", teacher)

	day := engine.NewDate(2024, time.June, 3)
	err := svc.SubmitDay(ctx, day, []engine.AttendanceRecord{
		{StaffID: "staff-1", Hours: decimal.NewFromInt(6)},
		{StaffID: "staff-2", Hours: decimal.Zero},
	}, "admin")
	require.NoError(t, err)

	records, err := store.RecordsForRange(ctx, day, day)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, engine.StaffID("staff-1"), records[0].StaffID)
	assert.NotEmpty(t, records[0].ID, "submitted records get IDs assigned")
	assert.True(t, records[0].Date.Equal(day), "submitted records carry the batch date")
}

// =============================================================================
// TEST RECORDING TESTS
// =============================================================================

func TestRosterService_RecordTest_ResolvesStudentNames(t *testing.T) {
	// GIVEN: Two enrolled students
	// WHEN: Recording a test with their scores
	// THEN: Results are stored with resolved names, ranked by score

	svc, store := newRosterService(t)
	ctx := context.Background()
	seedStudent(t, store, "student-1", "0", engine.PaymentMonthly, engine.NewDate(2023, time.September, 1))
	seedStudent(t, store, "student-2", "0", engine.PaymentMonthly, engine.NewDate(2023, time.September, 1))

	test, results, err := svc.RecordTest(ctx, school.Test{Month: "June 2024", Grade: 3}, []school.TestResult{
		{StudentID: "student-1", Score: 72},
		{StudentID: "student-2", Score: 95},
	}, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, test.ID, "tests get IDs assigned")
	require.Len(t, results, 2)
	assert.Equal(t, "Student student-1", results[0].StudentName)
	assert.Equal(t, test.ID, results[0].TestID)

	stored, err := store.ResultsForTest(ctx, test.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 95, stored[0].Score, "highest score first")
	assert.Equal(t, engine.StudentID("student-2"), stored[0].StudentID)
}

func TestRosterService_RecordTest_RejectsBadInput(t *testing.T) {
	svc, store := newRosterService(t)
	ctx := context.Background()
	seedStudent(t, store, "student-1", "0", engine.PaymentMonthly, engine.NewDate(2023, time.September, 1))

	// Score above 100
	_, _, err := svc.RecordTest(ctx, school.Test{Month: "June 2024", Grade: 3}, []school.TestResult{
		{StudentID: "student-1", Score: 101},
	}, "admin")
	assert.ErrorIs(t, err, school.ErrInvalidScore)

	// Unknown student
	_, _, err = svc.RecordTest(ctx, school.Test{Month: "June 2024", Grade: 3}, []school.TestResult{
		{StudentID: "student-ghost", Score: 50},
	}, "admin")
	assert.ErrorIs(t, err, engine.ErrStudentNotFound)

	// Grade must be positive
	_, _, err = svc.RecordTest(ctx, school.Test{Month: "June 2024", Grade: 0}, nil, "admin")
	assert.ErrorIs(t, err, school.ErrInvalidGrade)
}

func TestRosterService_SubmitDay_RejectsInvalidHours(t *testing.T) {
	svc, store := newRosterService(t)
	ctx := context.Background()
	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-1", "Aziza Karimova", teacher)

	day := engine.NewDate(2024, time.June, 3)
	err := svc.SubmitDay(ctx, day, []engine.AttendanceRecord{
		{StaffID: "staff-1", Hours: decimal.NewFromInt(30)},
	}, "admin")
	assert.ErrorIs(t, err, engine.ErrInvalidHours)
}
