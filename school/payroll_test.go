package school_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktab/school-engine/engine"
	"github.com/maktab/school-engine/school"
	"github.com/maktab/school-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPosition(t *testing.T, store *sqlite.Store, id string, posType engine.PositionType, rate string) engine.Position {
	pos := engine.Position{
		ID:   engine.PositionID(id),
		Name: id,
		Type: posType,
		Rate: engine.MustParseMoney(rate),
	}
	require.NoError(t, store.SavePosition(context.Background(), pos))
	return pos
}

func seedStaff(t *testing.T, store *sqlite.Store, id, name string, pos engine.Position) school.StaffMember {
	member := school.StaffMember{ID: engine.StaffID(id), FullName: name, Position: pos}
	require.NoError(t, store.SaveStaff(context.Background(), member))
	return member
}

func seedDay(t *testing.T, store *sqlite.Store, date engine.Date, staffID string, hours float64) {
	require.NoError(t, store.ReplaceDay(context.Background(), date, []engine.AttendanceRecord{{
		ID:      staffID + "-" + date.String(),
		StaffID: engine.StaffID(staffID),
		Date:    date,
		Hours:   decimal.NewFromFloat(hours),
	}}))
}

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	}
}

// =============================================================================
// PAYROLL SERVICE TESTS
// =============================================================================

func TestPayrollService_HourlyStaff_SumsStoredAttendance(t *testing.T) {
	// GIVEN: Hourly teacher at 45,000/hour with 20 hours logged in June
	// WHEN: Computing June payroll
	// THEN: Payable is 900,000

	store := newTestStore(t)
	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-1", "Aziza Karimova", teacher)

	seedDay(t, store, engine.NewDate(2024, time.June, 3), "staff-1", 8)
	seedDay(t, store, engine.NewDate(2024, time.June, 4), "staff-1", 12)
	// Attendance outside June must not count.
	seedDay(t, store, engine.NewDate(2024, time.May, 31), "staff-1", 8)

	svc := school.NewPayrollService(store, store, engine.PayrollCalculator{})
	entry, err := svc.MonthlyPay(context.Background(), "staff-1", 2024, time.June)
	require.NoError(t, err)

	assert.True(t, entry.TotalHours.Equal(decimal.NewFromInt(20)), "total hours: %v", entry.TotalHours)
	assert.True(t, entry.Payable.Equal(engine.MustParseMoney("900000")), "payable: %v", entry.Payable)
}

func TestPayrollService_MonthlyStaff_FullRateWithoutAttendance(t *testing.T) {
	// GIVEN: Monthly director at 3,000,000, no attendance logged
	// WHEN: Computing payroll
	// THEN: Full salary regardless

	store := newTestStore(t)
	director := seedPosition(t, store, "pos-director", engine.PositionMonthly, "3000000")
	seedStaff(t, store, "staff-1", "Malika Yusupova", director)

	svc := school.NewPayrollService(store, store, engine.PayrollCalculator{})
	entry, err := svc.MonthlyPay(context.Background(), "staff-1", 2024, time.June)
	require.NoError(t, err)

	assert.True(t, entry.Payable.Equal(engine.MustParseMoney("3000000")))
	assert.True(t, entry.TotalHours.IsZero())
}

func TestPayrollService_UnknownStaff(t *testing.T) {
	store := newTestStore(t)
	svc := school.NewPayrollService(store, store, engine.PayrollCalculator{})

	_, err := svc.MonthlyPay(context.Background(), "staff-ghost", 2024, time.June)
	assert.ErrorIs(t, err, engine.ErrStaffNotFound)
}

func TestPayrollService_CurrentMonthPay_UsesClock(t *testing.T) {
	// GIVEN: Attendance in June and a clock fixed to June
	// WHEN: Computing current-month pay
	// THEN: June's hours are used, not the wall clock's month

	store := newTestStore(t)
	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-1", "Aziza Karimova", teacher)
	seedDay(t, store, engine.NewDate(2024, time.June, 3), "staff-1", 10)

	svc := school.NewPayrollService(store, store, engine.PayrollCalculator{})
	svc.Clock = fixedClock(2024, time.June, 20)

	entry, err := svc.CurrentMonthPay(context.Background(), "staff-1")
	require.NoError(t, err)
	assert.Equal(t, 2024, entry.Year)
	assert.Equal(t, time.June, entry.Month)
	assert.True(t, entry.Payable.Equal(engine.MustParseMoney("450000")))
}

func TestPayrollService_RunMonth_IsolatesFailures(t *testing.T) {
	// GIVEN: A roster where one staff member has a corrupt position type
	// WHEN: Running payroll for the whole month
	// THEN: The bad member lands in Failures; everyone else is paid

	store := newTestStore(t)
	ctx := context.Background()

	teacher := seedPosition(t, store, "pos-teacher", engine.PositionHourly, "45000")
	seedStaff(t, store, "staff-good", "Aziza Karimova", teacher)
	seedDay(t, store, engine.NewDate(2024, time.June, 3), "staff-good", 20)

	badPos := seedPosition(t, store, "pos-bad", engine.PositionHourly, "100")
	require.NoError(t, store.SaveStaff(ctx, school.StaffMember{ID: "staff-bad", FullName: "Broken Row", Position: badPos}))

	svc := school.NewPayrollService(&positionCorruptingStore{store}, store, engine.PayrollCalculator{})
	run, err := svc.RunMonth(ctx, 2024, time.June)
	require.NoError(t, err)

	require.Len(t, run.Entries, 1)
	assert.Equal(t, engine.StaffID("staff-good"), run.Entries[0].StaffID)
	assert.True(t, run.TotalPayable.Equal(engine.MustParseMoney("900000")))

	require.Len(t, run.Failures, 1)
	assert.Equal(t, engine.StaffID("staff-bad"), run.Failures[0].StaffID)
	assert.True(t, errors.Is(run.Failures[0].Err, engine.ErrUnknownPositionType))
}

// positionCorruptingStore rewrites staff-bad's position type to an unknown
// value, simulating a corrupt row that survived a schema migration.
type positionCorruptingStore struct {
	*sqlite.Store
}

func (s *positionCorruptingStore) ListStaff(ctx context.Context) ([]school.StaffMember, error) {
	roster, err := s.Store.ListStaff(ctx)
	if err != nil {
		return nil, err
	}
	for i := range roster {
		if roster[i].ID == "staff-bad" {
			roster[i].Position.Type = "commission"
		}
	}
	return roster, nil
}
