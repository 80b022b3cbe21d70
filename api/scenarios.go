/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the database with recognizable demo data so the API can be
  explored without hand-crafting entities. Each scenario uses fixed IDs,
  so loading twice upserts rather than duplicates; seeded payments carry
  idempotency keys for the same reason.

SCENARIOS:
  small-school:  Two positions, three staff, three students, one week of
                 attendance
  debtors:       Students carrying outstanding balances plus partial
                 payments, for exercising the debtor report

SEE ALSO:
  - handlers.go: Scenario endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/maktab/school-engine/engine"
	"github.com/maktab/school-engine/school"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "small-school",
		Name:        "Small School",
		Description: "Two positions, three staff members, three students, one week of attendance",
	},
	{
		ID:          "debtors",
		Name:        "Outstanding Balances",
		Description: "Students with debts and partial payments, for the debtor report",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario reports which scenario was loaded last, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"current": h.currentScenario})
}

// LoadScenario seeds the database with the selected scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ID {
	case "small-school":
		err = h.loadSmallSchool(r.Context())
	case "debtors":
		err = h.loadDebtors(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ID})
}

func (h *Handler) loadSmallSchool(ctx context.Context) error {
	teacher := engine.Position{
		ID:   "pos-teacher",
		Name: "Teacher",
		Type: engine.PositionHourly,
		Rate: engine.MustParseMoney("45000"),
	}
	director := engine.Position{
		ID:   "pos-director",
		Name: "Director",
		Type: engine.PositionMonthly,
		Rate: engine.MustParseMoney("3000000"),
	}
	for _, pos := range []engine.Position{teacher, director} {
		if err := h.Store.SavePosition(ctx, pos); err != nil {
			return err
		}
	}

	staff := []school.StaffMember{
		{ID: "staff-aziza", FullName: "Aziza Karimova", Position: teacher},
		{ID: "staff-jasur", FullName: "Jasur Toshpulatov", Position: teacher},
		{ID: "staff-malika", FullName: "Malika Yusupova", Position: director},
	}
	for _, m := range staff {
		if err := h.Store.SaveStaff(ctx, m); err != nil {
			return err
		}
	}

	students := []school.Student{
		{
			ID:             "student-ali",
			FullName:       "Ali Rahimov",
			Grade:          3,
			EnrollmentDate: engine.NewDate(2023, 9, 1),
			MonthlyFee:     engine.MustParseMoney("800000"),
			PaymentType:    engine.PaymentMonthly,
		},
		{
			ID:             "student-zilola",
			FullName:       "Zilola Abdullayeva",
			Grade:          5,
			EnrollmentDate: engine.NewDate(2023, 8, 15),
			MonthlyFee:     engine.MustParseMoney("900000"),
			PaymentType:    engine.PaymentAnniversary,
		},
		{
			ID:             "student-timur",
			FullName:       "Timur Saidov",
			Grade:          1,
			EnrollmentDate: engine.NewDate(2024, 1, 31),
			MonthlyFee:     engine.MustParseMoney("750000"),
			PaymentType:    engine.PaymentAnniversary,
		},
	}
	for _, s := range students {
		if err := h.Store.SaveStudent(ctx, s); err != nil {
			return err
		}
	}

	// One week of attendance for the hourly staff.
	day := engine.Today().AddDays(-7)
	for i := 0; i < 5; i++ {
		date := day.AddDays(i)
		records := []engine.AttendanceRecord{
			{ID: fmt.Sprintf("att-aziza-%d", i), StaffID: "staff-aziza", Date: date, Hours: decimal.NewFromInt(6)},
			{ID: fmt.Sprintf("att-jasur-%d", i), StaffID: "staff-jasur", Date: date, Hours: decimal.NewFromFloat(4.5)},
		}
		if err := h.Store.ReplaceDay(ctx, date, records); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadDebtors(ctx context.Context) error {
	if err := h.loadSmallSchool(ctx); err != nil {
		return err
	}

	debtors := []school.Student{
		{
			ID:             "student-behruz",
			FullName:       "Behruz Nazarov",
			Grade:          7,
			EnrollmentDate: engine.NewDate(2023, 10, 5),
			MonthlyFee:     engine.MustParseMoney("850000"),
			Balance:        engine.MustParseMoney("-1700000"),
			PaymentType:    engine.PaymentMonthly,
		},
		{
			ID:             "student-gulnora",
			FullName:       "Gulnora Ismoilova",
			Grade:          4,
			EnrollmentDate: engine.NewDate(2024, 2, 20),
			MonthlyFee:     engine.MustParseMoney("780000"),
			Balance:        engine.MustParseMoney("-390000"),
			PaymentType:    engine.PaymentAnniversary,
		},
	}
	for _, s := range debtors {
		// Re-loading must not reset balances the seeded payment already
		// moved; existing students are left alone.
		existing, err := h.Store.GetStudent(ctx, s.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := h.Store.SaveStudent(ctx, s); err != nil {
			return err
		}
	}

	// A partial payment against the larger debt. The idempotency key makes
	// repeated scenario loads a no-op instead of a duplicate entry.
	_, err := h.Payments.RecordPayment(ctx, "student-behruz", school.PaymentInput{
		Amount:         engine.MustParseMoney("500000"),
		Note:           "Partial payment (demo)",
		Actor:          "scenario-loader",
		IdempotencyKey: "scenario-debtors-behruz-1",
	})
	if err != nil && err != engine.ErrDuplicateIdempotencyKey {
		return err
	}
	return nil
}
