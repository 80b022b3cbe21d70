/*
handlers.go - HTTP API handlers for the school administration engine

PURPOSE:
  Exposes the calculation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                 List students (?include_archived=true)
    POST   /api/students                 Create/update student
    GET    /api/students/{id}            Get student details
    DELETE /api/students/{id}            Delete (only with empty ledger)
    POST   /api/students/{id}/archive    Archive instead of delete
    GET    /api/students/{id}/due-date   Next payment deadline
    GET    /api/students/{id}/payments   Payment history
    POST   /api/students/{id}/payments   Record a payment

  Staff:
    GET    /api/staff                    List staff
    POST   /api/staff                    Create/update staff member
    GET    /api/staff/{id}               Get staff details
    DELETE /api/staff/{id}               Delete (cascades attendance)
    GET    /api/staff/{id}/payroll       One member's pay (?year=&month=)

  Positions:
    GET    /api/positions                List positions
    POST   /api/positions                Create/update position
    DELETE /api/positions/{id}           Delete (refused while referenced)

  Attendance:
    GET    /api/attendance               Records in range (?from=&to=)
    POST   /api/attendance               Replace a day's batch
    PUT    /api/attendance               Edit one record's hours

  Payroll:
    POST   /api/payroll/run              Whole-roster run (?year=&month=)

  Reports:
    GET    /api/reports/debtors          Debtor overview + summary text

  Expenses:
    GET    /api/expenses                 List expenses
    POST   /api/expenses                 Create/update expense
    DELETE /api/expenses/{id}            Delete expense

  Tests:
    GET    /api/tests                    List tests with ranked results
    POST   /api/tests                    Record a test with its scores
    DELETE /api/tests/{id}               Delete a test and its results

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (idempotency, referenced entity)
  - 500: Internal errors

ACTOR:
  Mutating endpoints read the X-Actor header for the audit log. Missing
  header means the entry is recorded without an actor.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maktab/school-engine/engine"
	"github.com/maktab/school-engine/report"
	"github.com/maktab/school-engine/school"
	"github.com/maktab/school-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Payroll  *school.PayrollService
	Payments *school.PaymentService
	Roster   *school.RosterService

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and wires the
// domain services around it.
func NewHandler(store *sqlite.Store) *Handler {
	audit := store.Audit()
	return &Handler{
		Store:    store,
		Payroll:  school.NewPayrollService(store, store, engine.PayrollCalculator{Policy: engine.DefaultPayrollPolicy()}),
		Payments: school.NewPaymentService(store, store, store, audit),
		Roster:   school.NewRosterService(store, store, store, store, store, store, audit),
	}
}

func actor(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students, excluding archived unless asked.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	students, err := h.Store.ListStudents(r.Context(), includeArchived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = studentToDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := engine.StudentID(chi.URLParam(r, "id"))

	student, err := h.Store.GetStudent(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, studentToDTO(*student))
}

// SaveStudent creates or updates a student.
func (h *Handler) SaveStudent(w http.ResponseWriter, r *http.Request) {
	var req SaveStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	enrollment, err := engine.ParseDate(req.EnrollmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid enrollment date", err)
		return
	}
	fee, err := parseMoney(req.MonthlyFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly fee", err)
		return
	}
	balance := engine.Money{}
	if req.Balance != "" {
		balance, err = parseMoney(req.Balance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid balance", err)
			return
		}
	}

	student := school.Student{
		ID:             engine.StudentID(req.ID),
		FullName:       req.FullName,
		Grade:          req.Grade,
		EnrollmentDate: enrollment,
		MonthlyFee:     fee,
		Balance:        balance,
		PaymentType:    engine.PaymentType(req.PaymentType),
	}
	if student.ID == "" {
		student.ID = engine.StudentID(uuid.NewString())
	} else {
		// Editing never touches the balance or the archive flag: the balance
		// moves only through payment application, archiving through the
		// archive endpoint. A client-supplied balance counts at creation only.
		existing, err := h.Store.GetStudent(r.Context(), student.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load student", err)
			return
		}
		if existing != nil {
			student.Balance = existing.Balance
			student.IsArchived = existing.IsArchived
		}
	}

	if err := h.Roster.SaveStudent(r.Context(), student); err != nil {
		writeDomainError(w, "Failed to save student", err)
		return
	}
	writeJSON(w, http.StatusOK, studentToDTO(student))
}

// ArchiveStudent marks a student archived without touching their ledger.
func (h *Handler) ArchiveStudent(w http.ResponseWriter, r *http.Request) {
	id := engine.StudentID(chi.URLParam(r, "id"))
	if err := h.Roster.ArchiveStudent(r.Context(), id, actor(r)); err != nil {
		writeDomainError(w, "Failed to archive student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteStudent removes a student with an empty ledger.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := engine.StudentID(chi.URLParam(r, "id"))
	if err := h.Roster.DeleteStudent(r.Context(), id, actor(r)); err != nil {
		writeDomainError(w, "Failed to delete student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDueDate returns the student's next payment deadline.
func (h *Handler) GetDueDate(w http.ResponseWriter, r *http.Request) {
	id := engine.StudentID(chi.URLParam(r, "id"))

	due, err := h.Payments.NextDueDate(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute due date", err)
		return
	}

	student, err := h.Store.GetStudent(r.Context(), id)
	if err != nil || student == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load student", err)
		return
	}

	writeJSON(w, http.StatusOK, DueDateDTO{
		StudentID:   string(id),
		PaymentType: string(student.PaymentType),
		DueDate:     due.String(),
	})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns a student's ledger, chronologically.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := engine.StudentID(chi.URLParam(r, "id"))

	payments, err := h.Payments.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load payment history", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = paymentToDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment applies a payment to a student's balance.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := engine.StudentID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	payment, err := h.Payments.RecordPayment(r.Context(), id, school.PaymentInput{
		Amount:         amount,
		Note:           req.Note,
		Actor:          actor(r),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentToDTO(payment))
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// ListStaff returns the staff roster.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Store.ListStaff(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list staff", err)
		return
	}

	dtos := make([]StaffDTO, len(roster))
	for i, m := range roster {
		dtos[i] = staffToDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStaff returns a single staff member.
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	id := engine.StaffID(chi.URLParam(r, "id"))

	member, err := h.Store.GetStaff(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get staff member", err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Staff member not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, staffToDTO(*member))
}

// SaveStaff creates or updates a staff member.
func (h *Handler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	var req SaveStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	position, err := h.Store.GetPosition(r.Context(), engine.PositionID(req.PositionID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve position", err)
		return
	}
	if position == nil {
		writeError(w, http.StatusBadRequest, "Unknown position", nil)
		return
	}

	member := school.StaffMember{
		ID:       engine.StaffID(req.ID),
		FullName: req.FullName,
		Position: *position,
	}
	if member.ID == "" {
		member.ID = engine.StaffID(uuid.NewString())
	}

	if err := h.Roster.SaveStaff(r.Context(), member); err != nil {
		writeDomainError(w, "Failed to save staff member", err)
		return
	}
	writeJSON(w, http.StatusOK, staffToDTO(member))
}

// DeleteStaff removes a staff member and their attendance records.
func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id := engine.StaffID(chi.URLParam(r, "id"))
	if err := h.Roster.DeleteStaff(r.Context(), id, actor(r)); err != nil {
		writeDomainError(w, "Failed to delete staff member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStaffPayroll computes one staff member's pay for the requested month,
// defaulting to the current month.
func (h *Handler) GetStaffPayroll(w http.ResponseWriter, r *http.Request) {
	id := engine.StaffID(chi.URLParam(r, "id"))

	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}

	var entry school.StaffPayroll
	var err error
	if year == 0 {
		entry, err = h.Payroll.CurrentMonthPay(r.Context(), id)
	} else {
		entry, err = h.Payroll.MonthlyPay(r.Context(), id, year, month)
	}
	if err != nil {
		writeDomainError(w, "Failed to compute payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, payrollEntryToDTO(entry))
}

// =============================================================================
// POSITION HANDLERS
// =============================================================================

// ListPositions returns all positions.
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Store.ListPositions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list positions", err)
		return
	}

	dtos := make([]PositionDTO, len(positions))
	for i, p := range positions {
		dtos[i] = positionToDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SavePosition creates or updates a position.
func (h *Handler) SavePosition(w http.ResponseWriter, r *http.Request) {
	var req SavePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate, err := parseMoney(req.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}
	posType, err := engine.ParsePositionType(req.Type)
	if err != nil {
		writeDomainError(w, "Invalid position type", err)
		return
	}

	pos := engine.Position{
		ID:   engine.PositionID(req.ID),
		Name: req.Name,
		Type: posType,
		Rate: rate,
	}
	if pos.ID == "" {
		pos.ID = engine.PositionID(uuid.NewString())
	}

	if err := h.Roster.SavePosition(r.Context(), pos, actor(r)); err != nil {
		writeDomainError(w, "Failed to save position", err)
		return
	}
	writeJSON(w, http.StatusOK, positionToDTO(pos))
}

// DeletePosition refuses while any staff member references the position.
func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	id := engine.PositionID(chi.URLParam(r, "id"))
	if err := h.Roster.DeletePosition(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete position", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns records in a date range. Defaults to today.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	from := engine.Today()
	to := from
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = engine.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = engine.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
	}

	records, err := h.Store.RecordsForRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}

	dtos := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = AttendanceRecordDTO{
			ID:      rec.ID,
			StaffID: string(rec.StaffID),
			Date:    rec.Date.String(),
			Hours:   rec.Hours.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitDay replaces all attendance records for one date.
func (h *Handler) SubmitDay(w http.ResponseWriter, r *http.Request) {
	var req SubmitDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	records := make([]engine.AttendanceRecord, 0, len(req.Records))
	for _, dto := range req.Records {
		hours, err := decimal.NewFromString(dto.Hours)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid hours for staff %s", dto.StaffID), err)
			return
		}
		records = append(records, engine.AttendanceRecord{
			ID:      dto.ID,
			StaffID: engine.StaffID(dto.StaffID),
			Date:    date,
			Hours:   hours,
		})
	}

	if err := h.Roster.SubmitDay(r.Context(), date, records, actor(r)); err != nil {
		writeDomainError(w, "Failed to save attendance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateHours edits one existing record's hours.
func (h *Handler) UpdateHours(w http.ResponseWriter, r *http.Request) {
	var req UpdateHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}

	if err := h.Store.UpdateHours(r.Context(), engine.StaffID(req.StaffID), date, hours); err != nil {
		writeDomainError(w, "Failed to update hours", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// RunPayroll computes payroll for every staff member for the requested
// month, defaulting to the current month.
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonth(w, r)
	if !ok {
		return
	}
	if year == 0 {
		now := time.Now()
		year, month = now.Year(), now.Month()
	}

	run, err := h.Payroll.RunMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to run payroll", err)
		return
	}

	dto := PayrollRunDTO{
		Year:         run.Year,
		Month:        int(run.Month),
		TotalPayable: run.TotalPayable.String(),
	}
	for _, entry := range run.Entries {
		dto.Entries = append(dto.Entries, payrollEntryToDTO(entry))
	}
	for _, failure := range run.Failures {
		dto.Failures = append(dto.Failures, PayrollErrorDTO{
			StaffID: string(failure.StaffID),
			Error:   failure.Err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// DebtorReport returns the debtor overview for the current month plus the
// plain-text summary handed to the downstream report flow.
func (h *Handler) DebtorReport(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	minDebt := engine.Money{}
	if v := r.URL.Query().Get("min_debt"); v != "" {
		if minDebt, err = parseMoney(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid min_debt", err)
			return
		}
	}

	debtors := report.ExtractDebtors(students, minDebt)
	now := time.Now()
	label := report.MonthLabel(now.Year(), now.Month())

	dto := DebtorReportDTO{
		Month:       label,
		PromptInput: report.BuildPromptInput(label, debtors),
	}
	for _, d := range debtors {
		dto.Debtors = append(dto.Debtors, DebtorDTO{
			StudentID:  string(d.Student.ID),
			FullName:   d.Student.FullName,
			Grade:      d.Student.Grade,
			Debt:       d.Debt.String(),
			MonthlyFee: d.Student.MonthlyFee.String(),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns all expense lines, newest first.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Store.ListExpenses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = ExpenseDTO{
			ID:          e.ID,
			Date:        e.Date.String(),
			Amount:      e.Amount.String(),
			Description: e.Description,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveExpense creates or updates an expense line.
func (h *Handler) SaveExpense(w http.ResponseWriter, r *http.Request) {
	var req SaveExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	expense := school.Expense{
		ID:          req.ID,
		Date:        date,
		Amount:      amount,
		Description: req.Description,
	}
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}

	if err := h.Store.SaveExpense(r.Context(), expense); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusOK, ExpenseDTO{
		ID:          expense.ID,
		Date:        expense.Date.String(),
		Amount:      expense.Amount.String(),
		Description: expense.Description,
	})
}

// DeleteExpense removes an expense line.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TEST RESULT HANDLERS
// =============================================================================

// ListTests returns all tests, newest first, each with its results ranked by
// score.
func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.Store.ListTests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tests", err)
		return
	}

	dtos := make([]TestDTO, 0, len(tests))
	for _, t := range tests {
		results, err := h.Store.ResultsForTest(r.Context(), t.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load test results", err)
			return
		}
		dtos = append(dtos, testToDTO(t, results))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveTest records a test with its per-student scores.
func (h *Handler) SaveTest(w http.ResponseWriter, r *http.Request) {
	var req SaveTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month == "" {
		writeError(w, http.StatusBadRequest, "Month is required", nil)
		return
	}

	results := make([]school.TestResult, 0, len(req.Results))
	for _, in := range req.Results {
		results = append(results, school.TestResult{
			StudentID: engine.StudentID(in.StudentID),
			Score:     in.Score,
		})
	}

	test, stored, err := h.Roster.RecordTest(r.Context(), school.Test{
		ID:    req.ID,
		Month: req.Month,
		Grade: req.Grade,
	}, results, actor(r))
	if err != nil {
		writeDomainError(w, "Failed to save test", err)
		return
	}
	writeJSON(w, http.StatusCreated, testToDTO(test, stored))
}

// DeleteTest removes a test and its results.
func (h *Handler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Roster.DeleteTest(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete test", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DTO CONVERSIONS AND HELPERS
// =============================================================================

func studentToDTO(s school.Student) StudentDTO {
	return StudentDTO{
		ID:             string(s.ID),
		FullName:       s.FullName,
		Grade:          s.Grade,
		EnrollmentDate: s.EnrollmentDate.String(),
		MonthlyFee:     s.MonthlyFee.String(),
		Balance:        s.Balance.String(),
		IsArchived:     s.IsArchived,
		PaymentType:    string(s.PaymentType),
	}
}

func paymentToDTO(p engine.Payment) PaymentDTO {
	return PaymentDTO{
		ID:           string(p.ID),
		StudentID:    string(p.StudentID),
		Amount:       p.Amount.String(),
		Note:         p.Note,
		Date:         p.Date.String(),
		BalanceAfter: p.BalanceAfter.String(),
		CreatedBy:    p.CreatedBy,
	}
}

func positionToDTO(p engine.Position) PositionDTO {
	return PositionDTO{
		ID:   string(p.ID),
		Name: p.Name,
		Type: string(p.Type),
		Rate: p.Rate.String(),
	}
}

func staffToDTO(m school.StaffMember) StaffDTO {
	return StaffDTO{
		ID:       string(m.ID),
		FullName: m.FullName,
		Position: positionToDTO(m.Position),
	}
}

func payrollEntryToDTO(e school.StaffPayroll) PayrollEntryDTO {
	return PayrollEntryDTO{
		StaffID:      string(e.StaffID),
		FullName:     e.FullName,
		PositionName: e.Position.Name,
		PositionType: string(e.Position.Type),
		Year:         e.Year,
		Month:        int(e.Month),
		TotalHours:   e.TotalHours.String(),
		Payable:      e.Payable.String(),
	}
}

func testToDTO(t school.Test, results []school.TestResult) TestDTO {
	dto := TestDTO{ID: t.ID, Month: t.Month, Grade: t.Grade}
	for _, r := range results {
		dto.Results = append(dto.Results, TestResultDTO{
			ID:          r.ID,
			TestID:      r.TestID,
			StudentID:   string(r.StudentID),
			StudentName: r.StudentName,
			Score:       r.Score,
		})
	}
	return dto
}

func parseMoney(s string) (engine.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return engine.Money{}, err
	}
	return engine.Money{Value: d}, nil
}

// yearMonth parses optional ?year=&month= query parameters. Returns
// year == 0 when neither is present; writes a 400 and returns ok=false on
// malformed input.
func yearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")
	if yearStr == "" && monthStr == "" {
		return 0, 0, true
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	case errors.Is(err, engine.ErrDuplicateIdempotencyKey),
		errors.Is(err, school.ErrStudentHasPayments),
		errors.Is(err, school.ErrPositionInUse):
		writeError(w, http.StatusConflict, msg, err)
	case engine.IsClientError(err),
		errors.Is(err, school.ErrInvalidGrade),
		errors.Is(err, school.ErrInvalidScore),
		errors.Is(err, school.ErrInvalidMonthlyFee):
		writeError(w, http.StatusBadRequest, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
