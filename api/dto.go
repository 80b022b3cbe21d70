/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Money and hours travel as decimal strings ("3000000", "7.5"), never as
  JSON numbers. Parsing happens in handlers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	Grade          int    `json:"grade"`
	EnrollmentDate string `json:"enrollment_date"`
	MonthlyFee     string `json:"monthly_fee"`
	Balance        string `json:"balance"`
	IsArchived     bool   `json:"is_archived"`
	PaymentType    string `json:"payment_type"`
}

// SaveStudentRequest creates or updates a student.
type SaveStudentRequest struct {
	ID             string `json:"id,omitempty"`
	FullName       string `json:"full_name"`
	Grade          int    `json:"grade"`
	EnrollmentDate string `json:"enrollment_date"`
	MonthlyFee     string `json:"monthly_fee"`
	Balance        string `json:"balance,omitempty"`
	PaymentType    string `json:"payment_type"`
}

// DueDateDTO is the next payment deadline for a student.
type DueDateDTO struct {
	StudentID   string `json:"student_id"`
	PaymentType string `json:"payment_type"`
	DueDate     string `json:"due_date"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents one ledger entry.
type PaymentDTO struct {
	ID           string `json:"id"`
	StudentID    string `json:"student_id"`
	Amount       string `json:"amount"`
	Note         string `json:"note,omitempty"`
	Date         string `json:"date"`
	BalanceAfter string `json:"balance_after"`
	CreatedBy    string `json:"created_by,omitempty"`
}

// RecordPaymentRequest submits a payment against a student's balance.
type RecordPaymentRequest struct {
	Amount         string `json:"amount"`
	Note           string `json:"note,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// =============================================================================
// STAFF AND POSITIONS
// =============================================================================

// PositionDTO represents a pay policy.
type PositionDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Rate string `json:"rate"`
}

// SavePositionRequest creates or updates a position.
type SavePositionRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
	Rate string `json:"rate"`
}

// StaffDTO represents a staff member with their resolved position.
type StaffDTO struct {
	ID       string      `json:"id"`
	FullName string      `json:"full_name"`
	Position PositionDTO `json:"position"`
}

// SaveStaffRequest creates or updates a staff member.
type SaveStaffRequest struct {
	ID         string `json:"id,omitempty"`
	FullName   string `json:"full_name"`
	PositionID string `json:"position_id"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRecordDTO is one staff member's hours for one day.
type AttendanceRecordDTO struct {
	ID      string `json:"id,omitempty"`
	StaffID string `json:"staff_id"`
	Date    string `json:"date"`
	Hours   string `json:"hours"`
}

// SubmitDayRequest replaces a day's attendance wholesale.
type SubmitDayRequest struct {
	Date    string                `json:"date"`
	Records []AttendanceRecordDTO `json:"records"`
}

// UpdateHoursRequest edits one existing record's hours.
type UpdateHoursRequest struct {
	StaffID string `json:"staff_id"`
	Date    string `json:"date"`
	Hours   string `json:"hours"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// PayrollEntryDTO is one staff member's payroll result for one month.
type PayrollEntryDTO struct {
	StaffID      string `json:"staff_id"`
	FullName     string `json:"full_name"`
	PositionName string `json:"position_name"`
	PositionType string `json:"position_type"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	TotalHours   string `json:"total_hours"`
	Payable      string `json:"payable"`
}

// PayrollRunDTO is a whole-roster payroll run.
type PayrollRunDTO struct {
	Year         int               `json:"year"`
	Month        int               `json:"month"`
	Entries      []PayrollEntryDTO `json:"entries"`
	TotalPayable string            `json:"total_payable"`
	Failures     []PayrollErrorDTO `json:"failures,omitempty"`
}

// PayrollErrorDTO is a staff member skipped during a run.
type PayrollErrorDTO struct {
	StaffID string `json:"staff_id"`
	Error   string `json:"error"`
}

// =============================================================================
// REPORTS AND EXPENSES
// =============================================================================

// DebtorDTO is one student with an outstanding balance.
type DebtorDTO struct {
	StudentID  string `json:"student_id"`
	FullName   string `json:"full_name"`
	Grade      int    `json:"grade"`
	Debt       string `json:"debt"`
	MonthlyFee string `json:"monthly_fee"`
}

// DebtorReportDTO is the debtor overview plus the plain-text summary input.
type DebtorReportDTO struct {
	Month       string      `json:"month"`
	Debtors     []DebtorDTO `json:"debtors"`
	PromptInput string      `json:"prompt_input"`
}

// ExpenseDTO represents one expense line.
type ExpenseDTO struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// SaveExpenseRequest creates or updates an expense.
type SaveExpenseRequest struct {
	ID          string `json:"id,omitempty"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// =============================================================================
// TESTS
// =============================================================================

// TestDTO is one graded assessment with its per-student results, highest
// score first.
type TestDTO struct {
	ID      string          `json:"id"`
	Month   string          `json:"month"`
	Grade   int             `json:"grade"`
	Results []TestResultDTO `json:"results"`
}

// TestResultDTO is one student's score on a test.
type TestResultDTO struct {
	ID          string `json:"id"`
	TestID      string `json:"test_id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Score       int    `json:"score"`
}

// TestScoreInput is one submitted score. The student name is resolved
// server-side.
type TestScoreInput struct {
	StudentID string `json:"student_id"`
	Score     int    `json:"score"`
}

// SaveTestRequest records a test with its scores.
type SaveTestRequest struct {
	ID      string           `json:"id,omitempty"`
	Month   string           `json:"month"`
	Grade   int              `json:"grade"`
	Results []TestScoreInput `json:"results"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
