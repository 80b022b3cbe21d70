package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maktab/school-engine/api"
	"github.com/maktab/school-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store)
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "test-admin")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createPosition(t *testing.T, server *httptest.Server, name, posType, rate string) api.PositionDTO {
	resp := doJSON(t, http.MethodPost, server.URL+"/api/positions", api.SavePositionRequest{
		Name: name, Type: posType, Rate: rate,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pos api.PositionDTO
	decode(t, resp, &pos)
	return pos
}

func createStaff(t *testing.T, server *httptest.Server, name, positionID string) api.StaffDTO {
	resp := doJSON(t, http.MethodPost, server.URL+"/api/staff", api.SaveStaffRequest{
		FullName: name, PositionID: positionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var staff api.StaffDTO
	decode(t, resp, &staff)
	return staff
}

func createStudent(t *testing.T, server *httptest.Server, req api.SaveStudentRequest) api.StudentDTO {
	resp := doJSON(t, http.MethodPost, server.URL+"/api/students", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var student api.StudentDTO
	decode(t, resp, &student)
	return student
}

// =============================================================================
// STUDENT AND PAYMENT FLOWS
// =============================================================================

func TestAPI_StudentPaymentFlow(t *testing.T) {
	// GIVEN: A student owing 150,000
	// WHEN: Recording a 100,000 payment over HTTP
	// THEN: 201 with the snapshot; balance and history reflect it

	server := newTestServer(t)

	student := createStudent(t, server, api.SaveStudentRequest{
		FullName:       "Ali Rahimov",
		Grade:          3,
		EnrollmentDate: "2023-09-01",
		MonthlyFee:     "800000",
		Balance:        "-150000",
		PaymentType:    "monthly",
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students/"+student.ID+"/payments", api.RecordPaymentRequest{
		Amount: "100000",
		Note:   "June fee",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payment api.PaymentDTO
	decode(t, resp, &payment)
	assert.Equal(t, "-50000", payment.BalanceAfter)
	assert.Equal(t, "test-admin", payment.CreatedBy)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/students/"+student.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated api.StudentDTO
	decode(t, resp, &updated)
	assert.Equal(t, "-50000", updated.Balance)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/students/"+student.ID+"/payments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []api.PaymentDTO
	decode(t, resp, &history)
	require.Len(t, history, 1)
}

func TestAPI_EditStudent_PreservesBalanceAndArchiveFlag(t *testing.T) {
	// GIVEN: A student owing 150,000
	// WHEN: Re-posting the student with only the grade changed
	// THEN: The grade updates; the balance stays -150,000

	server := newTestServer(t)
	student := createStudent(t, server, api.SaveStudentRequest{
		FullName:       "Ali Rahimov",
		Grade:          3,
		EnrollmentDate: "2023-09-01",
		MonthlyFee:     "800000",
		Balance:        "-150000",
		PaymentType:    "monthly",
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students", api.SaveStudentRequest{
		ID:             student.ID,
		FullName:       "Ali Rahimov",
		Grade:          4,
		EnrollmentDate: "2023-09-01",
		MonthlyFee:     "800000",
		PaymentType:    "monthly",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var edited api.StudentDTO
	decode(t, resp, &edited)
	assert.Equal(t, "-150000", edited.Balance, "the response reflects the preserved balance")

	resp = doJSON(t, http.MethodGet, server.URL+"/api/students/"+student.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored api.StudentDTO
	decode(t, resp, &stored)
	assert.Equal(t, 4, stored.Grade)
	assert.Equal(t, "-150000", stored.Balance, "editing a student must not move the balance")

	// An explicit balance on an edit is ignored too.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/students", api.SaveStudentRequest{
		ID:             student.ID,
		FullName:       "Ali Rahimov",
		Grade:          4,
		EnrollmentDate: "2023-09-01",
		MonthlyFee:     "800000",
		Balance:        "999999",
		PaymentType:    "monthly",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, server.URL+"/api/students/"+student.ID, nil)
	decode(t, resp, &stored)
	assert.Equal(t, "-150000", stored.Balance)
}

func TestAPI_SaveStudent_BadGrade_BadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students", api.SaveStudentRequest{
		FullName: "No Grade", Grade: 0, EnrollmentDate: "2023-09-01",
		MonthlyFee: "800000", PaymentType: "monthly",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RecordPayment_DuplicateIdempotencyKey_Conflict(t *testing.T) {
	server := newTestServer(t)
	student := createStudent(t, server, api.SaveStudentRequest{
		FullName: "Ali Rahimov", Grade: 3, EnrollmentDate: "2023-09-01",
		MonthlyFee: "800000", PaymentType: "monthly",
	})

	req := api.RecordPaymentRequest{Amount: "100000", IdempotencyKey: "june-1"}
	resp := doJSON(t, http.MethodPost, server.URL+"/api/students/"+student.ID+"/payments", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/students/"+student.ID+"/payments", req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RecordPayment_UnknownStudent_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students/ghost/payments", api.RecordPaymentRequest{
		Amount: "100000",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SaveStudent_BadPaymentType_BadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students", api.SaveStudentRequest{
		FullName: "Bad Cycle", Grade: 3, EnrollmentDate: "2023-09-01",
		MonthlyFee: "800000", PaymentType: "weekly",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DueDate_PerCycle(t *testing.T) {
	// The deadline is computed against the server's real clock, so assert
	// shape and cycle, not an exact date.
	server := newTestServer(t)
	student := createStudent(t, server, api.SaveStudentRequest{
		FullName: "Zilola Abdullayeva", Grade: 5, EnrollmentDate: "2023-08-15",
		MonthlyFee: "900000", PaymentType: "anniversary",
	})

	resp := doJSON(t, http.MethodGet, server.URL+"/api/students/"+student.ID+"/due-date", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var due api.DueDateDTO
	decode(t, resp, &due)
	assert.Equal(t, "anniversary", due.PaymentType)
	assert.Regexp(t, `^\d{4}-\d{2}-15$`, due.DueDate, "anniversary deadlines keep the enrollment day")
}

// =============================================================================
// ATTENDANCE AND PAYROLL FLOWS
// =============================================================================

func TestAPI_AttendanceAndPayrollFlow(t *testing.T) {
	// GIVEN: An hourly teacher with two submitted days in June 2024
	// WHEN: Asking for June payroll
	// THEN: hours sum to 20 and payable is 900,000

	server := newTestServer(t)
	pos := createPosition(t, server, "Teacher", "hourly", "45000")
	staff := createStaff(t, server, "Aziza Karimova", pos.ID)

	for day, h := range map[string]string{"2024-06-03": "8", "2024-06-04": "12"} {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/attendance", api.SubmitDayRequest{
			Date: day,
			Records: []api.AttendanceRecordDTO{
				{StaffID: staff.ID, Date: day, Hours: h},
			},
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	url := fmt.Sprintf("%s/api/staff/%s/payroll?year=2024&month=6", server.URL, staff.ID)
	resp := doJSON(t, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entry api.PayrollEntryDTO
	decode(t, resp, &entry)
	assert.Equal(t, "20", entry.TotalHours)
	assert.Equal(t, "900000", entry.Payable)

	// Whole-roster run for the same month.
	resp = doJSON(t, http.MethodPost, server.URL+"/api/payroll/run?year=2024&month=6", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run api.PayrollRunDTO
	decode(t, resp, &run)
	require.Len(t, run.Entries, 1)
	assert.Equal(t, "900000", run.TotalPayable)
	assert.Empty(t, run.Failures)
}

func TestAPI_SubmitDay_InvalidHours_BadRequest(t *testing.T) {
	server := newTestServer(t)
	pos := createPosition(t, server, "Teacher", "hourly", "45000")
	staff := createStaff(t, server, "Aziza Karimova", pos.ID)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/attendance", api.SubmitDayRequest{
		Date: "2024-06-03",
		Records: []api.AttendanceRecordDTO{
			{StaffID: staff.ID, Date: "2024-06-03", Hours: "30"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_DeletePosition_InUse_Conflict(t *testing.T) {
	server := newTestServer(t)
	pos := createPosition(t, server, "Teacher", "hourly", "45000")
	createStaff(t, server, "Aziza Karimova", pos.ID)

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/positions/"+pos.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// REPORT AND SCENARIO FLOWS
// =============================================================================

func TestAPI_DebtorReport(t *testing.T) {
	server := newTestServer(t)
	createStudent(t, server, api.SaveStudentRequest{
		FullName: "Behruz Nazarov", Grade: 7, EnrollmentDate: "2023-10-05",
		MonthlyFee: "850000", Balance: "-1700000", PaymentType: "monthly",
	})
	createStudent(t, server, api.SaveStudentRequest{
		FullName: "Settled Student", Grade: 2, EnrollmentDate: "2023-10-05",
		MonthlyFee: "850000", PaymentType: "monthly",
	})

	resp := doJSON(t, http.MethodGet, server.URL+"/api/reports/debtors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep api.DebtorReportDTO
	decode(t, resp, &rep)
	require.Len(t, rep.Debtors, 1)
	assert.Equal(t, "Behruz Nazarov", rep.Debtors[0].FullName)
	assert.Equal(t, "1700000", rep.Debtors[0].Debt)
	assert.Contains(t, rep.PromptInput, "Behruz Nazarov")
}

func TestAPI_TestResultsFlow(t *testing.T) {
	// GIVEN: Two enrolled students
	// WHEN: Recording a test with their scores
	// THEN: The listing shows the test with results ranked by score

	server := newTestServer(t)
	s1 := createStudent(t, server, api.SaveStudentRequest{
		FullName: "Ali Rahimov", Grade: 3, EnrollmentDate: "2023-09-01",
		MonthlyFee: "800000", PaymentType: "monthly",
	})
	s2 := createStudent(t, server, api.SaveStudentRequest{
		FullName: "Zilola Abdullayeva", Grade: 3, EnrollmentDate: "2023-08-15",
		MonthlyFee: "900000", PaymentType: "anniversary",
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/tests", api.SaveTestRequest{
		Month: "June 2024",
		Grade: 3,
		Results: []api.TestScoreInput{
			{StudentID: s1.ID, Score: 72},
			{StudentID: s2.ID, Score: 95},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created api.TestDTO
	decode(t, resp, &created)
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Results, 2)
	assert.Equal(t, "Ali Rahimov", created.Results[0].StudentName)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/tests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tests []api.TestDTO
	decode(t, resp, &tests)
	require.Len(t, tests, 1)
	require.Len(t, tests[0].Results, 2)
	assert.Equal(t, 95, tests[0].Results[0].Score, "highest score first")
	assert.Equal(t, "Zilola Abdullayeva", tests[0].Results[0].StudentName)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/tests/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, server.URL+"/api/tests", nil)
	decode(t, resp, &tests)
	assert.Empty(t, tests)
}

func TestAPI_SaveTest_BadScore_BadRequest(t *testing.T) {
	server := newTestServer(t)
	student := createStudent(t, server, api.SaveStudentRequest{
		FullName: "Ali Rahimov", Grade: 3, EnrollmentDate: "2023-09-01",
		MonthlyFee: "800000", PaymentType: "monthly",
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/tests", api.SaveTestRequest{
		Month:   "June 2024",
		Grade:   3,
		Results: []api.TestScoreInput{{StudentID: student.ID, Score: 101}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_LoadScenario(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/scenarios/load", api.LoadScenarioRequest{ID: "debtors"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Loading again must be idempotent (fixed IDs + idempotency keys).
	resp = doJSON(t, http.MethodPost, server.URL+"/api/scenarios/load", api.LoadScenarioRequest{ID: "debtors"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/students?include_archived=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var students []api.StudentDTO
	decode(t, resp, &students)
	assert.GreaterOrEqual(t, len(students), 5)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/scenarios/current", nil)
	var current map[string]string
	decode(t, resp, &current)
	assert.Equal(t, "debtors", current["current"])
}
