package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/aiformat"
	"github.com/scorecheck/backend/internal/answerkey"
	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/report"
	"github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/scoring"
	"github.com/scorecheck/backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	res *services.AnalyzeResult
	err error
	got services.AnalyzeRequest
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req services.AnalyzeRequest) (*services.AnalyzeResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeKeyStore struct {
	submitted []string
	err       error
}

func (f *fakeKeyStore) Upload(ctx context.Context, scope models.ExamScope, raw string, actor services.Actor) (*services.UploadResult, error) {
	return &services.UploadResult{}, f.err
}

func (f *fakeKeyStore) SaveManual(ctx context.Context, scope models.ExamScope, subject string, answers []models.AnswerItem, actor services.Actor) error {
	return f.err
}

func (f *fakeKeyStore) SubmitPending(ctx context.Context, scope models.ExamScope, raw, submittedBy string) ([]string, error) {
	return f.submitted, f.err
}

func (f *fakeKeyStore) ListPending(ctx context.Context) ([]models.PendingAnswerKey, error) {
	return nil, f.err
}

func (f *fakeKeyStore) Approve(ctx context.Context, id uuid.UUID, actor services.Actor) (*models.AnswerKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AnswerKey{Subject: "Physics"}, nil
}

func (f *fakeKeyStore) Reject(ctx context.Context, id uuid.UUID, actor services.Actor) error {
	return f.err
}

type fakeFormatter struct {
	rows []aiformat.Row
	err  error
}

func (f fakeFormatter) Format(ctx context.Context, raw string) ([]aiformat.Row, error) {
	return f.rows, f.err
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Invalid JSON body %q: %v", w.Body.String(), err)
	}
	return out
}

var scopeBody = map[string]string{
	"examName":  "CUET",
	"examYear":  "2025",
	"examDate":  "30/05/2025",
	"shiftName": "Shift 1",
}

func analyzeBody(extra map[string]string) map[string]string {
	body := map[string]string{"responseInput": "https://example.com/sheet.html"}
	for k, v := range scopeBody {
		body[k] = v
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestAnalyze(t *testing.T) {
	candidate := responsesheet.Candidate{ApplicationNo: "250510", CandidateName: "Asha", RollNo: "R1"}
	scored := &services.AnalyzeResult{
		ResponseID: uuid.New(),
		Candidate:  candidate,
		Report:     report.OverallReport{TotalScore: 12, MaxTotalScore: 20},
	}

	tests := []struct {
		name     string
		body     map[string]string
		res      *services.AnalyzeResult
		err      error
		status   int
		message  string
		analysis bool
	}{
		{"Scored", analyzeBody(nil), scored, nil, http.StatusOK, "", true},
		{"No answer key", analyzeBody(nil), &services.AnalyzeResult{Candidate: candidate}, scoring.ErrAnswerKeyUnavailable, http.StatusOK, "Answer key not available", false},
		{"Malformed sheet", analyzeBody(nil), nil, fmt.Errorf("%w - missing required student information: Application No", responsesheet.ErrMalformed), http.StatusBadRequest, "", false},
		{"Fetch failed", analyzeBody(nil), nil, fmt.Errorf("%w: unexpected status 404", responsesheet.ErrFetch), http.StatusBadGateway, "", false},
		{"Internal error", analyzeBody(nil), nil, fmt.Errorf("connection refused"), http.StatusInternalServerError, "", false},
		{"Unknown format", analyzeBody(map[string]string{"format": "xml"}), scored, nil, http.StatusBadRequest, "", false},
		{"Missing scope", map[string]string{"responseInput": "x"}, scored, nil, http.StatusBadRequest, "", false},
		{"Missing response input", scopeBody, scored, nil, http.StatusBadRequest, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{res: tt.res, err: tt.err}
			r := gin.New()
			r.POST("/analyze", NewAnalysisHandler(analyzer).Analyze)

			w := doJSON(r, http.MethodPost, "/analyze", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
			body := decode(t, w)
			if tt.status != http.StatusOK {
				if body["success"] != false || body["error"] == "" {
					t.Errorf("Expected error envelope, got %v", body)
				}
				return
			}
			if body["message"] != nil && body["message"] != tt.message {
				t.Errorf("Expected message %q, got %v", tt.message, body["message"])
			}
			if (body["analysis"] != nil) != tt.analysis {
				t.Errorf("Expected analysis present=%v, got %v", tt.analysis, body["analysis"])
			}
			student, _ := body["studentData"].(map[string]any)
			if student["applicationNo"] != "250510" {
				t.Errorf("Expected student data passthrough, got %v", body["studentData"])
			}
		})
	}
}

func TestAnalyze_PassesScope(t *testing.T) {
	analyzer := &fakeAnalyzer{res: &services.AnalyzeResult{}}
	r := gin.New()
	r.POST("/analyze", NewAnalysisHandler(analyzer).Analyze)

	w := doJSON(r, http.MethodPost, "/analyze", analyzeBody(map[string]string{"format": "legacy", "subjectCombination": "PCM"}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	got := analyzer.got
	if got.Scope.ExamName != "CUET" || got.Scope.ShiftName != "Shift 1" || got.Scope.SubjectCombination != "PCM" {
		t.Errorf("Unexpected scope: %+v", got.Scope)
	}
	if got.Scope.ExamDate.Format("2006-01-02") != "2025-05-30" {
		t.Errorf("Expected exam date 2025-05-30, got %s", got.Scope.ExamDate)
	}
	if got.Format != report.FormatLegacy {
		t.Errorf("Expected legacy format, got %s", got.Format)
	}
}

func TestValidate(t *testing.T) {
	r := gin.New()
	r.POST("/validate", NewAnswerKeyHandler(&fakeKeyStore{}, fakeFormatter{}).Validate)

	tests := []struct {
		name    string
		data    string
		isValid bool
	}{
		{"Valid", "Sno\tSubject\tQuestionID\tAnswerID\n1\tPhysics\t101\t1011", true},
		{"Header only", "Sno\tSubject\tQuestionID\tAnswerID", false},
		{"Non numeric", "Sno\tSubject\tQuestionID\tAnswerID\n1\tPhysics\tQ1\t1011", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/validate", map[string]string{"answerKeyData": tt.data})
			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			if body := decode(t, w); body["isValid"] != tt.isValid {
				t.Errorf("Expected isValid %v, got %v", tt.isValid, body)
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	withKey := func(data string) map[string]string {
		body := map[string]string{"answerKeyData": data}
		for k, v := range scopeBody {
			body[k] = v
		}
		return body
	}

	tests := []struct {
		name   string
		body   map[string]string
		err    error
		status int
	}{
		{"Accepted", withKey("Sno\tSubject\tQuestionID\tAnswerID\n1\tPhysics\t101\t1011"), nil, http.StatusCreated},
		{"Missing data", scopeBody, nil, http.StatusBadRequest},
		{"Missing scope", map[string]string{"answerKeyData": "x"}, nil, http.StatusBadRequest},
		{"Malformed key", withKey("bad"), &answerkey.ValidationError{Row: 2, Msg: "Question ID must be numeric"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeKeyStore{submitted: []string{"Physics"}, err: tt.err}
			r := gin.New()
			r.POST("/submit", NewAnswerKeyHandler(store, fakeFormatter{}).Submit)

			w := doJSON(r, http.MethodPost, "/submit", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestFormat(t *testing.T) {
	rows := []aiformat.Row{{SNo: "1", QuestionID: "101", AnswerID: "1011"}, {SNo: "2", QuestionID: "102", AnswerID: "1022"}}
	var disabled *aiformat.Formatter

	tests := []struct {
		name      string
		formatter KeyFormatter
		body      map[string]string
		status    int
		withKey   bool
	}{
		{"Rows only", fakeFormatter{rows: rows}, map[string]string{"rawAnswerKey": "1. 101 - 1011"}, http.StatusOK, false},
		{"With subject", fakeFormatter{rows: rows}, map[string]string{"rawAnswerKey": "1. 101 - 1011", "subject": "Physics"}, http.StatusOK, true},
		{"Disabled", disabled, map[string]string{"rawAnswerKey": "x"}, http.StatusServiceUnavailable, false},
		{"No rows", fakeFormatter{err: aiformat.ErrNoRows}, map[string]string{"rawAnswerKey": "x"}, http.StatusBadRequest, false},
		{"Empty body", fakeFormatter{rows: rows}, map[string]string{}, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/format", NewAnswerKeyHandler(&fakeKeyStore{}, tt.formatter).Format)

			w := doJSON(r, http.MethodPost, "/format", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}
			body := decode(t, w)
			key, ok := body["answerKeyData"].(string)
			if ok != tt.withKey {
				t.Fatalf("Expected answerKeyData present=%v, got %v", tt.withKey, body)
			}
			if ok && !strings.Contains(key, "2\tPhysics\t102\t1022") {
				t.Errorf("Unexpected answer key text %q", key)
			}
		})
	}
}

func TestPendingKeyActions(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"Approve", "/pending/" + uuid.NewString() + "/approve", nil, http.StatusOK},
		{"Approve missing", "/pending/" + uuid.NewString() + "/approve", services.ErrNotFound, http.StatusNotFound},
		{"Reject", "/pending/" + uuid.NewString() + "/reject", nil, http.StatusOK},
		{"Bad id", "/pending/not-a-uuid/reject", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnswerKeyHandler(&fakeKeyStore{err: tt.err}, fakeFormatter{})
			r := gin.New()
			r.POST("/pending/:id/approve", h.Approve)
			r.POST("/pending/:id/reject", h.Reject)

			w := doJSON(r, http.MethodPost, tt.path, nil)
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrSelfDelete, http.StatusBadRequest},
		{fmt.Errorf("x: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", responsesheet.ErrFetch), http.StatusBadGateway},
		{aiformat.ErrDisabled, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestClientMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Fetch with cause", fmt.Errorf("%w: unexpected status 404", responsesheet.ErrFetch), "Could not retrieve response sheet: unexpected status 404"},
		{"Fetch without cause", responsesheet.ErrFetch, "Could not retrieve response sheet"},
		{"Other error", fmt.Errorf("%w: missing required fields: examName", services.ErrInvalidInput), "invalid input: missing required fields: examName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clientMessage(tt.err); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAnalyze_FetchMessage(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: unexpected status 404", responsesheet.ErrFetch)}
	r := gin.New()
	r.POST("/analyze", NewAnalysisHandler(analyzer).Analyze)

	w := doJSON(r, http.MethodPost, "/analyze", analyzeBody(nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
	if got := decode(t, w)["error"]; got != "Could not retrieve response sheet: unexpected status 404" {
		t.Errorf("Unexpected error message %v", got)
	}
}
