package report

import (
	"testing"

	rs "github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/scoring"
)

func sampleResult(t *testing.T) *scoring.Result {
	t.Helper()
	responses := []rs.Response{
		{QuestionID: "11", ChosenOptionID: "111", Status: rs.StatusAnswered, Subject: "Physics", ImageURL: "https://cdn.example/11.png"},
		{QuestionID: "21", ChosenOptionID: "219", Status: rs.StatusAnswered, Subject: "Chemistry"},
		{QuestionID: "12", Status: rs.StatusNotAttemptedMarkedForReview, Subject: "Physics"},
	}
	keys := map[string][]scoring.KeyEntry{
		"Physics":   {{QuestionID: "11", CorrectAnswerIDs: []string{"111"}}, {QuestionID: "12", CorrectAnswerIDs: []string{"121"}}},
		"Chemistry": {{QuestionID: "21", CorrectAnswerIDs: []string{"211"}}},
	}
	res, err := scoring.Score(scoring.Scope{}, responses, keys, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	return res
}

func TestAssemble(t *testing.T) {
	r := Assemble(sampleResult(t))

	if r.TotalScore != 3 || r.MaxTotalScore != 12 {
		t.Errorf("Expected 3/12, got %v/%v", r.TotalScore, r.MaxTotalScore)
	}
	if r.Percentage != 25 {
		t.Errorf("Expected percentage 25, got %v", r.Percentage)
	}
	if r.Accuracy != 50 || r.CompletionRate != 66.67 {
		t.Errorf("Expected accuracy 50 and completion 66.67, got %v/%v", r.Accuracy, r.CompletionRate)
	}
	if !r.HasMultipleSubjects {
		t.Error("Expected multiple subjects")
	}
	if got := r.SubjectWiseScores["Physics"].Accuracy; got != 100 {
		t.Errorf("Expected physics accuracy 100, got %v", got)
	}

	wantOrder := []string{"11", "21", "12"}
	for i, q := range r.DetailedComparison {
		if q.QuestionID != wantOrder[i] {
			t.Errorf("Position %d: expected %s, got %s", i, wantOrder[i], q.QuestionID)
		}
	}
	if r.DetailedComparison[0].ImageURL == "" {
		t.Error("Expected image url passthrough")
	}
	if r.DetailedComparison[2].Status != string(scoring.OutcomeNotAttemptedMarkedForReview) {
		t.Errorf("Expected review status kept, got %s", r.DetailedComparison[2].Status)
	}
}

func TestLegacy(t *testing.T) {
	r := Legacy(sampleResult(t))

	if r.TotalScore != 3 || r.Percentage != 25 {
		t.Errorf("Expected 3 and 25%%, got %v and %v", r.TotalScore, r.Percentage)
	}
	if len(r.SubjectWiseScores) != 2 {
		t.Fatalf("Expected 2 subjects, got %d", len(r.SubjectWiseScores))
	}
	for _, q := range r.DetailedComparison {
		if q.Status == string(scoring.OutcomeNotAttemptedMarkedForReview) {
			t.Errorf("Expected legacy statuses only, got %s", q.Status)
		}
		if q.ImageURL != "" {
			t.Errorf("Expected no image url in legacy report, got %s", q.ImageURL)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", FormatCurrent, false},
		{"current", FormatCurrent, false},
		{" Legacy ", FormatLegacy, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): unexpected error state %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("ParseFormat(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestBuild(t *testing.T) {
	res := sampleResult(t)
	if _, ok := Build(res, FormatLegacy).(LegacyReport); !ok {
		t.Error("Expected LegacyReport")
	}
	if _, ok := Build(res, FormatCurrent).(OverallReport); !ok {
		t.Error("Expected OverallReport")
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, max, expected float64
	}{
		{0, 0, 0},
		{10, 0, 0},
		{50, 200, 25},
		{-5, 200, -2.5},
		{1, 3, 33.33},
	}
	for _, tt := range tests {
		if got := Percentage(tt.score, tt.max); got != tt.expected {
			t.Errorf("Percentage(%v, %v): expected %v, got %v", tt.score, tt.max, tt.expected, got)
		}
	}
}
