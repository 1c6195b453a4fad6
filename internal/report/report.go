package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/scorecheck/backend/internal/scoring"
)

// Format selects the report shape returned to clients.
type Format string

const (
	FormatCurrent Format = "current"
	FormatLegacy  Format = "legacy"
)

// ParseFormat maps a request value onto a Format. Empty selects current.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCurrent:
		return FormatCurrent, nil
	case FormatLegacy:
		return FormatLegacy, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

type SubjectScore struct {
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	Unattempted    int     `json:"unattempted"`
	Attempted      int     `json:"attempted"`
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	MaxScore       float64 `json:"maxScore"`
	Accuracy       float64 `json:"accuracy"`
	Summary        string  `json:"summary,omitempty"`
}

// Question is one row of the detailed comparison.
type Question struct {
	QuestionID    string   `json:"questionId"`
	Subject       string   `json:"subject"`
	StudentAnswer string   `json:"studentAnswer"`
	CorrectAnswer []string `json:"correctAnswer"`
	Status        string   `json:"status"`
	MarksAwarded  float64  `json:"marksAwarded"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

// OverallReport is the current report shape.
type OverallReport struct {
	SubjectWiseScores   map[string]SubjectScore `json:"subjectWiseScores"`
	TotalScore          float64                 `json:"totalScore"`
	MaxTotalScore       float64                 `json:"maxTotalScore"`
	Percentage          float64                 `json:"percentage"`
	TotalQuestions      int                     `json:"totalQuestions"`
	AttemptedQuestions  int                     `json:"attemptedQuestions"`
	CorrectAnswers      int                     `json:"correctAnswers"`
	IncorrectAnswers    int                     `json:"incorrectAnswers"`
	UnansweredQuestions int                     `json:"unansweredQuestions"`
	Accuracy            float64                 `json:"accuracy"`
	CompletionRate      float64                 `json:"completionRate"`
	HasMultipleSubjects bool                    `json:"hasMultipleSubjects"`
	DetailedComparison  []Question              `json:"detailedComparison"`
}

type LegacySubjectScore struct {
	Correct        int     `json:"correct"`
	Incorrect      int     `json:"incorrect"`
	Unattempted    int     `json:"unattempted"`
	Score          float64 `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	MaxScore       float64 `json:"maxScore"`
}

// LegacyReport mirrors the shape older clients consume: raw scores plus a
// percentage, no accuracy or completion figures.
type LegacyReport struct {
	SubjectWiseScores  map[string]LegacySubjectScore `json:"subjectWiseScores"`
	TotalScore         float64                       `json:"totalScore"`
	MaxTotalScore      float64                       `json:"maxTotalScore"`
	Percentage         float64                       `json:"percentage"`
	DetailedComparison []Question                    `json:"detailedComparison"`
}

// Assemble shapes a scoring result into the current report.
func Assemble(res *scoring.Result) OverallReport {
	out := OverallReport{
		SubjectWiseScores:   make(map[string]SubjectScore, len(res.SubjectWise)),
		TotalScore:          scoring.Round2(res.TotalScore),
		MaxTotalScore:       scoring.Round2(res.MaxTotalScore),
		Percentage:          Percentage(res.TotalScore, res.MaxTotalScore),
		TotalQuestions:      res.TotalQuestions,
		AttemptedQuestions:  res.AttemptedQuestions,
		CorrectAnswers:      res.CorrectAnswers,
		IncorrectAnswers:    res.IncorrectAnswers,
		UnansweredQuestions: res.UnansweredQuestions,
		Accuracy:            res.Accuracy,
		CompletionRate:      res.CompletionRate,
		HasMultipleSubjects: res.HasMultipleSubjects,
		DetailedComparison:  questions(res.Outcomes),
	}
	for subject, ss := range res.SubjectWise {
		out.SubjectWiseScores[subject] = SubjectScore{
			Correct:        ss.Correct,
			Incorrect:      ss.Incorrect,
			Unattempted:    ss.Unattempted,
			Attempted:      ss.Attempted,
			Score:          scoring.Round2(ss.Score),
			TotalQuestions: ss.TotalQuestions,
			MaxScore:       scoring.Round2(ss.MaxScore),
			Accuracy:       ss.Accuracy,
			Summary:        ss.Summary,
		}
	}
	return out
}

// Legacy shapes a scoring result into the legacy report.
func Legacy(res *scoring.Result) LegacyReport {
	out := LegacyReport{
		SubjectWiseScores:  make(map[string]LegacySubjectScore, len(res.SubjectWise)),
		TotalScore:         scoring.Round2(res.TotalScore),
		MaxTotalScore:      scoring.Round2(res.MaxTotalScore),
		Percentage:         Percentage(res.TotalScore, res.MaxTotalScore),
		DetailedComparison: questions(res.Outcomes),
	}
	for subject, ss := range res.SubjectWise {
		out.SubjectWiseScores[subject] = LegacySubjectScore{
			Correct:        ss.Correct,
			Incorrect:      ss.Incorrect,
			Unattempted:    ss.Unattempted,
			Score:          scoring.Round2(ss.Score),
			TotalQuestions: ss.TotalQuestions,
			MaxScore:       scoring.Round2(ss.MaxScore),
		}
	}
	// Legacy clients only know three statuses.
	for i, q := range out.DetailedComparison {
		if q.Status == string(scoring.OutcomeNotAttemptedMarkedForReview) {
			out.DetailedComparison[i].Status = string(scoring.OutcomeUnattempted)
		}
		out.DetailedComparison[i].ImageURL = ""
	}
	return out
}

// Build returns the report for the requested format.
func Build(res *scoring.Result, f Format) any {
	if f == FormatLegacy {
		return Legacy(res)
	}
	return Assemble(res)
}

// Percentage returns score/max*100 rounded to two decimals. A non-positive
// max yields 0.
func Percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return decimal.NewFromFloat(score).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromFloat(max)).
		Round(2).
		InexactFloat64()
}

func questions(outcomes []scoring.Outcome) []Question {
	out := make([]Question, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, Question{
			QuestionID:    o.QuestionID,
			Subject:       o.Subject,
			StudentAnswer: o.StudentAnswer,
			CorrectAnswer: append([]string{}, o.CorrectAnswer...),
			Status:        string(o.Status),
			MarksAwarded:  o.MarksAwarded,
			ImageURL:      o.ImageURL,
		})
	}
	return out
}
