package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/scorecheck/backend/internal/responsesheet"
)

// ErrAnswerKeyUnavailable is returned when no approved answer-key entries
// exist for the requested scope. It is not a system failure: callers route
// the submission into the answer-key approval flow.
var ErrAnswerKeyUnavailable = errors.New("answer key not available")

// UnknownAnswer is shown as the correct answer for questions missing from the key.
const UnknownAnswer = "Unknown"

// NotAttempted is the display value for a question without a chosen option.
const NotAttempted = "Not Attempted"

// Scope identifies one exam sitting. SubjectCombination is empty when the
// exam has no combinations.
type Scope struct {
	ExamName           string `json:"examName"`
	ExamYear           string `json:"examYear"`
	ExamDate           string `json:"examDate"`
	ShiftName          string `json:"shiftName"`
	SubjectCombination string `json:"subjectCombination,omitempty"`
}

// KeyEntry is the ground truth for one question. Current keys carry a single
// id; legacy keys may list several accepted option ids.
type KeyEntry struct {
	QuestionID       string   `json:"questionId"`
	CorrectAnswerIDs []string `json:"correctAnswerIds"`
}

// MarkingScheme holds per-subject point values.
type MarkingScheme struct {
	CorrectMarks     float64 `json:"correctMarks"`
	IncorrectMarks   float64 `json:"incorrectMarks"`
	UnattemptedMarks float64 `json:"unattemptedMarks"`
	TotalQuestions   int     `json:"totalQuestions"`
	TotalMarks       float64 `json:"totalMarks"`
}

// DefaultMarkingScheme applies to any subject without a stored scheme:
// +4 correct, -1 incorrect, 0 unattempted over 50 questions.
var DefaultMarkingScheme = MarkingScheme{
	CorrectMarks:     4,
	IncorrectMarks:   -1,
	UnattemptedMarks: 0,
	TotalQuestions:   50,
	TotalMarks:       200,
}

// OutcomeStatus classifies one scored question.
type OutcomeStatus string

const (
	OutcomeCorrect                     OutcomeStatus = "Correct"
	OutcomeIncorrect                   OutcomeStatus = "Incorrect"
	OutcomeUnattempted                 OutcomeStatus = "Unattempted"
	OutcomeNotAttemptedMarkedForReview OutcomeStatus = "NotAttemptedMarkedForReview"
)

// Outcome is the scoring result for one response.
type Outcome struct {
	QuestionID    string        `json:"questionId"`
	Subject       string        `json:"subject"`
	StudentAnswer string        `json:"studentAnswer"`
	CorrectAnswer []string      `json:"correctAnswer"`
	Status        OutcomeStatus `json:"status"`
	MarksAwarded  float64       `json:"marksAwarded"`
	ImageURL      string        `json:"imageUrl,omitempty"`
}

// SubjectScore is the per-subject rollup. TotalQuestions counts the
// responses seen for the subject, not the scheme's declared total.
type SubjectScore struct {
	Correct        int           `json:"correct"`
	Incorrect      int           `json:"incorrect"`
	Unattempted    int           `json:"unattempted"`
	Attempted      int           `json:"attempted"`
	TotalQuestions int           `json:"totalQuestions"`
	Score          float64       `json:"score"`
	MaxScore       float64       `json:"maxScore"`
	Accuracy       float64       `json:"accuracy"`
	Scheme         MarkingScheme `json:"markingScheme"`
	DefaultScheme  bool          `json:"defaultScheme"`
	Summary        string        `json:"summary"`
}

// Result is the full scoring output for one response sheet.
type Result struct {
	Scope               Scope                   `json:"scope"`
	SubjectWise         map[string]SubjectScore `json:"subjectWiseScores"`
	TotalScore          float64                 `json:"totalScore"`
	MaxTotalScore       float64                 `json:"maxTotalScore"`
	TotalQuestions      int                     `json:"totalQuestions"`
	AttemptedQuestions  int                     `json:"attemptedQuestions"`
	CorrectAnswers      int                     `json:"correctAnswers"`
	IncorrectAnswers    int                     `json:"incorrectAnswers"`
	UnansweredQuestions int                     `json:"unansweredQuestions"`
	Accuracy            float64                 `json:"accuracy"`
	CompletionRate      float64                 `json:"completionRate"`
	HasMultipleSubjects bool                    `json:"hasMultipleSubjects"`
	Outcomes            []Outcome               `json:"detailedComparison"`
}

// Classify scores a single response against the accepted option ids.
// known is false when the question is absent from the answer key.
func Classify(r responsesheet.Response, correct []string, known bool, scheme MarkingScheme) (OutcomeStatus, float64) {
	if r.Status.Attempted() && r.ChosenOptionID != "" {
		if known && contains(correct, r.ChosenOptionID) {
			return OutcomeCorrect, scheme.CorrectMarks
		}
		return OutcomeIncorrect, scheme.IncorrectMarks
	}
	if r.Status == responsesheet.StatusNotAttemptedMarkedForReview {
		return OutcomeNotAttemptedMarkedForReview, scheme.UnattemptedMarks
	}
	return OutcomeUnattempted, scheme.UnattemptedMarks
}

// Score joins responses against the answer keys and marking schemes, both
// keyed by subject. Responses whose subject has no key contribute nothing
// to the totals but still count toward HasMultipleSubjects.
func Score(scope Scope, responses []responsesheet.Response, keys map[string][]KeyEntry, schemes map[string]MarkingScheme) (*Result, error) {
	entries := 0
	for _, k := range keys {
		entries += len(k)
	}
	if entries == 0 {
		return nil, ErrAnswerKeyUnavailable
	}

	subjects := make([]string, 0, len(keys))
	for s := range keys {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	res := &Result{
		Scope:       scope,
		SubjectWise: make(map[string]SubjectScore, len(subjects)),
	}
	outcomes := make(map[int]Outcome, len(responses))
	total := decimal.Zero
	maxTotal := decimal.Zero

	for _, subject := range subjects {
		answerMap := make(map[string][]string, len(keys[subject]))
		for _, k := range keys[subject] {
			answerMap[k.QuestionID] = k.CorrectAnswerIDs
		}

		scheme, ok := schemes[subject]
		ss := SubjectScore{Scheme: scheme}
		if !ok {
			ss.Scheme = DefaultMarkingScheme
			ss.DefaultScheme = true
		}

		score := decimal.Zero
		for i, r := range responses {
			if r.Subject != subject {
				continue
			}
			ss.TotalQuestions++

			correct, known := answerMap[r.QuestionID]
			status, marks := Classify(r, correct, known, ss.Scheme)
			switch status {
			case OutcomeCorrect:
				ss.Correct++
			case OutcomeIncorrect:
				ss.Incorrect++
			default:
				ss.Unattempted++
			}
			score = score.Add(decimal.NewFromFloat(marks))

			display := r.ChosenOptionID
			if display == "" {
				display = NotAttempted
			}
			shown := correct
			if !known {
				shown = []string{UnknownAnswer}
			}
			outcomes[i] = Outcome{
				QuestionID:    r.QuestionID,
				Subject:       subject,
				StudentAnswer: display,
				CorrectAnswer: append([]string{}, shown...),
				Status:        status,
				MarksAwarded:  marks,
				ImageURL:      r.ImageURL,
			}
		}

		ss.Attempted = ss.Correct + ss.Incorrect
		ss.Score = score.InexactFloat64()
		maxScore := decimal.NewFromInt(int64(ss.TotalQuestions)).Mul(decimal.NewFromFloat(ss.Scheme.CorrectMarks))
		ss.MaxScore = maxScore.InexactFloat64()
		ss.Accuracy = percent(ss.Correct, ss.Attempted)
		ss.Summary = summarize(ss)
		res.SubjectWise[subject] = ss

		total = total.Add(score)
		maxTotal = maxTotal.Add(maxScore)
		res.TotalQuestions += ss.TotalQuestions
		res.AttemptedQuestions += ss.Attempted
		res.CorrectAnswers += ss.Correct
		res.IncorrectAnswers += ss.Incorrect
		res.UnansweredQuestions += ss.Unattempted
	}

	res.TotalScore = total.InexactFloat64()
	res.MaxTotalScore = maxTotal.InexactFloat64()
	res.Accuracy = percent(res.CorrectAnswers, res.AttemptedQuestions)
	res.CompletionRate = percent(res.AttemptedQuestions, res.TotalQuestions)
	res.HasMultipleSubjects = distinctSubjects(responses) > 1

	res.Outcomes = make([]Outcome, 0, len(outcomes))
	for i := range responses {
		if o, ok := outcomes[i]; ok {
			res.Outcomes = append(res.Outcomes, o)
		}
	}
	return res, nil
}

// percent returns num/den*100 rounded to two decimals, or 0 when den is 0.
func percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(num)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(den))).
		Round(2).
		InexactFloat64()
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func summarize(ss SubjectScore) string {
	return fmt.Sprintf("Correct %d × %g + Incorrect %d × %g + Unattempted %d × %g = %g / %g",
		ss.Correct, ss.Scheme.CorrectMarks,
		ss.Incorrect, ss.Scheme.IncorrectMarks,
		ss.Unattempted, ss.Scheme.UnattemptedMarks,
		ss.Score, ss.MaxScore)
}

func distinctSubjects(responses []responsesheet.Response) int {
	seen := make(map[string]struct{})
	for _, r := range responses {
		seen[r.Subject] = struct{}{}
	}
	return len(seen)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
