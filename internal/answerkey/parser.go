package answerkey

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/scorecheck/backend/internal/metrics"
)

// ErrMalformed is returned when answer-key text fails structural validation.
var ErrMalformed = errors.New("malformed answer key")

// Entry is one ground-truth row of an uploaded answer key.
type Entry struct {
	SNo             string `json:"sno"`
	Subject         string `json:"subject"`
	QuestionID      string `json:"questionId"`
	CorrectAnswerID string `json:"correctAnswerId"`
}

// Result holds the parsed entries and how many data lines were dropped.
type Result struct {
	Entries []Entry
	Dropped int
}

// ValidationError points at the offending row (1-based, header is row 1).
type ValidationError struct {
	Row int
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("Row %d: %s", e.Row, e.Msg)
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error { return ErrMalformed }

// Validation mirrors the {isValid, error} shape returned to clients.
type Validation struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

var (
	delimiter = regexp.MustCompile(`\t+|\s{2,}|\|`)
	numericID = regexp.MustCompile(`^\d+$`)
)

func splitFields(line string) []string {
	parts := delimiter.Split(line, -1)
	fields := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

func lines(raw string) []string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n")
	return strings.Split(raw, "\n")
}

// NormalizeSubject strips vendor subject codes:
// "304-BIOLOGY/ BIOLOGICAL SCIENCE" becomes "BIOLOGY".
func NormalizeSubject(raw string) string {
	if !strings.Contains(raw, "-") {
		return raw
	}
	seg := strings.Split(raw, "-")[1]
	if i := strings.Index(seg, "/"); i >= 0 {
		seg = seg[:i]
	}
	return strings.TrimSpace(seg)
}

// Parse reads line-oriented answer-key text. The first line is a header and
// is skipped. Lines with fewer than four fields are dropped and counted.
func Parse(raw string) Result {
	var res Result
	all := lines(raw)
	for i := 1; i < len(all); i++ {
		line := strings.TrimSpace(all[i])
		if line == "" {
			continue
		}
		fields := splitFields(line)
		if len(fields) < 4 {
			res.Dropped++
			continue
		}
		res.Entries = append(res.Entries, Entry{
			SNo:             fields[0],
			Subject:         NormalizeSubject(fields[1]),
			QuestionID:      fields[2],
			CorrectAnswerID: fields[3],
		})
	}

	if res.Dropped > 0 {
		slog.Warn("answer key lines dropped", "dropped", res.Dropped, "parsed", len(res.Entries))
		metrics.AnswerKeyDroppedLines.Add(float64(res.Dropped))
	}
	return res
}

// Validate is the pre-flight check run before an upload is accepted.
func Validate(raw string) error {
	all := lines(raw)
	if len(all) < 2 {
		return &ValidationError{Msg: "Answer key must have at least a header and one data row"}
	}

	header := strings.ToLower(all[0])
	if !strings.Contains(header, "sno") || !strings.Contains(header, "subject") || !strings.Contains(header, "questionid") {
		return &ValidationError{Row: 1, Msg: "Header must contain 'Sno', 'Subject', and 'QuestionID' columns"}
	}

	for i := 1; i < len(all); i++ {
		line := strings.TrimSpace(all[i])
		if line == "" {
			continue
		}
		row := i + 1
		fields := splitFields(line)
		if len(fields) < 4 {
			return &ValidationError{Row: row, Msg: "must have at least 4 columns (Sno, Subject, QuestionID, Correct Answer ID)"}
		}
		if !numericID.MatchString(fields[2]) {
			return &ValidationError{Row: row, Msg: "Question ID must be numeric"}
		}
		if !numericID.MatchString(fields[3]) {
			return &ValidationError{Row: row, Msg: "Answer ID must be numeric"}
		}
	}
	return nil
}

// ValidateResult wraps Validate in the client-facing shape.
func ValidateResult(raw string) Validation {
	if err := Validate(raw); err != nil {
		return Validation{IsValid: false, Error: err.Error()}
	}
	return Validation{IsValid: true}
}

// GroupBySubject partitions entries by subject, keeping line order within
// each subject.
func GroupBySubject(entries []Entry) map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Subject] = append(groups[e.Subject], e)
	}
	return groups
}

// Subjects lists distinct subjects in first-seen order.
func Subjects(entries []Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if !seen[e.Subject] {
			seen[e.Subject] = true
			out = append(out, e.Subject)
		}
	}
	return out
}
