package responsesheet

import (
	"errors"
	"strings"
)

var (
	// ErrMalformed means required candidate fields could not be extracted.
	ErrMalformed = errors.New("invalid response sheet format")
	// ErrFetch means a response sheet URL could not be retrieved.
	ErrFetch = errors.New("could not retrieve response sheet")
)

// Status is the per-question state reported by the testing vendor.
type Status string

const (
	StatusAnswered                    Status = "Answered"
	StatusNotAnswered                 Status = "Not Answered"
	StatusMarkedForReview             Status = "Marked For Review"
	StatusNotAttemptedMarkedForReview Status = "Not Attempted and Marked For Review"
)

// ParseStatus maps vendor spellings onto the four known states. Unknown text
// is treated as not answered.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "answered":
		return StatusAnswered
	case "marked for review", "answered and marked for review":
		return StatusMarkedForReview
	case "not attempted and marked for review":
		return StatusNotAttemptedMarkedForReview
	default:
		return StatusNotAnswered
	}
}

// Attempted reports whether the status counts as an attempt for scoring.
func (s Status) Attempted() bool {
	return s == StatusAnswered || s == StatusMarkedForReview
}

// Response is one question as answered by the candidate.
type Response struct {
	QuestionID     string `json:"questionId"`
	ChosenOptionID string `json:"chosenOption"`
	Status         Status `json:"status"`
	Subject        string `json:"subject"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// Candidate is the identity block printed at the top of a sheet.
type Candidate struct {
	ApplicationNo string `json:"applicationNo"`
	CandidateName string `json:"candidateName"`
	RollNo        string `json:"rollNo"`
	TestDate      string `json:"testDate"`
	TestTime      string `json:"testTime"`
	Subject       string `json:"subject"`
}

// Attribution records how subjects were assigned to questions.
type Attribution string

const (
	AttributionNone       Attribution = "none"
	AttributionSection    Attribution = "section"
	AttributionOffset     Attribution = "offset"
	AttributionPositional Attribution = "positional"
)

// Sheet is the parsed result of one response sheet.
type Sheet struct {
	Candidate
	Responses   []Response  `json:"responses"`
	Sections    []string    `json:"sections,omitempty"`
	Attribution Attribution `json:"attribution"`
	// Skipped counts question markers that yielded no response.
	Skipped int `json:"skippedQuestions,omitempty"`
}

// Subjects returns the distinct subjects in first-seen order.
func (s *Sheet) Subjects() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Responses {
		if !seen[r.Subject] {
			seen[r.Subject] = true
			out = append(out, r.Subject)
		}
	}
	return out
}

const unknownSubject = "Unknown"
