package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/scoring"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ScopeInput is the exam selector as clients send it.
type ScopeInput struct {
	ExamName           string `json:"examName" form:"examName"`
	ExamYear           string `json:"examYear" form:"examYear"`
	ExamDate           string `json:"examDate" form:"examDate"`
	ShiftName          string `json:"shiftName" form:"shiftName"`
	SubjectCombination string `json:"subjectCombination" form:"subjectCombination"`
}

var examDateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// ParseExamDate accepts YYYY-MM-DD, DD/MM/YYYY or an RFC 3339 timestamp and
// returns the calendar date in UTC.
func ParseExamDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range examDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: exam date %q must be YYYY-MM-DD or DD/MM/YYYY", ErrInvalidInput, s)
}

// Resolve validates the selector. Every field except SubjectCombination is
// required.
func (in ScopeInput) Resolve() (models.ExamScope, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"examName", in.ExamName},
		{"examYear", in.ExamYear},
		{"examDate", in.ExamDate},
		{"shiftName", in.ShiftName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return models.ExamScope{}, fmt.Errorf("%w: missing required fields: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	date, err := ParseExamDate(in.ExamDate)
	if err != nil {
		return models.ExamScope{}, err
	}
	return models.ExamScope{
		ExamName:           strings.TrimSpace(in.ExamName),
		ExamYear:           strings.TrimSpace(in.ExamYear),
		ExamDate:           date,
		ShiftName:          strings.TrimSpace(in.ShiftName),
		SubjectCombination: strings.TrimSpace(in.SubjectCombination),
	}, nil
}

// FormatExamDate renders a date the way exam schedules print it, e.g.
// "30th May 2025".
func FormatExamDate(t time.Time) string {
	return fmt.Sprintf("%d%s %s %d", t.Day(), ordinalSuffix(t.Day()), t.Month(), t.Year())
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

func scoringScope(s models.ExamScope) scoring.Scope {
	return scoring.Scope{
		ExamName:           s.ExamName,
		ExamYear:           s.ExamYear,
		ExamDate:           s.ExamDate.Format("2006-01-02"),
		ShiftName:          s.ShiftName,
		SubjectCombination: s.SubjectCombination,
	}
}

func whereScope(db *gorm.DB, s models.ExamScope) *gorm.DB {
	return db.Where("exam_name = ? AND exam_year = ? AND exam_date = ? AND shift_name = ? AND subject_combination = ?",
		s.ExamName, s.ExamYear, s.ExamDate, s.ShiftName, s.SubjectCombination)
}
