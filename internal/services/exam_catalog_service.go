package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/models"
	"gorm.io/gorm"
)

type ExamCatalogService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewExamCatalogService(db *gorm.DB, audit *AuditService) *ExamCatalogService {
	return &ExamCatalogService{db: db, audit: audit}
}

type CombinationView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Subjects []string  `json:"subjects"`
}

type ShiftView struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	StartTime    string            `json:"startTime"`
	EndTime      string            `json:"endTime"`
	Combinations []CombinationView `json:"combinations"`
}

type DateView struct {
	ID            uuid.UUID   `json:"id"`
	Date          string      `json:"date"`
	FormattedDate string      `json:"formattedDate"`
	Shifts        []ShiftView `json:"shifts"`
}

type ExamView struct {
	ID                     uuid.UUID  `json:"id"`
	Name                   string     `json:"name"`
	Year                   string     `json:"year"`
	Description            string     `json:"description"`
	HasSubjectCombinations bool       `json:"hasSubjectCombinations"`
	DisplayName            string     `json:"displayName"`
	Dates                  []DateView `json:"dates"`
}

// ListActive returns active exams, newest year first, with their dates,
// shifts and subject combinations.
func (s *ExamCatalogService) ListActive(ctx context.Context) ([]ExamView, error) {
	var exams []models.Exam
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("Dates", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") }).
		Preload("Dates.Shifts").
		Preload("Dates.Shifts.Combinations").
		Order("year DESC").Order("name ASC").
		Find(&exams).Error
	if err != nil {
		return nil, err
	}
	return buildExamViews(exams), nil
}

func buildExamViews(exams []models.Exam) []ExamView {
	out := make([]ExamView, 0, len(exams))
	for _, e := range exams {
		view := ExamView{
			ID:                     e.ID,
			Name:                   e.Name,
			Year:                   e.Year,
			Description:            e.Description,
			HasSubjectCombinations: e.HasSubjectCombinations,
			DisplayName:            e.Name + " " + e.Year,
			Dates:                  []DateView{},
		}
		dates := append([]models.ExamDate(nil), e.Dates...)
		sort.SliceStable(dates, func(i, j int) bool { return dates[i].Date.Before(dates[j].Date) })
		for _, d := range dates {
			dv := DateView{
				ID:            d.ID,
				Date:          d.Date.Format("2006-01-02"),
				FormattedDate: FormatExamDate(d.Date),
				Shifts:        []ShiftView{},
			}
			for _, sh := range d.Shifts {
				sv := ShiftView{
					ID:           sh.ID,
					Name:         sh.ShiftName,
					StartTime:    sh.StartTime,
					EndTime:      sh.EndTime,
					Combinations: []CombinationView{},
				}
				for _, c := range sh.Combinations {
					sv.Combinations = append(sv.Combinations, CombinationView{
						ID:       c.ID,
						Name:     c.Name,
						Subjects: append([]string{}, c.Subjects...),
					})
				}
				dv.Shifts = append(dv.Shifts, sv)
			}
			view.Dates = append(view.Dates, dv)
		}
		out = append(out, view)
	}
	return out
}

type CreateExamInput struct {
	Name                   string `json:"name" binding:"required"`
	Year                   string `json:"year" binding:"required"`
	Description            string `json:"description"`
	HasSubjectCombinations bool   `json:"hasSubjectCombinations"`
}

func (s *ExamCatalogService) CreateExam(ctx context.Context, in CreateExamInput, actor Actor) (*models.Exam, error) {
	exam := &models.Exam{
		Name:                   strings.TrimSpace(in.Name),
		Year:                   strings.TrimSpace(in.Year),
		Description:            in.Description,
		HasSubjectCombinations: in.HasSubjectCombinations,
		IsActive:               true,
	}
	if exam.Name == "" || exam.Year == "" {
		return nil, fmt.Errorf("%w: name and year are required", ErrInvalidInput)
	}
	if err := s.db.WithContext(ctx).Create(exam).Error; err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "create", "exam", exam.ID, models.JSONB{"name": exam.Name, "year": exam.Year})
	return exam, nil
}

// AddDate attaches a sitting date to an exam. date uses the same layouts as
// ParseExamDate.
func (s *ExamCatalogService) AddDate(ctx context.Context, examID uuid.UUID, date string, actor Actor) (*models.ExamDate, error) {
	d, err := ParseExamDate(date)
	if err != nil {
		return nil, err
	}
	if err := s.exists(ctx, &models.Exam{}, examID); err != nil {
		return nil, err
	}
	row := &models.ExamDate{ExamID: examID, Date: d}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "create", "exam_date", row.ID, models.JSONB{"exam_id": examID, "date": FormatExamDate(d)})
	return row, nil
}

type CreateShiftInput struct {
	ShiftName string `json:"shiftName" binding:"required"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (s *ExamCatalogService) AddShift(ctx context.Context, dateID uuid.UUID, in CreateShiftInput, actor Actor) (*models.ExamShift, error) {
	if strings.TrimSpace(in.ShiftName) == "" {
		return nil, fmt.Errorf("%w: shiftName is required", ErrInvalidInput)
	}
	if err := s.exists(ctx, &models.ExamDate{}, dateID); err != nil {
		return nil, err
	}
	row := &models.ExamShift{
		ExamDateID: dateID,
		ShiftName:  strings.TrimSpace(in.ShiftName),
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "create", "exam_shift", row.ID, models.JSONB{"shift": row.ShiftName})
	return row, nil
}

type CreateCombinationInput struct {
	Name     string   `json:"name" binding:"required"`
	Subjects []string `json:"subjects"`
}

func (s *ExamCatalogService) AddCombination(ctx context.Context, shiftID uuid.UUID, in CreateCombinationInput, actor Actor) (*models.SubjectCombination, error) {
	if strings.TrimSpace(in.Name) == "" || len(in.Subjects) == 0 {
		return nil, fmt.Errorf("%w: name and at least one subject are required", ErrInvalidInput)
	}
	if err := s.exists(ctx, &models.ExamShift{}, shiftID); err != nil {
		return nil, err
	}
	row := &models.SubjectCombination{
		ExamShiftID: shiftID,
		Name:        strings.TrimSpace(in.Name),
		Subjects:    models.StringList(in.Subjects),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, "create", "subject_combination", row.ID, models.JSONB{"name": row.Name, "subjects": in.Subjects})
	return row, nil
}

func (s *ExamCatalogService) exists(ctx context.Context, model interface{}, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Select("id").First(model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
