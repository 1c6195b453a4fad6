package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MarkingSchemeService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewMarkingSchemeService(db *gorm.DB, audit *AuditService) *MarkingSchemeService {
	return &MarkingSchemeService{db: db, audit: audit}
}

// SchemeInput carries the editable fields. A zero TotalMarks is derived as
// TotalQuestions × CorrectMarks.
type SchemeInput struct {
	Subject          string  `json:"subject"`
	CorrectMarks     float64 `json:"correctMarks"`
	IncorrectMarks   float64 `json:"incorrectMarks"`
	UnattemptedMarks float64 `json:"unattemptedMarks"`
	TotalQuestions   int     `json:"totalQuestions"`
	TotalMarks       float64 `json:"totalMarks"`
}

func (in SchemeInput) validate() error {
	if in.CorrectMarks <= 0 {
		return fmt.Errorf("%w: correctMarks must be positive", ErrInvalidInput)
	}
	if in.IncorrectMarks > 0 {
		return fmt.Errorf("%w: incorrectMarks cannot be positive", ErrInvalidInput)
	}
	if in.TotalQuestions < 0 {
		return fmt.Errorf("%w: totalQuestions cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (in SchemeInput) apply(m *models.MarkingScheme) {
	m.CorrectMarks = in.CorrectMarks
	m.IncorrectMarks = in.IncorrectMarks
	m.UnattemptedMarks = in.UnattemptedMarks
	m.TotalQuestions = in.TotalQuestions
	m.TotalMarks = in.TotalMarks
	if m.TotalMarks == 0 {
		m.TotalMarks = float64(in.TotalQuestions) * in.CorrectMarks
	}
}

func (s *MarkingSchemeService) List(ctx context.Context, scope models.ExamScope) ([]models.MarkingScheme, error) {
	var schemes []models.MarkingScheme
	err := whereScope(s.db.WithContext(ctx), scope).Order("subject ASC").Find(&schemes).Error
	return schemes, err
}

// Upsert creates or replaces the scheme for one scope and subject.
func (s *MarkingSchemeService) Upsert(ctx context.Context, scope models.ExamScope, in SchemeInput, actor Actor) (*models.MarkingScheme, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	scheme := &models.MarkingScheme{ExamScope: scope, Subject: in.Subject}
	in.apply(scheme)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: scopeSubjectColumns,
		DoUpdates: clause.AssignmentColumns([]string{
			"correct_marks", "incorrect_marks", "unattempted_marks",
			"total_questions", "total_marks", "updated_at", "deleted_at",
		}),
	}).Create(scheme).Error
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, "upsert", "marking_scheme", scheme.ID, schemeAudit(scheme))
	return scheme, nil
}

func (s *MarkingSchemeService) Update(ctx context.Context, id uuid.UUID, in SchemeInput, actor Actor) (*models.MarkingScheme, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var scheme models.MarkingScheme
	if err := s.db.WithContext(ctx).First(&scheme, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	before := schemeAudit(&scheme)

	in.apply(&scheme)
	if err := s.db.WithContext(ctx).Save(&scheme).Error; err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Log(ctx, actor, "update", "marking_scheme", scheme.ID, before, schemeAudit(&scheme)); err != nil {
			slog.Warn("audit log write failed", "action", "update", "resource", "marking_scheme", "error", err)
		}
	}
	return &scheme, nil
}

func (s *MarkingSchemeService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	res := s.db.WithContext(ctx).Unscoped().Delete(&models.MarkingScheme{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.audit.record(ctx, actor, "delete", "marking_scheme", id, nil)
	return nil
}

func schemeAudit(m *models.MarkingScheme) models.JSONB {
	return models.JSONB{
		"subject":           m.Subject,
		"correct_marks":     m.CorrectMarks,
		"incorrect_marks":   m.IncorrectMarks,
		"unattempted_marks": m.UnattemptedMarks,
		"total_questions":   m.TotalQuestions,
		"total_marks":       m.TotalMarks,
	}
}
