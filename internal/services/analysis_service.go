package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/metrics"
	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/report"
	"github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/scoring"
	"gorm.io/gorm"
)

// SheetParser turns a URL or pasted content into a parsed response sheet.
type SheetParser interface {
	Parse(ctx context.Context, input string) (*responsesheet.Sheet, error)
}

// ResponseStore persists submitted sheets and their reports.
type ResponseStore interface {
	SaveResponse(ctx context.Context, r *models.StudentResponse) error
	SaveAnalysis(ctx context.Context, id uuid.UUID, analysis models.JSONB) error
}

type AnalyzeRequest struct {
	Scope         models.ExamScope
	ResponseInput string
	Format        report.Format
}

type AnalyzeResult struct {
	ResponseID uuid.UUID
	Candidate  responsesheet.Candidate
	Sheet      *responsesheet.Sheet
	// Report is nil when no answer key exists for the scope.
	Report any
}

type AnalysisService struct {
	parser SheetParser
	keys   KeySource
	store  ResponseStore
}

func NewAnalysisService(parser SheetParser, keys KeySource, store ResponseStore) *AnalysisService {
	return &AnalysisService{parser: parser, keys: keys, store: store}
}

// Analyze parses the sheet, stores it, then scores it against the scope's
// approved keys. When no key exists the stored response and candidate are
// still returned together with scoring.ErrAnswerKeyUnavailable.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	sheet, err := s.parser.Parse(ctx, req.ResponseInput)
	if err != nil {
		metrics.Analyses.WithLabelValues("parse_error").Inc()
		return nil, err
	}

	responses, err := models.ToJSONList(sheet.Responses)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}
	row := &models.StudentResponse{
		ExamName:           req.Scope.ExamName,
		ExamYear:           req.Scope.ExamYear,
		ExamDate:           req.Scope.ExamDate,
		ShiftName:          req.Scope.ShiftName,
		SubjectCombination: req.Scope.SubjectCombination,
		ApplicationNo:      sheet.ApplicationNo,
		CandidateName:      sheet.CandidateName,
		RollNo:             sheet.RollNo,
		Responses:          responses,
	}
	if err := s.store.SaveResponse(ctx, row); err != nil {
		metrics.Analyses.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save response: %w", err)
	}

	result := &AnalyzeResult{ResponseID: row.ID, Candidate: sheet.Candidate, Sheet: sheet}

	keys, schemes, err := s.keys.Resolve(ctx, req.Scope)
	if err != nil {
		metrics.Analyses.WithLabelValues("error").Inc()
		return nil, err
	}

	scored, err := scoring.Score(scoringScope(req.Scope), sheet.Responses, keys, schemes)
	if errors.Is(err, scoring.ErrAnswerKeyUnavailable) {
		metrics.Analyses.WithLabelValues("no_key").Inc()
		slog.InfoContext(ctx, "answer key not available",
			"exam", req.Scope.ExamName, "shift", req.Scope.ShiftName, "subjects", sheet.Subjects())
		return result, err
	}
	if err != nil {
		metrics.Analyses.WithLabelValues("error").Inc()
		return nil, err
	}

	result.Report = report.Build(scored, req.Format)
	metrics.Analyses.WithLabelValues("scored").Inc()
	metrics.ScoreHistogram.Observe(scored.CompletionRate)

	stored, err := models.ToJSONB(report.Assemble(scored))
	if err == nil {
		err = s.store.SaveAnalysis(ctx, row.ID, stored)
	}
	if err != nil {
		slog.WarnContext(ctx, "could not store analysis", "response_id", row.ID, "error", err)
	}
	return result, nil
}

type responseStore struct {
	db *gorm.DB
}

func NewResponseStore(db *gorm.DB) ResponseStore {
	return &responseStore{db: db}
}

func (s *responseStore) SaveResponse(ctx context.Context, r *models.StudentResponse) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *responseStore) SaveAnalysis(ctx context.Context, id uuid.UUID, analysis models.JSONB) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.StudentResponse{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"analysis": analysis, "analyzed_at": &now}).Error
}
