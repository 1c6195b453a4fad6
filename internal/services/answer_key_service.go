package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/answerkey"
	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/scoring"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeySource supplies approved answer keys and marking schemes for a scope,
// both keyed by subject.
type KeySource interface {
	Resolve(ctx context.Context, scope models.ExamScope) (map[string][]scoring.KeyEntry, map[string]scoring.MarkingScheme, error)
}

type AnswerKeyService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewAnswerKeyService(db *gorm.DB, audit *AuditService) *AnswerKeyService {
	return &AnswerKeyService{db: db, audit: audit}
}

type SubjectCount struct {
	Subject   string `json:"subject"`
	Questions int    `json:"questions"`
}

type UploadResult struct {
	Subjects []SubjectCount `json:"subjects"`
	Dropped  int            `json:"droppedLines"`
}

var scopeSubjectColumns = []clause.Column{
	{Name: "exam_name"}, {Name: "exam_year"}, {Name: "exam_date"},
	{Name: "shift_name"}, {Name: "subject_combination"}, {Name: "subject"},
}

// Upload validates and parses raw answer-key text, then stores one approved
// key per subject, replacing any existing key for the same scope and subject.
// Subjects without a marking scheme get the default one.
func (s *AnswerKeyService) Upload(ctx context.Context, scope models.ExamScope, raw string, actor Actor) (*UploadResult, error) {
	if err := answerkey.Validate(raw); err != nil {
		return nil, err
	}
	parsed := answerkey.Parse(raw)
	groups := answerkey.GroupBySubject(parsed.Entries)

	result := &UploadResult{Dropped: parsed.Dropped}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, subject := range answerkey.Subjects(parsed.Entries) {
			entries := groups[subject]
			key := &models.AnswerKey{
				ExamScope:   scope,
				Subject:     subject,
				Answers:     toAnswerList(entries),
				IsApproved:  true,
				SubmittedBy: actor.Email,
			}
			if err := upsertKey(tx, key); err != nil {
				return fmt.Errorf("store %s key: %w", subject, err)
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(defaultScheme(scope, subject, len(entries))).Error; err != nil {
				return fmt.Errorf("create %s scheme: %w", subject, err)
			}
			result.Subjects = append(result.Subjects, SubjectCount{Subject: subject, Questions: len(entries)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "answer key uploaded",
		"exam", scope.ExamName, "shift", scope.ShiftName,
		"subjects", len(result.Subjects), "dropped_lines", result.Dropped)
	s.audit.record(ctx, actor, "upload", "answer_key", uuid.Nil, models.JSONB{
		"exam":     scope.ExamName,
		"shift":    scope.ShiftName,
		"subjects": result.Subjects,
	})
	return result, nil
}

// SaveManual stores admin-entered answers for one subject and keeps the
// subject's scheme totals in step with the answer count.
func (s *AnswerKeyService) SaveManual(ctx context.Context, scope models.ExamScope, subject string, answers []models.AnswerItem, actor Actor) error {
	subject = strings.TrimSpace(subject)
	if subject == "" || len(answers) == 0 {
		return fmt.Errorf("%w: subject and answers are required", ErrInvalidInput)
	}
	for _, a := range answers {
		if strings.TrimSpace(a.QuestionID) == "" || strings.TrimSpace(a.CorrectAnswerID) == "" {
			return fmt.Errorf("%w: each answer must have questionId and correctAnswerId", ErrInvalidInput)
		}
	}

	key := &models.AnswerKey{
		ExamScope:   scope,
		Subject:     subject,
		Answers:     answers,
		IsApproved:  true,
		SubmittedBy: actor.Email,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertKey(tx, key); err != nil {
			return err
		}
		scheme := defaultScheme(scope, subject, len(answers))
		return tx.Clauses(clause.OnConflict{
			Columns:   scopeSubjectColumns,
			DoUpdates: clause.AssignmentColumns([]string{"total_questions", "total_marks", "updated_at"}),
		}).Create(scheme).Error
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "manual_save", "answer_key", key.ID, models.JSONB{
		"exam":      scope.ExamName,
		"subject":   subject,
		"questions": len(answers),
	})
	return nil
}

// SubmitPending queues a public submission for review, one pending row per
// subject found in the text.
func (s *AnswerKeyService) SubmitPending(ctx context.Context, scope models.ExamScope, raw, submittedBy string) ([]string, error) {
	if err := answerkey.Validate(raw); err != nil {
		return nil, err
	}
	subjects := answerkey.Subjects(answerkey.Parse(raw).Entries)
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no answer rows found", answerkey.ErrMalformed)
	}
	if submittedBy == "" {
		submittedBy = "student"
	}

	rows := make([]models.PendingAnswerKey, 0, len(subjects))
	for _, subject := range subjects {
		rows = append(rows, models.PendingAnswerKey{
			ExamName:           scope.ExamName,
			ExamYear:           scope.ExamYear,
			ExamDate:           scope.ExamDate,
			ShiftName:          scope.ShiftName,
			SubjectCombination: scope.SubjectCombination,
			Subject:            subject,
			AnswerKeyData:      raw,
			SubmittedBy:        submittedBy,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "answer key submitted for approval", "exam", scope.ExamName, "subjects", subjects)
	return subjects, nil
}

func (s *AnswerKeyService) ListPending(ctx context.Context) ([]models.PendingAnswerKey, error) {
	var pending []models.PendingAnswerKey
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&pending).Error
	return pending, err
}

// Approve promotes a pending submission: its subject's rows become the
// approved key for the scope and the pending row is removed.
func (s *AnswerKeyService) Approve(ctx context.Context, id uuid.UUID, actor Actor) (*models.AnswerKey, error) {
	var key *models.AnswerKey
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending models.PendingAnswerKey
		if err := tx.First(&pending, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		entries := answerkey.GroupBySubject(answerkey.Parse(pending.AnswerKeyData).Entries)[pending.Subject]
		if len(entries) == 0 {
			return fmt.Errorf("%w: submission has no rows for %s", answerkey.ErrMalformed, pending.Subject)
		}

		scope := pending.Scope()
		key = &models.AnswerKey{
			ExamScope:   scope,
			Subject:     pending.Subject,
			Answers:     toAnswerList(entries),
			IsApproved:  true,
			SubmittedBy: pending.SubmittedBy,
		}
		if err := upsertKey(tx, key); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(defaultScheme(scope, pending.Subject, len(entries))).Error; err != nil {
			return err
		}
		return tx.Delete(&pending).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, "approve", "pending_answer_key", id, models.JSONB{
		"subject":   key.Subject,
		"questions": len(key.Answers),
	})
	return key, nil
}

func (s *AnswerKeyService) Reject(ctx context.Context, id uuid.UUID, actor Actor) error {
	res := s.db.WithContext(ctx).Delete(&models.PendingAnswerKey{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.audit.record(ctx, actor, "reject", "pending_answer_key", id, nil)
	return nil
}

// Resolve loads the approved keys and stored schemes for a scope.
func (s *AnswerKeyService) Resolve(ctx context.Context, scope models.ExamScope) (map[string][]scoring.KeyEntry, map[string]scoring.MarkingScheme, error) {
	db := s.db.WithContext(ctx)

	var keys []models.AnswerKey
	if err := whereScope(db, scope).Where("is_approved = ?", true).Find(&keys).Error; err != nil {
		return nil, nil, fmt.Errorf("load answer keys: %w", err)
	}
	var schemes []models.MarkingScheme
	if err := whereScope(db, scope).Find(&schemes).Error; err != nil {
		return nil, nil, fmt.Errorf("load marking schemes: %w", err)
	}

	return keyEntries(keys), schemeMap(schemes), nil
}

// upsertKey writes key and reloads it, since a conflict update keeps the
// existing row's id rather than the one BeforeCreate assigned.
func upsertKey(tx *gorm.DB, key *models.AnswerKey) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   scopeSubjectColumns,
		DoUpdates: clause.AssignmentColumns([]string{"answers", "is_approved", "submitted_by", "updated_at", "deleted_at"}),
	}).Create(key).Error
	if err != nil {
		return err
	}
	var stored models.AnswerKey
	if err := storedKeyQuery(tx, key).Take(&stored).Error; err != nil {
		return fmt.Errorf("reload answer key: %w", err)
	}
	*key = stored
	return nil
}

func storedKeyQuery(tx *gorm.DB, key *models.AnswerKey) *gorm.DB {
	return whereScope(tx.Model(&models.AnswerKey{}), key.ExamScope).Where("subject = ?", key.Subject)
}

func toAnswerList(entries []answerkey.Entry) models.AnswerList {
	out := make(models.AnswerList, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.AnswerItem{QuestionID: e.QuestionID, CorrectAnswerID: e.CorrectAnswerID})
	}
	return out
}

func defaultScheme(scope models.ExamScope, subject string, questions int) *models.MarkingScheme {
	d := scoring.DefaultMarkingScheme
	return &models.MarkingScheme{
		ExamScope:        scope,
		Subject:          subject,
		CorrectMarks:     d.CorrectMarks,
		IncorrectMarks:   d.IncorrectMarks,
		UnattemptedMarks: d.UnattemptedMarks,
		TotalQuestions:   questions,
		TotalMarks:       float64(questions) * d.CorrectMarks,
	}
}

func keyEntries(keys []models.AnswerKey) map[string][]scoring.KeyEntry {
	out := make(map[string][]scoring.KeyEntry, len(keys))
	for _, k := range keys {
		for _, a := range k.Answers {
			out[k.Subject] = append(out[k.Subject], scoring.KeyEntry{
				QuestionID:       a.QuestionID,
				CorrectAnswerIDs: a.Accepted(),
			})
		}
	}
	return out
}

func schemeMap(schemes []models.MarkingScheme) map[string]scoring.MarkingScheme {
	out := make(map[string]scoring.MarkingScheme, len(schemes))
	for _, m := range schemes {
		out[m.Subject] = scoring.MarkingScheme{
			CorrectMarks:     m.CorrectMarks,
			IncorrectMarks:   m.IncorrectMarks,
			UnattemptedMarks: m.UnattemptedMarks,
			TotalQuestions:   m.TotalQuestions,
			TotalMarks:       m.TotalMarks,
		}
	}
	return out
}
