package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/models"
	"gorm.io/gorm"
)

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

type RecentResponse struct {
	ID            uuid.UUID `json:"id"`
	ExamName      string    `json:"examName"`
	ShiftName     string    `json:"shiftName"`
	ApplicationNo string    `json:"applicationNo"`
	CandidateName string    `json:"candidateName"`
	Analyzed      bool      `json:"analyzed"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Stats struct {
	TotalResponses  int64            `json:"totalResponses"`
	ApprovedKeys    int64            `json:"approvedKeys"`
	PendingKeys     int64            `json:"pendingKeys"`
	MarkingSchemes  int64            `json:"markingSchemes"`
	RecentResponses []RecentResponse `json:"recentResponses"`
}

func (s *StatsService) Get(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{RecentResponses: []RecentResponse{}}

	if err := db.Model(&models.StudentResponse{}).Count(&stats.TotalResponses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.AnswerKey{}).Where("is_approved = ?", true).Count(&stats.ApprovedKeys).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PendingAnswerKey{}).Count(&stats.PendingKeys).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.MarkingScheme{}).Count(&stats.MarkingSchemes).Error; err != nil {
		return nil, err
	}

	var recent []models.StudentResponse
	if err := db.Select("id", "exam_name", "shift_name", "application_no", "candidate_name", "analyzed_at", "created_at").
		Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		return nil, err
	}
	for _, r := range recent {
		stats.RecentResponses = append(stats.RecentResponses, RecentResponse{
			ID:            r.ID,
			ExamName:      r.ExamName,
			ShiftName:     r.ShiftName,
			ApplicationNo: r.ApplicationNo,
			CandidateName: r.CandidateName,
			Analyzed:      r.AnalyzedAt != nil,
			CreatedAt:     r.CreatedAt,
		})
	}
	return stats, nil
}

// PruneResponses hard-deletes student responses created before cutoff.
func (s *StatsService) PruneResponses(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Unscoped().Where("created_at < ?", cutoff).Delete(&models.StudentResponse{})
	return res.RowsAffected, res.Error
}
