package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/report"
	"github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/scoring"
	"github.com/scorecheck/backend/internal/services"
)

type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (*services.AnalyzeResult, error)
}

type AnalysisHandler struct {
	analyzer Analyzer
}

func NewAnalysisHandler(analyzer Analyzer) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer}
}

type AnalyzeRequest struct {
	services.ScopeInput
	ResponseInput string `json:"responseInput" binding:"required"`
	Format        string `json:"format"`
}

type AnalyzeResponse struct {
	Success     bool                    `json:"success"`
	Analysis    any                     `json:"analysis"`
	Message     string                  `json:"message,omitempty"`
	ResponseID  uuid.UUID               `json:"responseId"`
	StudentData responsesheet.Candidate `json:"studentData"`
}

// @Summary Analyze a response sheet
// @Description Parses a response sheet (URL, HTML or text) and scores it against the approved answer key for the exam scope. Returns analysis null when no key exists.
// @Tags analysis
// @Accept json
// @Produce json
// @Param request body AnalyzeRequest true "Exam scope and response sheet"
// @Success 200 {object} AnalyzeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	scope, err := req.Resolve()
	if err != nil {
		respondError(c, err, "Analysis failed")
		return
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.analyzer.Analyze(c.Request.Context(), services.AnalyzeRequest{
		Scope:         scope,
		ResponseInput: req.ResponseInput,
		Format:        format,
	})
	if errors.Is(err, scoring.ErrAnswerKeyUnavailable) {
		if res == nil {
			res = &services.AnalyzeResult{}
		}
		c.JSON(http.StatusOK, AnalyzeResponse{
			Success:     true,
			Analysis:    nil,
			Message:     "Answer key not available",
			ResponseID:  res.ResponseID,
			StudentData: res.Candidate,
		})
		return
	}
	if err != nil {
		respondError(c, err, "Analysis failed")
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:     true,
		Analysis:    res.Report,
		ResponseID:  res.ResponseID,
		StudentData: res.Candidate,
	})
}
