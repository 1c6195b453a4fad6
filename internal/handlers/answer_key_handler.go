package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/aiformat"
	"github.com/scorecheck/backend/internal/answerkey"
	"github.com/scorecheck/backend/internal/middleware"
	"github.com/scorecheck/backend/internal/models"
	"github.com/scorecheck/backend/internal/services"
)

// AnswerKeyStore is the answer-key workflow the handlers drive.
type AnswerKeyStore interface {
	Upload(ctx context.Context, scope models.ExamScope, raw string, actor services.Actor) (*services.UploadResult, error)
	SaveManual(ctx context.Context, scope models.ExamScope, subject string, answers []models.AnswerItem, actor services.Actor) error
	SubmitPending(ctx context.Context, scope models.ExamScope, raw, submittedBy string) ([]string, error)
	ListPending(ctx context.Context) ([]models.PendingAnswerKey, error)
	Approve(ctx context.Context, id uuid.UUID, actor services.Actor) (*models.AnswerKey, error)
	Reject(ctx context.Context, id uuid.UUID, actor services.Actor) error
}

type KeyFormatter interface {
	Format(ctx context.Context, raw string) ([]aiformat.Row, error)
}

type AnswerKeyHandler struct {
	keys      AnswerKeyStore
	formatter KeyFormatter
}

func NewAnswerKeyHandler(keys AnswerKeyStore, formatter KeyFormatter) *AnswerKeyHandler {
	return &AnswerKeyHandler{keys: keys, formatter: formatter}
}

type AnswerKeyTextRequest struct {
	services.ScopeInput
	AnswerKeyData string `json:"answerKeyData" binding:"required"`
}

type ValidateRequest struct {
	AnswerKeyData string `json:"answerKeyData"`
}

// @Summary Validate answer-key text
// @Tags answer-keys
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "Raw answer key"
// @Success 200 {object} answerkey.Validation
// @Router /api/v1/answer-keys/validate [post]
func (h *AnswerKeyHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, answerkey.ValidateResult(req.AnswerKeyData))
}

// @Summary Submit an answer key for approval
// @Tags answer-keys
// @Accept json
// @Produce json
// @Param request body AnswerKeyTextRequest true "Scope and raw answer key"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/answer-keys/submit [post]
func (h *AnswerKeyHandler) Submit(c *gin.Context) {
	var req AnswerKeyTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	scope, err := req.Resolve()
	if err != nil {
		respondError(c, err, "Failed to submit answer key")
		return
	}

	subjects, err := h.keys.SubmitPending(c.Request.Context(), scope, req.AnswerKeyData, "student")
	if err != nil {
		respondError(c, err, "Failed to submit answer key")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"subjects": subjects,
		"message":  "Answer key submitted for approval",
	})
}

// @Summary Upload an approved answer key
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AnswerKeyTextRequest true "Scope and raw answer key"
// @Success 200 {object} services.UploadResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/admin/answer-keys/upload [post]
func (h *AnswerKeyHandler) Upload(c *gin.Context) {
	var req AnswerKeyTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	scope, err := req.Resolve()
	if err != nil {
		respondError(c, err, "Failed to upload answer key")
		return
	}

	res, err := h.keys.Upload(c.Request.Context(), scope, req.AnswerKeyData, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to upload answer key")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  res,
		"message": "Answer key uploaded successfully",
	})
}

type ManualKeyRequest struct {
	services.ScopeInput
	Subject string              `json:"subject" binding:"required"`
	Answers []models.AnswerItem `json:"answers" binding:"required"`
}

// @Summary Save a manually entered answer key
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ManualKeyRequest true "Scope, subject and answers"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/admin/answer-keys/manual [post]
func (h *AnswerKeyHandler) SaveManual(c *gin.Context) {
	var req ManualKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	scope, err := req.Resolve()
	if err != nil {
		respondError(c, err, "Failed to save manual answer key")
		return
	}

	if err := h.keys.SaveManual(c.Request.Context(), scope, req.Subject, req.Answers, middleware.ActorFrom(c)); err != nil {
		respondError(c, err, "Failed to save manual answer key")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Manual answer key saved successfully for %s", req.Subject),
	})
}

type FormatRequest struct {
	RawAnswerKey string `json:"rawAnswerKey" binding:"required"`
	Subject      string `json:"subject"`
}

// @Summary Reformat free-form answer-key text with an AI model
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body FormatRequest true "Raw answer key"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/admin/answer-keys/format [post]
func (h *AnswerKeyHandler) Format(c *gin.Context) {
	var req FormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "No answer key data provided")
		return
	}

	rows, err := h.formatter.Format(c.Request.Context(), req.RawAnswerKey)
	if err != nil {
		respondError(c, err, "Failed to format answer key")
		return
	}

	resp := gin.H{
		"success":       true,
		"formattedData": rows,
		"message":       fmt.Sprintf("Successfully formatted %d answer entries", len(rows)),
	}
	if req.Subject != "" {
		resp["answerKeyData"] = aiformat.ToAnswerKey(req.Subject, rows)
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List pending answer keys
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.PendingAnswerKey
// @Router /api/v1/admin/pending-keys [get]
func (h *AnswerKeyHandler) ListPending(c *gin.Context) {
	pending, err := h.keys.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch pending keys")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "pendingKeys": pending})
}

// @Summary Approve a pending answer key
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Pending key ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/pending-keys/{id}/approve [post]
func (h *AnswerKeyHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	key, err := h.keys.Approve(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to approve answer key")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"subject": key.Subject,
		"message": "Answer key approved and saved",
	})
}

// @Summary Reject a pending answer key
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Pending key ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/pending-keys/{id}/reject [post]
func (h *AnswerKeyHandler) Reject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.keys.Reject(c.Request.Context(), id, middleware.ActorFrom(c)); err != nil {
		respondError(c, err, "Failed to reject answer key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Answer key rejected"})
}
