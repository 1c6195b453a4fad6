package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scorecheck/backend/internal/middleware"
	"github.com/scorecheck/backend/internal/services"
)

type ExamHandler struct {
	catalog *services.ExamCatalogService
}

func NewExamHandler(catalog *services.ExamCatalogService) *ExamHandler {
	return &ExamHandler{catalog: catalog}
}

// @Summary List active exams with dates, shifts and combinations
// @Tags exams
// @Produce json
// @Success 200 {array} services.ExamView
// @Router /api/v1/exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	exams, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch exams")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "exams": exams})
}

// @Summary Create an exam
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.CreateExamInput true "Exam"
// @Success 201 {object} models.Exam
// @Router /api/v1/admin/exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var in services.CreateExamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	exam, err := h.catalog.CreateExam(c.Request.Context(), in, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to create exam")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "exam": exam})
}

type AddDateRequest struct {
	Date string `json:"date" binding:"required"`
}

// @Summary Add a date to an exam
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param request body AddDateRequest true "Date"
// @Success 201 {object} models.ExamDate
// @Router /api/v1/admin/exams/{id}/dates [post]
func (h *ExamHandler) AddDate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AddDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	date, err := h.catalog.AddDate(c.Request.Context(), id, req.Date, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to add exam date")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "examDate": date, "formattedDate": services.FormatExamDate(date.Date)})
}

// @Summary Add a shift to an exam date
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Exam date ID"
// @Param request body services.CreateShiftInput true "Shift"
// @Success 201 {object} models.ExamShift
// @Router /api/v1/admin/exam-dates/{id}/shifts [post]
func (h *ExamHandler) AddShift(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.CreateShiftInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	shift, err := h.catalog.AddShift(c.Request.Context(), id, in, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to add exam shift")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "examShift": shift})
}

// @Summary Add a subject combination to a shift
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Exam shift ID"
// @Param request body services.CreateCombinationInput true "Combination"
// @Success 201 {object} models.SubjectCombination
// @Router /api/v1/admin/exam-shifts/{id}/combinations [post]
func (h *ExamHandler) AddCombination(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.CreateCombinationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	combo, err := h.catalog.AddCombination(c.Request.Context(), id, in, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to add subject combination")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "subjectCombination": combo})
}
