package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scorecheck/backend/internal/middleware"
	"github.com/scorecheck/backend/internal/services"
)

type MarkingSchemeHandler struct {
	schemes *services.MarkingSchemeService
}

func NewMarkingSchemeHandler(schemes *services.MarkingSchemeService) *MarkingSchemeHandler {
	return &MarkingSchemeHandler{schemes: schemes}
}

// @Summary List marking schemes for an exam scope
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param examName query string true "Exam name"
// @Param examYear query string true "Exam year"
// @Param examDate query string true "Exam date (YYYY-MM-DD or DD/MM/YYYY)"
// @Param shiftName query string true "Shift name"
// @Param subjectCombination query string false "Subject combination"
// @Success 200 {array} models.MarkingScheme
// @Router /api/v1/admin/marking-schemes [get]
func (h *MarkingSchemeHandler) List(c *gin.Context) {
	var in services.ScopeInput
	if err := c.ShouldBindQuery(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := in.Resolve()
	if err != nil {
		respondError(c, err, "Failed to fetch marking schemes")
		return
	}

	schemes, err := h.schemes.List(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err, "Failed to fetch marking schemes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "markingSchemes": schemes})
}

type UpsertSchemeRequest struct {
	services.ScopeInput
	services.SchemeInput
}

// @Summary Create or replace a marking scheme
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body UpsertSchemeRequest true "Scope and scheme"
// @Success 200 {object} models.MarkingScheme
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/admin/marking-schemes [post]
func (h *MarkingSchemeHandler) Upsert(c *gin.Context) {
	var req UpsertSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := req.ScopeInput.Resolve()
	if err != nil {
		respondError(c, err, "Failed to save marking scheme")
		return
	}

	scheme, err := h.schemes.Upsert(c.Request.Context(), scope, req.SchemeInput, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to save marking scheme")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "markingScheme": scheme})
}

// @Summary Update a marking scheme
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Marking scheme ID"
// @Param request body services.SchemeInput true "Scheme"
// @Success 200 {object} models.MarkingScheme
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/marking-schemes/{id} [put]
func (h *MarkingSchemeHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.SchemeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	scheme, err := h.schemes.Update(c.Request.Context(), id, in, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err, "Failed to update marking scheme")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "markingScheme": scheme})
}

// @Summary Delete a marking scheme
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Marking scheme ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/marking-schemes/{id} [delete]
func (h *MarkingSchemeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.schemes.Delete(c.Request.Context(), id, middleware.ActorFrom(c)); err != nil {
		respondError(c, err, "Failed to delete marking scheme")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Marking scheme deleted"})
}
