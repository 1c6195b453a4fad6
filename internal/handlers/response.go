package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/aiformat"
	"github.com/scorecheck/backend/internal/answerkey"
	"github.com/scorecheck/backend/internal/middleware"
	"github.com/scorecheck/backend/internal/responsesheet"
	"github.com/scorecheck/backend/internal/services"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, answerkey.ErrMalformed),
		errors.Is(err, responsesheet.ErrMalformed),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, aiformat.ErrNoRows),
		errors.Is(err, services.ErrSelfDelete):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, responsesheet.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, aiformat.ErrDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes the mapped status. Server errors are logged and
// replaced by fallback so internals never reach the client.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		middleware.RequestLogger(c).Error(fallback, "error", err)
		_ = c.Error(err)
		fail(c, status, fallback)
		return
	}
	fail(c, status, clientMessage(err))
}

// clientMessage capitalizes the fetch sentinel's text instead of repeating it.
func clientMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, responsesheet.ErrFetch) {
		cause := strings.TrimPrefix(msg, responsesheet.ErrFetch.Error())
		cause = strings.TrimPrefix(cause, ": ")
		if cause == "" {
			return "Could not retrieve response sheet"
		}
		return "Could not retrieve response sheet: " + cause
	}
	return msg
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
