package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/services"
)

type stubVerifier struct {
	claims *services.Claims
}

func (s stubVerifier) VerifyToken(token string) (*services.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthMiddleware(t *testing.T) {
	id := uuid.New()
	verifier := stubVerifier{claims: &services.Claims{AdminID: id, Role: services.RoleAdmin, Email: "a@example.com"}}

	tests := []struct {
		name     string
		header   string
		role     string
		expected int
	}{
		{"Missing header", "", services.RoleAdmin, http.StatusUnauthorized},
		{"Wrong scheme", "Basic good", services.RoleAdmin, http.StatusUnauthorized},
		{"Bad token", "Bearer nope", services.RoleAdmin, http.StatusUnauthorized},
		{"Valid admin", "Bearer good", services.RoleAdmin, http.StatusOK},
		{"Wrong role", "Bearer good", "superuser", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", AuthMiddleware(verifier), RequireRole(tt.role), func(c *gin.Context) {
				actor := ActorFrom(c)
				if actor.ID != id || actor.Email != "a@example.com" {
					t.Errorf("Unexpected actor: %+v", actor)
				}
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := gin.New()
	r.Use(Logger(logger))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "trace-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(TraceHeader); got != "trace-123" {
		t.Errorf("Expected trace id to be echoed, got %q", got)
	}
	out := buf.String()
	if !strings.Contains(out, "trace_id=trace-123") || !strings.Contains(out, "status=418") {
		t.Errorf("Unexpected log line: %s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("Expected 4xx to log at warn, got %s", out)
	}
}
