// Package http provides HTTP handlers for decision log retrieval.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	"github.com/pbarbosa/tenantvault/internal/httputil"
)

// DecisionLogHandler handles HTTP requests for decision log operations.
type DecisionLogHandler struct {
	auditUseCase auditUseCase.AuditUseCase
	logger       *slog.Logger
}

// NewDecisionLogHandler creates a new decision log handler with required
// dependencies.
func NewDecisionLogHandler(
	useCase auditUseCase.AuditUseCase,
	logger *slog.Logger,
) *DecisionLogHandler {
	return &DecisionLogHandler{
		auditUseCase: useCase,
		logger:       logger,
	}
}

// DecisionLogResponse represents a recorded decision in API responses.
type DecisionLogResponse struct {
	ID         string         `json:"id"`
	RequestID  string         `json:"request_id"`
	DomainID   string         `json:"domain_id"`
	Subject    string         `json:"subject"`
	Path       string         `json:"path"`
	Capability string         `json:"capability"`
	Outcome    string         `json:"outcome"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// mapDecisionLogToResponse converts a decision log entry to an API response.
func mapDecisionLogToResponse(entry *auditDomain.DecisionLog) DecisionLogResponse {
	return DecisionLogResponse{
		ID:         entry.ID.String(),
		RequestID:  entry.RequestID.String(),
		DomainID:   entry.DomainID,
		Subject:    entry.Subject,
		Path:       entry.Path,
		Capability: string(entry.Capability),
		Outcome:    string(entry.Outcome),
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
}

// ListHandler retrieves decision logs with pagination and optional filters.
// GET /v1/admin/decision-logs?domain_id=...&offset=0&limit=50&created_at_from=...&created_at_to=...
// Requires read capability on sys/decision-logs. Returns 200 OK with
// decisions ordered newest first. Time boundaries are RFC3339, converted to
// UTC, both inclusive. An empty domain_id lists across all domains.
func (h *DecisionLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var createdAtFrom *time.Time
	if fromStr := c.Query("created_at_from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid created_at_from format: must be RFC3339 (e.g., 2026-08-01T00:00:00Z)"),
				h.logger)
			return
		}
		utcTime := parsed.UTC()
		createdAtFrom = &utcTime
	}

	var createdAtTo *time.Time
	if toStr := c.Query("created_at_to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid created_at_to format: must be RFC3339 (e.g., 2026-08-14T23:59:59Z)"),
				h.logger)
			return
		}
		utcTime := parsed.UTC()
		createdAtTo = &utcTime
	}

	if createdAtFrom != nil && createdAtTo != nil && createdAtFrom.After(*createdAtTo) {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("created_at_from must be before or equal to created_at_to"),
			h.logger)
		return
	}

	entries, err := h.auditUseCase.List(
		c.Request.Context(),
		c.Query("domain_id"),
		offset,
		limit,
		createdAtFrom,
		createdAtTo,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]DecisionLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapDecisionLogToResponse(entry))
	}

	c.JSON(http.StatusOK, gin.H{
		"decision_logs": responses,
		"offset":        offset,
		"limit":         limit,
	})
}
