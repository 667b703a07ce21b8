package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
)

// AuditRepository reads the server-produced change log.
type AuditRepository struct {
	pipeline *client.Pipeline
	logger   *zap.Logger
}

// NewAuditRepository constructs an audit repository.
func NewAuditRepository(pipeline *client.Pipeline, logger *zap.Logger) *AuditRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRepository{pipeline: pipeline, logger: logger}
}

// Fetch loads the raw log entries for a period (e.g. "today", "week").
func (r *AuditRepository) Fetch(ctx context.Context, period string) (models.AuditPage, *client.Outcome) {
	outcome := r.pipeline.Get(ctx, fmt.Sprintf("/reports/audit-logs/%s", period))

	var page models.AuditPage
	if outcome.Success {
		if err := outcome.Decode(&page); err != nil {
			r.logger.Warn("audit payload malformed", zap.String("period", period), zap.Error(err))
			return page, &client.Outcome{Kind: client.FailureTransport, HTTPStatus: outcome.HTTPStatus, Message: "malformed audit payload"}
		}
	}
	return page, outcome
}

// Clear wipes the server-side log.
func (r *AuditRepository) Clear(ctx context.Context) *client.Outcome {
	return r.pipeline.Execute(ctx, "DELETE", "/reports/audit-logs/clear", nil)
}

// Export asks the server to render the period's log for download.
func (r *AuditRepository) Export(ctx context.Context, period string) (models.AuditExport, *client.Outcome) {
	outcome := r.pipeline.Get(ctx, fmt.Sprintf("/reports/audit-logs/export/%s", period))

	var export models.AuditExport
	if outcome.Success {
		if err := outcome.Decode(&export); err != nil {
			r.logger.Warn("export payload malformed", zap.String("period", period), zap.Error(err))
			return export, &client.Outcome{Kind: client.FailureTransport, HTTPStatus: outcome.HTTPStatus, Message: "malformed export payload"}
		}
	}
	return export, outcome
}
