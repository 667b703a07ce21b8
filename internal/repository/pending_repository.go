package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
)

// PendingRepository accesses the per-kind pending collections and their
// lifecycle actions on the platform API.
type PendingRepository struct {
	pipeline *client.Pipeline
	logger   *zap.Logger
}

// NewPendingRepository constructs a pending repository.
func NewPendingRepository(pipeline *client.Pipeline, logger *zap.Logger) *PendingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingRepository{pipeline: pipeline, logger: logger}
}

// List fetches the entities of a kind in the given lifecycle status.
func (r *PendingRepository) List(ctx context.Context, kind models.EntityKind, status models.Status) ([]models.PendingEntity, *client.Outcome) {
	path := fmt.Sprintf("/%s/pending", kind)
	if status != "" && status != models.StatusPending {
		path = fmt.Sprintf("%s?status=%s", path, status)
	}

	outcome := r.pipeline.Get(ctx, path)
	if !outcome.Success {
		return nil, outcome
	}

	var items []models.PendingEntity
	if err := outcome.Decode(&items); err != nil {
		r.logger.Warn("pending list payload malformed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, &client.Outcome{Kind: client.FailureTransport, HTTPStatus: outcome.HTTPStatus, Message: "malformed list payload"}
	}
	return items, outcome
}

// Approve confirms a pending entity.
func (r *PendingRepository) Approve(ctx context.Context, kind models.EntityKind, id int64) *client.Outcome {
	return r.pipeline.Execute(ctx, "POST", fmt.Sprintf("/%s/pending/%d/confirm", kind, id), nil)
}

// Reject declines a pending entity.
func (r *PendingRepository) Reject(ctx context.Context, kind models.EntityKind, id int64) *client.Outcome {
	return r.pipeline.Execute(ctx, "POST", fmt.Sprintf("/%s/pending/%d/reject", kind, id), nil)
}

// Delete removes a decided entity from the authoritative table.
func (r *PendingRepository) Delete(ctx context.Context, kind models.EntityKind, id int64) *client.Outcome {
	return r.pipeline.Execute(ctx, "DELETE", fmt.Sprintf("/%s/pending/%d", kind, id), nil)
}
