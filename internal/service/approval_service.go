package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
	appErrors "github.com/itqan-app/itqan-console/pkg/errors"
)

type lifecycleActions interface {
	Approve(ctx context.Context, kind models.EntityKind, id int64) *client.Outcome
	Reject(ctx context.Context, kind models.EntityKind, id int64) *client.Outcome
	Delete(ctx context.Context, kind models.EntityKind, id int64) *client.Outcome
}

// Confirmer asks the operator a blocking yes/no question before a
// destructive action is dispatched.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// ApprovalService dispatches the lifecycle actions of the entity status
// state machine. The server stays authoritative: a transition only becomes
// real through an accepted mutation response, nothing is retried
// automatically, and the service serializes its own mutations by refusing
// a second in-flight call.
type ApprovalService struct {
	repo      lifecycleActions
	confirmer Confirmer
	logger    *zap.Logger

	busy chan struct{}
}

// NewApprovalService constructs an approval service.
func NewApprovalService(repo lifecycleActions, confirmer Confirmer, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	busy := make(chan struct{}, 1)
	return &ApprovalService{repo: repo, confirmer: confirmer, logger: logger, busy: busy}
}

func (s *ApprovalService) acquire() error {
	select {
	case s.busy <- struct{}{}:
		return nil
	default:
		return appErrors.ErrBusy
	}
}

func (s *ApprovalService) release() {
	<-s.busy
}

// Approve moves a pending entity to active. A non-pending entity (e.g.
// already decided by another operator) surfaces the server's rejection
// untouched.
func (s *ApprovalService) Approve(ctx context.Context, kind models.EntityKind, id int64) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	outcome := s.repo.Approve(ctx, kind, id)
	s.logAction("approve", kind, id, outcome)
	return outcome.Err()
}

// Reject moves a pending entity to rejected.
func (s *ApprovalService) Reject(ctx context.Context, kind models.EntityKind, id int64) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	outcome := s.repo.Reject(ctx, kind, id)
	s.logAction("reject", kind, id, outcome)
	return outcome.Err()
}

// Delete removes a decided entity. It is irreversible, requires an
// explicit operator confirmation, and is never legal straight from
// pending: the approve/reject decision has to land in the audit trail
// first.
func (s *ApprovalService) Delete(ctx context.Context, kind models.EntityKind, id int64, current models.Status) error {
	if !current.CanTransition(models.StatusDeleted) {
		return appErrors.Clone(appErrors.ErrIllegalState, "approve or reject the entity before deleting it")
	}

	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	prompt := fmt.Sprintf("Permanently delete %s #%d? This cannot be undone.", kind, id)
	if s.confirmer == nil || !s.confirmer.Confirm(prompt) {
		return appErrors.ErrAborted
	}

	outcome := s.repo.Delete(ctx, kind, id)
	s.logAction("delete", kind, id, outcome)
	return outcome.Err()
}

func (s *ApprovalService) logAction(action string, kind models.EntityKind, id int64, outcome *client.Outcome) {
	if outcome.Success {
		s.logger.Info("lifecycle action applied",
			zap.String("action", action),
			zap.String("kind", string(kind)),
			zap.Int64("id", id))
		return
	}
	s.logger.Warn("lifecycle action failed",
		zap.String("action", action),
		zap.String("kind", string(kind)),
		zap.Int64("id", id),
		zap.String("failure", string(outcome.Kind)),
		zap.String("message", outcome.Message))
}
