package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
)

type linkRequest struct {
	GuardianEmail string `json:"guardian_email"`
}

// GuardianRepository drives the two guardian endpoints of the platform API.
type GuardianRepository struct {
	pipeline *client.Pipeline
	logger   *zap.Logger
}

// NewGuardianRepository constructs a guardian repository.
func NewGuardianRepository(pipeline *client.Pipeline, logger *zap.Logger) *GuardianRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianRepository{pipeline: pipeline, logger: logger}
}

// Link attempts to attach an existing guardian account by email.
func (r *GuardianRepository) Link(ctx context.Context, studentID int64, email string) *client.Outcome {
	return r.pipeline.Execute(ctx, "POST",
		fmt.Sprintf("/students/%d/link-guardian", studentID),
		linkRequest{GuardianEmail: email})
}

// ProvisionAndLink creates a new guardian account bound to the email and
// links it in one atomic server operation. The console issues exactly one
// request and does not attempt partial rollback on its own.
func (r *GuardianRepository) ProvisionAndLink(ctx context.Context, studentID int64, email string) (models.ProvisionedGuardian, *client.Outcome) {
	outcome := r.pipeline.Execute(ctx, "POST",
		fmt.Sprintf("/students/%d/create-guardian", studentID),
		linkRequest{GuardianEmail: email})

	var provisioned models.ProvisionedGuardian
	if outcome.Success {
		if err := outcome.Decode(&provisioned); err != nil {
			r.logger.Warn("provision payload malformed", zap.Int64("student_id", studentID), zap.Error(err))
		}
	}
	return provisioned, outcome
}
