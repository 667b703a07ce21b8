package service

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
	appErrors "github.com/itqan-app/itqan-console/pkg/errors"
)

type guardianLinker interface {
	Link(ctx context.Context, studentID int64, email string) *client.Outcome
	ProvisionAndLink(ctx context.Context, studentID int64, email string) (models.ProvisionedGuardian, *client.Outcome)
}

// LinkState tracks where the linking protocol currently stands.
type LinkState string

const (
	// LinkIdle accepts a new link attempt.
	LinkIdle LinkState = "idle"
	// LinkInFlight has a request outstanding; the trigger is disabled.
	LinkInFlight LinkState = "inflight"
	// LinkRecovery offers provisioning a new guardian account after a
	// failed lookup.
	LinkRecovery LinkState = "recovery"
)

// unregisteredPatterns mark a logical rejection as "guardian does not
// exist yet". A stable server error code should replace these substrings
// once the platform provides one.
var unregisteredPatterns = []string{
	"غير مسجل",
	"غير موجود",
	"not registered",
	"unregistered",
	"no guardian account",
}

// LinkResult tells the caller how a link attempt ended.
type LinkResult struct {
	// Linked is true when the relationship was established.
	Linked bool
	// RecoveryOffered is true when the protocol entered the recovery
	// state and awaits the operator's provisioning decision.
	RecoveryOffered bool
	// Outcome is the raw pipeline result for presentation.
	Outcome *client.Outcome
}

// GuardianService implements the two-phase guardian linking protocol:
// attempt a link by email, and on an identity-lookup failure offer to
// provision a fresh account instead of surfacing a raw error. Transient
// failures never trigger provisioning, so network blips cannot spawn
// duplicate accounts.
type GuardianService struct {
	repo     guardianLinker
	validate *validator.Validate
	logger   *zap.Logger

	mu        sync.Mutex
	state     LinkState
	studentID int64
	email     string
}

// NewGuardianService constructs a guardian service.
func NewGuardianService(repo guardianLinker, validate *validator.Validate, logger *zap.Logger) *GuardianService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianService{repo: repo, validate: validate, logger: logger, state: LinkIdle}
}

// State returns the protocol state.
func (s *GuardianService) State() LinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Link attempts to attach an existing guardian account to the student.
// Invalid input fails fast locally without a network call.
func (s *GuardianService) Link(ctx context.Context, studentID int64, email string) (*LinkResult, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enter a valid guardian email")
	}

	s.mu.Lock()
	if s.state != LinkIdle {
		s.mu.Unlock()
		return nil, appErrors.ErrBusy
	}
	s.state = LinkInFlight
	s.mu.Unlock()

	outcome := s.repo.Link(ctx, studentID, email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome.Success {
		s.state = LinkIdle
		s.logger.Info("guardian linked", zap.Int64("student_id", studentID))
		return &LinkResult{Linked: true, Outcome: outcome}, nil
	}

	if triggersRecovery(outcome) {
		s.state = LinkRecovery
		s.studentID = studentID
		s.email = email
		s.logger.Info("guardian lookup failed, recovery offered",
			zap.Int64("student_id", studentID),
			zap.String("failure", string(outcome.Kind)))
		return &LinkResult{RecoveryOffered: true, Outcome: outcome}, nil
	}

	s.state = LinkIdle
	return &LinkResult{Outcome: outcome}, outcome.Err()
}

// ConfirmProvision executes the recovery branch: one atomic
// create-and-link call. Whatever the result, the recovery state is exited
// without a retry loop.
func (s *GuardianService) ConfirmProvision(ctx context.Context) (*models.ProvisionedGuardian, error) {
	s.mu.Lock()
	if s.state != LinkRecovery {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrIllegalState, "no pending guardian provisioning")
	}
	studentID, email := s.studentID, s.email
	s.state = LinkInFlight
	s.mu.Unlock()

	provisioned, outcome := s.repo.ProvisionAndLink(ctx, studentID, email)

	s.mu.Lock()
	s.state = LinkIdle
	s.studentID = 0
	s.email = ""
	s.mu.Unlock()

	if !outcome.Success {
		return nil, outcome.Err()
	}
	if provisioned.GuardianEmail == "" {
		provisioned.GuardianEmail = email
	}
	s.logger.Info("guardian provisioned and linked", zap.Int64("student_id", studentID))
	return &provisioned, nil
}

// Decline exits the recovery state and resets the staged email, returning
// the protocol to its initial state.
func (s *GuardianService) Decline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == LinkRecovery {
		s.state = LinkIdle
		s.studentID = 0
		s.email = ""
	}
}

// triggersRecovery decides whether a failure means "guardian does not
// exist" rather than "something else went wrong". Only identity-lookup
// failures may offer account provisioning.
func triggersRecovery(outcome *client.Outcome) bool {
	switch outcome.Kind {
	case client.FailureNotFound, client.FailureValidation:
		return true
	case client.FailureRejected:
		message := strings.ToLower(outcome.Message)
		for _, pattern := range unregisteredPatterns {
			if strings.Contains(message, pattern) {
				return true
			}
		}
	}
	return false
}
