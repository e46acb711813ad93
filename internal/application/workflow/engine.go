package workflow

import (
	"context"
	"time"

	"github.com/garyjia/temple-membership/internal/domain/entity"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
)

// WorkflowEngine owns the lifecycle of membership applications
type WorkflowEngine interface {
	// Execute applies a typed action to an application as one atomic update.
	// Requests for the same application are serialized.
	Execute(ctx context.Context, applicationID int64, action Action) (*entity.MemberApplication, error)

	// VerifyReferral checks referral n against the member directory and marks it verified
	VerifyReferral(ctx context.Context, applicationID int64, referralNumber int, notes string) (*entity.MemberApplication, error)

	// PermittedActions returns the triggers configured for the application's current state
	PermittedActions(ctx context.Context, applicationID int64) ([]domainwf.Trigger, error)

	// GetCurrentState returns the current state of an application
	GetCurrentState(ctx context.Context, applicationID int64) (domainwf.State, error)
}

// MetricsRecorder receives transition outcomes
type MetricsRecorder interface {
	ObserveTransition(trigger, from, to string, duration time.Duration)
	ObserveRejectedAction(trigger, code string)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
