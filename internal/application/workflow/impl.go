package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
)

// DefaultMemberIDPrefix prefixes permanent member IDs, e.g. TM202600001
const DefaultMemberIDPrefix = "TM"

// names reported in dependency errors
const (
	applicationStore = "application store"
	memberStore      = "member store"
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	appRepo     port.ApplicationRepository
	historyRepo port.HistoryRepository
	memberRepo  port.MemberRepository
	directory   port.MemberDirectory
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	metrics     MetricsRecorder
	logger      Logger

	table          *domainwf.Table
	locks          *keyedMutex
	clock          func() time.Time
	memberIDPrefix string
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithMetrics sets the recorder for transition metrics
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithLogger sets a logger for the engine
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.clock = clock
	}
}

// WithMemberIDPrefix sets the prefix of generated permanent member IDs
func WithMemberIDPrefix(prefix string) EngineOption {
	return func(e *engineImpl) {
		if prefix != "" {
			e.memberIDPrefix = prefix
		}
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	appRepo port.ApplicationRepository,
	historyRepo port.HistoryRepository,
	memberRepo port.MemberRepository,
	directory port.MemberDirectory,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		appRepo:        appRepo,
		historyRepo:    historyRepo,
		memberRepo:     memberRepo,
		directory:      directory,
		txManager:      txManager,
		table:          applicationTable(),
		locks:          newKeyedMutex(),
		clock:          time.Now,
		memberIDPrefix: DefaultMemberIDPrefix,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute applies a typed action to an application
func (e *engineImpl) Execute(ctx context.Context, applicationID int64, action Action) (*entity.MemberApplication, error) {
	if action == nil {
		return nil, domainwf.NewValidationError(domainwf.CodeMissingRequiredField, "action", "action is required")
	}

	started := time.Now()
	trigger := action.Trigger()

	unlock := e.locks.Lock(applicationID)
	app, previous, err := e.execute(ctx, applicationID, action)
	unlock()

	if err != nil {
		e.recordFailure(applicationID, trigger, err)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ObserveTransition(trigger.String(), previous.String(), app.Status, time.Since(started))
	}
	if e.logger != nil {
		e.logger.Info("Application transitioned",
			"application_id", applicationID,
			"trigger", trigger,
			"previous_status", previous,
			"new_status", app.Status,
			"version", app.Version,
		)
	}

	e.emit(ctx, app, previous, action)

	return app, nil
}

// execute runs under the per-application lock
func (e *engineImpl) execute(ctx context.Context, applicationID int64, action Action) (*entity.MemberApplication, domainwf.State, error) {
	current, err := e.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, "", domainwf.NewDependencyError(applicationStore, fmt.Errorf("load application %d: %w", applicationID, err))
	}
	if current == nil {
		return nil, "", domainwf.NewNotFoundError(applicationID)
	}

	previous := domainwf.State(current.Status)
	if !previous.IsValid() {
		return nil, "", fmt.Errorf("%w: application %d has status %q", domainwf.ErrInvalidState, applicationID, current.Status)
	}

	trigger := action.Trigger()

	// approval needs two verified referrals whatever stage the application is in
	if trigger == domainwf.TriggerApprove && !previous.IsTerminal() && !current.ReferralsVerified() {
		return nil, "", domainwf.NewGuardError(domainwf.CodeReferralsNotVerified,
			fmt.Sprintf("%d of 2 referrals verified", current.VerifiedReferralCount()))
	}

	machine := e.table.Machine(previous)
	if !machine.CanFire(trigger) {
		return nil, "", &domainwf.Error{
			Kind:    domainwf.KindGuard,
			Code:    domainwf.CodeInvalidTransition,
			Message: fmt.Sprintf("cannot %s from state %s", trigger, previous),
		}
	}

	now := e.clock()
	if err := action.Validate(now); err != nil {
		return nil, "", err
	}

	in := &transitionInput{
		app:    current,
		action: action,
		actor:  ActorFrom(ctx),
		now:    now,
	}
	if err := machine.Fire(withTransitionInput(ctx, in), trigger); err != nil {
		return nil, "", err
	}

	if verify, ok := verifyReferralOf(action); ok {
		lookup, err := e.checkReferral(ctx, current, verify.ReferralNumber)
		if err != nil {
			return nil, "", err
		}
		in.lookup = lookup
	}

	next := current.Clone()
	action.apply(next, in)
	next.Status = machine.State().String()
	next.UpdatedAt = now

	actionData, err := json.Marshal(action)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode action: %w", err)
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if trigger == domainwf.TriggerApprove {
			if err := e.registerMember(txCtx, next, now); err != nil {
				return err
			}
		}

		if err := e.appRepo.Save(txCtx, next, current.Version); err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				return domainwf.NewConflictError(applicationID, err)
			}
			return domainwf.NewDependencyError(applicationStore, fmt.Errorf("save application %d: %w", applicationID, err))
		}

		history := &entity.ApplicationHistory{
			ApplicationID:  applicationID,
			ActorID:        in.actor,
			PreviousStatus: previous.String(),
			NewStatus:      next.Status,
			ActionType:     trigger.String(),
			ActionData:     string(actionData),
			Timestamp:      now,
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return domainwf.NewDependencyError(applicationStore, fmt.Errorf("append history: %w", err))
		}

		return nil
	})
	if err != nil {
		if _, ok := domainwf.AsError(err); ok {
			return nil, "", err
		}
		// begin or commit failed
		return nil, "", domainwf.NewDependencyError(applicationStore, err)
	}

	return next, previous, nil
}

// checkReferral asks the member directory about a referral outside any transaction
func (e *engineImpl) checkReferral(ctx context.Context, app *entity.MemberApplication, number int) (*entity.MemberLookup, error) {
	ref := app.Referral(number)
	lookup, err := e.directory.IsActiveMember(ctx, ref.MemberID)
	if err != nil {
		return nil, domainwf.NewDependencyError("member directory", err)
	}
	if lookup == nil || !lookup.Valid {
		return nil, &domainwf.Error{
			Kind:    domainwf.KindGuard,
			Code:    domainwf.CodeReferralInvalid,
			Message: fmt.Sprintf("referral %d (%s) is not an active member", number, ref.MemberID),
			Field:   fmt.Sprintf("referrals.%d.member_id", number),
		}
	}
	return lookup, nil
}

// registerMember allocates the permanent member ID and enrols the applicant
func (e *engineImpl) registerMember(ctx context.Context, app *entity.MemberApplication, now time.Time) error {
	memberID, err := e.memberRepo.NextPermanentMemberID(ctx, e.memberIDPrefix, now.Year())
	if err != nil {
		return domainwf.NewDependencyError(memberStore, fmt.Errorf("allocate member id: %w", err))
	}
	app.Approval.PermanentMemberID = memberID

	member := &entity.Member{
		MemberID:  memberID,
		FullName:  app.Applicant.FullName,
		ICNumber:  app.Applicant.ICNumber,
		Status:    entity.MemberStatusActive,
		JoinedAt:  now,
		CreatedAt: now,
	}
	if err := e.memberRepo.Create(ctx, member); err != nil {
		return domainwf.NewDependencyError(memberStore, fmt.Errorf("register member %s: %w", memberID, err))
	}
	return nil
}

// VerifyReferral checks referral n against the member directory and marks it verified
func (e *engineImpl) VerifyReferral(ctx context.Context, applicationID int64, referralNumber int, notes string) (*entity.MemberApplication, error) {
	return e.Execute(ctx, applicationID, VerifyReferralAction{ReferralNumber: referralNumber, Notes: notes})
}

// PermittedActions returns the triggers configured for the application's current state
func (e *engineImpl) PermittedActions(ctx context.Context, applicationID int64) ([]domainwf.Trigger, error) {
	state, err := e.GetCurrentState(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return e.table.Triggers(state), nil
}

// GetCurrentState returns the current state of an application
func (e *engineImpl) GetCurrentState(ctx context.Context, applicationID int64) (domainwf.State, error) {
	app, err := e.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return "", domainwf.NewDependencyError(applicationStore, fmt.Errorf("load application %d: %w", applicationID, err))
	}
	if app == nil {
		return "", domainwf.NewNotFoundError(applicationID)
	}

	state := domainwf.State(app.Status)
	if !state.IsValid() {
		return "", fmt.Errorf("%w: application %d has status %q", domainwf.ErrInvalidState, applicationID, app.Status)
	}
	return state, nil
}

func (e *engineImpl) recordFailure(applicationID int64, trigger domainwf.Trigger, err error) {
	code := domainwf.CodeOf(err)
	if e.metrics != nil {
		e.metrics.ObserveRejectedAction(trigger.String(), string(code))
	}
	if e.logger == nil {
		return
	}
	if _, ok := domainwf.AsError(err); ok && code != domainwf.CodeDependencyUnavailable {
		e.logger.Info("Action refused",
			"application_id", applicationID,
			"trigger", trigger,
			"code", code,
			"reason", err.Error(),
		)
		return
	}
	e.logger.Error("Action failed",
		"application_id", applicationID,
		"trigger", trigger,
		"error", err,
	)
}

// emit dispatches the action's event and, when the status moved, a status change
// event after it. Both go out in one call so subscribers see them in that order.
func (e *engineImpl) emit(ctx context.Context, app *entity.MemberApplication, previous domainwf.State, action Action) {
	if e.dispatcher == nil {
		return
	}

	actor := ActorFrom(ctx)
	payload := event.Payload{
		"applicant_name":  app.Applicant.FullName,
		"previous_status": previous.String(),
		"new_status":      app.Status,
		"trigger":         action.Trigger().String(),
	}
	switch a := action.(type) {
	case VerifyReferralAction:
		payload["referral_number"] = a.ReferralNumber
		payload["member_id"] = app.Referral(a.ReferralNumber).MemberID
	case ScheduleInterviewAction:
		payload["date_time"] = a.DateTime.Format(time.RFC3339)
		payload["location"] = app.Interview.Location
	case ApproveAction:
		payload["permanent_member_id"] = app.Approval.PermanentMemberID
		payload["committee"] = app.Approval.ApprovedByCommittee
	case RejectAction:
		payload["reason"] = app.Rejection.Reason
		payload["refund_eligible"] = app.Refund.Eligible
		payload["refund_amount_cents"] = app.Refund.AmountCents
	case ProcessRefundAction:
		payload["reference"] = app.Refund.Reference
		payload["refund_amount_cents"] = app.Refund.AmountCents
	}

	evt := event.NewEvent(action.eventType(), app.ID, actor, payload)
	events := []*event.Event{evt}
	if previous.String() != app.Status {
		events = append(events, evt.Follow(event.TypeStatusChanged, event.Payload{
			"previous_status": previous.String(),
			"new_status":      app.Status,
			"trigger":         action.Trigger().String(),
		}))
	}
	e.dispatcher.DispatchAsync(ctx, events...)
}
