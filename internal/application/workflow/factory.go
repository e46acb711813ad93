package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/temple-membership/internal/domain/entity"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
)

// transitionInput is what guards and actions see while a trigger is fired
type transitionInput struct {
	app    *entity.MemberApplication
	action Action
	actor  string
	now    time.Time
	lookup *entity.MemberLookup
}

type transitionKey struct{}

func withTransitionInput(ctx context.Context, in *transitionInput) context.Context {
	return context.WithValue(ctx, transitionKey{}, in)
}

func inputFrom(ctx context.Context) (*transitionInput, error) {
	in, ok := ctx.Value(transitionKey{}).(*transitionInput)
	if !ok || in == nil || in.app == nil {
		return nil, fmt.Errorf("no application in transition context")
	}
	return in, nil
}

// applicationTable is the membership application lifecycle.
// APPROVED is terminal and REJECTED only admits refund processing.
var applicationTable = sync.OnceValue(func() *domainwf.Table {
	builder := domainwf.NewBuilder()

	builder.From(domainwf.StatePendingSubmission).
		Permit(domainwf.TriggerUpdateDraft, domainwf.StatePendingSubmission).
		PermitIf(domainwf.TriggerSubmit, domainwf.StateSubmitted, guardSubmissionComplete).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, guardRefundPayable)

	builder.From(domainwf.StateSubmitted).
		Permit(domainwf.TriggerStartVerification, domainwf.StateUnderVerification).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, guardRefundPayable)

	builder.From(domainwf.StateUnderVerification).
		PermitIf(domainwf.TriggerVerifyReferral, domainwf.StateUnderVerification, guardReferralUnverified).
		PermitIf(domainwf.TriggerRequestApproval, domainwf.StatePendingApproval, guardReferralsVerified).
		Permit(domainwf.TriggerScheduleInterview, domainwf.StateInterviewScheduled).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, guardRefundPayable)

	builder.From(domainwf.StateInterviewScheduled).
		PermitIf(domainwf.TriggerScheduleInterview, domainwf.StateInterviewScheduled, guardInterviewOpen).
		PermitIf(domainwf.TriggerVerifyReferral, domainwf.StateInterviewScheduled, guardReferralUnverified).
		PermitIf(domainwf.TriggerCompleteInterview, domainwf.StateInterviewScheduled, guardInterviewOpen).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, guardApprovableAfterInterview).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, guardRefundPayable)

	builder.From(domainwf.StatePendingApproval).
		Permit(domainwf.TriggerScheduleInterview, domainwf.StateInterviewScheduled).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, guardReferralsVerified).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, guardRefundPayable)

	builder.From(domainwf.StateRejected).
		PermitIf(domainwf.TriggerProcessRefund, domainwf.StateRejected, guardRefundOutstanding)

	return builder.Table()
})

// BuildApplicationStateMachine creates a state machine for one application
func BuildApplicationStateMachine(initialState domainwf.State) domainwf.StateMachine {
	return applicationTable().Machine(initialState)
}

func guardSubmissionComplete(ctx context.Context) error {
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	missing := in.app.MissingSubmissionFields()
	if len(missing) == 0 {
		return nil
	}
	return &domainwf.Error{
		Kind:    domainwf.KindGuard,
		Code:    domainwf.CodeIncompleteSubmission,
		Message: fmt.Sprintf("missing required fields: %v", missing),
		Field:   missing[0],
	}
}

func guardReferralsVerified(ctx context.Context) error {
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	if !in.app.ReferralsVerified() {
		return domainwf.NewGuardError(domainwf.CodeReferralsNotVerified,
			fmt.Sprintf("%d of 2 referrals verified", in.app.VerifiedReferralCount()))
	}
	return nil
}

func guardReferralUnverified(ctx context.Context) error {
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	action, ok := verifyReferralOf(in.action)
	if !ok {
		return fmt.Errorf("unexpected action %T for referral verification", in.action)
	}
	ref := in.app.Referral(action.ReferralNumber)
	if ref == nil {
		return domainwf.NewValidationError(domainwf.CodeInvalidReferralNumber, "referral_number",
			fmt.Sprintf("referral number must be 1 or 2, got %d", action.ReferralNumber))
	}
	if ref.Verified {
		return domainwf.NewGuardError(domainwf.CodeAlreadyVerified,
			fmt.Sprintf("referral %d is already verified", action.ReferralNumber))
	}
	return nil
}

func guardInterviewOpen(ctx context.Context) error {
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	if !in.app.Interview.Scheduled {
		return domainwf.NewGuardError(domainwf.CodeInterviewNotScheduled, "no interview is scheduled")
	}
	if in.app.Interview.IsCompleted() {
		return domainwf.NewGuardError(domainwf.CodeInterviewAlreadyCompleted, "interview is already completed")
	}
	return nil
}

func guardApprovableAfterInterview(ctx context.Context) error {
	if err := guardReferralsVerified(ctx); err != nil {
		return err
	}
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	if !in.app.Interview.IsCompleted() {
		return domainwf.NewGuardError(domainwf.CodeInterviewNotCompleted, "interview has not been completed")
	}
	return nil
}

func guardRefundPayable(ctx context.Context) error {
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	action, ok := rejectOf(in.action)
	if !ok || !action.RefundEligible {
		return nil
	}
	if !in.app.EntryFee.Paid {
		return domainwf.NewGuardError(domainwf.CodeRefundWithoutPayment, "entry fee was never paid")
	}
	if amount := action.refundAmount(in.app); amount > in.app.EntryFee.AmountCents {
		return domainwf.NewValidationError(domainwf.CodeInvalidAmount, "refund_amount",
			fmt.Sprintf("refund %s exceeds entry fee %s",
				entity.FormatCents(amount), entity.FormatCents(in.app.EntryFee.AmountCents)))
	}
	return nil
}

func guardRefundOutstanding(ctx context.Context) error {
	in, err := inputFrom(ctx)
	if err != nil {
		return err
	}
	if !in.app.Refund.Eligible {
		return domainwf.NewGuardError(domainwf.CodeRefundNotEligible, "application is not eligible for a refund")
	}
	if in.app.Refund.Processed {
		return domainwf.NewGuardError(domainwf.CodeAlreadyProcessed, "refund has already been processed")
	}
	return nil
}

func verifyReferralOf(a Action) (VerifyReferralAction, bool) {
	switch v := a.(type) {
	case VerifyReferralAction:
		return v, true
	case *VerifyReferralAction:
		if v != nil {
			return *v, true
		}
	}
	return VerifyReferralAction{}, false
}

func rejectOf(a Action) (RejectAction, bool) {
	switch v := a.(type) {
	case RejectAction:
		return v, true
	case *RejectAction:
		if v != nil {
			return *v, true
		}
	}
	return RejectAction{}, false
}
