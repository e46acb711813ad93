package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
	domainwf "github.com/garyjia/temple-membership/internal/domain/workflow"
	"github.com/garyjia/temple-membership/pkg/utils"
)

// Action is a typed request to move an application through its lifecycle.
// The set of actions is closed: only the types in this file implement it.
type Action interface {
	// Trigger returns the state machine trigger the action fires
	Trigger() domainwf.Trigger

	// Validate checks the payload on its own, before any state is consulted
	Validate(now time.Time) error

	apply(app *entity.MemberApplication, in *transitionInput)
	eventType() event.Type
}

// ReferralInput names one of the two referring members on a draft
type ReferralInput struct {
	Name     string `json:"name"`
	MemberID string `json:"member_id"`
}

// UpdateDraftAction overwrites draft fields. Nil fields are left unchanged.
type UpdateDraftAction struct {
	Applicant        *entity.Applicant `json:"applicant,omitempty"`
	Referrals        []ReferralInput   `json:"referrals,omitempty"`
	Documents        []string          `json:"documents,omitempty"`
	EntryFeePaid     *bool             `json:"entry_fee_paid,omitempty"`
	PaymentReference *string           `json:"payment_reference,omitempty"`
}

func (UpdateDraftAction) Trigger() domainwf.Trigger { return domainwf.TriggerUpdateDraft }
func (UpdateDraftAction) eventType() event.Type     { return event.TypeDraftUpdated }

func (a UpdateDraftAction) Validate(time.Time) error {
	if a.Applicant != nil {
		if err := ValidateApplicant(*a.Applicant); err != nil {
			return err
		}
	}
	if len(a.Referrals) > 2 {
		return domainwf.NewValidationError(domainwf.CodeInvalidReferralNumber, "referrals",
			fmt.Sprintf("at most 2 referrals allowed, got %d", len(a.Referrals)))
	}
	for i, doc := range a.Documents {
		if strings.TrimSpace(doc) == "" {
			return domainwf.NewValidationError(domainwf.CodeMissingRequiredField,
				fmt.Sprintf("documents.%d", i+1), "document reference is empty")
		}
	}
	return nil
}

func (a UpdateDraftAction) apply(app *entity.MemberApplication, _ *transitionInput) {
	if a.Applicant != nil {
		app.Applicant = entity.Applicant{
			FullName: strings.TrimSpace(a.Applicant.FullName),
			ICNumber: strings.TrimSpace(a.Applicant.ICNumber),
			Email:    strings.TrimSpace(a.Applicant.Email),
			Phone:    strings.TrimSpace(a.Applicant.Phone),
			Address:  strings.TrimSpace(a.Applicant.Address),
		}
	}
	for i, r := range a.Referrals {
		app.Referrals[i] = entity.Referral{
			Name:     strings.TrimSpace(r.Name),
			MemberID: strings.TrimSpace(r.MemberID),
		}
	}
	if a.Documents != nil {
		app.Documents = append([]string{}, a.Documents...)
	}
	if a.EntryFeePaid != nil {
		app.EntryFee.Paid = *a.EntryFeePaid
	}
	if a.PaymentReference != nil {
		app.EntryFee.PaymentReference = strings.TrimSpace(*a.PaymentReference)
	}
}

// ValidateApplicant checks the format of the optional applicant fields that are set
func ValidateApplicant(a entity.Applicant) error {
	if ic := strings.TrimSpace(a.ICNumber); ic != "" {
		if err := utils.ValidateICNumber(ic); err != nil {
			return domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "applicant.ic_number", err.Error())
		}
	}
	if email := strings.TrimSpace(a.Email); email != "" {
		if err := utils.ValidateEmail(email); err != nil {
			return domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "applicant.email", err.Error())
		}
	}
	if phone := strings.TrimSpace(a.Phone); phone != "" {
		if err := utils.ValidatePhone(phone); err != nil {
			return domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "applicant.phone", err.Error())
		}
	}
	return nil
}

// SubmitAction hands a complete draft to the office
type SubmitAction struct{}

func (SubmitAction) Trigger() domainwf.Trigger { return domainwf.TriggerSubmit }
func (SubmitAction) eventType() event.Type     { return event.TypeApplicationSubmitted }
func (SubmitAction) Validate(time.Time) error  { return nil }

func (SubmitAction) apply(app *entity.MemberApplication, in *transitionInput) {
	submitted := in.now
	app.SubmittedAt = &submitted
}

// StartVerificationAction opens referral verification on a submitted application
type StartVerificationAction struct{}

func (StartVerificationAction) Trigger() domainwf.Trigger { return domainwf.TriggerStartVerification }
func (StartVerificationAction) eventType() event.Type     { return event.TypeVerificationStarted }
func (StartVerificationAction) Validate(time.Time) error  { return nil }

func (StartVerificationAction) apply(*entity.MemberApplication, *transitionInput) {}

// VerifyReferralAction confirms one referral against the member directory
type VerifyReferralAction struct {
	ReferralNumber int    `json:"referral_number"`
	Notes          string `json:"notes,omitempty"`
}

func (VerifyReferralAction) Trigger() domainwf.Trigger { return domainwf.TriggerVerifyReferral }
func (VerifyReferralAction) eventType() event.Type     { return event.TypeReferralVerified }

func (a VerifyReferralAction) Validate(time.Time) error {
	if a.ReferralNumber != 1 && a.ReferralNumber != 2 {
		return domainwf.NewValidationError(domainwf.CodeInvalidReferralNumber, "referral_number",
			fmt.Sprintf("referral number must be 1 or 2, got %d", a.ReferralNumber))
	}
	return nil
}

func (a VerifyReferralAction) apply(app *entity.MemberApplication, in *transitionInput) {
	ref := app.Referral(a.ReferralNumber)
	verified := in.now
	ref.Verified = true
	ref.VerifiedAt = &verified
	ref.VerifiedBy = in.actor
	ref.VerificationNotes = strings.TrimSpace(a.Notes)
	if in.lookup != nil {
		ref.VerifiedMemberName = in.lookup.Name
	}
}

// RequestApprovalAction forwards a verified application to the committee
type RequestApprovalAction struct{}

func (RequestApprovalAction) Trigger() domainwf.Trigger { return domainwf.TriggerRequestApproval }
func (RequestApprovalAction) eventType() event.Type     { return event.TypeApprovalRequested }
func (RequestApprovalAction) Validate(time.Time) error  { return nil }

func (RequestApprovalAction) apply(*entity.MemberApplication, *transitionInput) {}

// ScheduleInterviewAction books or reschedules the committee interview
type ScheduleInterviewAction struct {
	DateTime time.Time `json:"date_time"`
	Location string    `json:"location,omitempty"`
}

func (ScheduleInterviewAction) Trigger() domainwf.Trigger { return domainwf.TriggerScheduleInterview }
func (ScheduleInterviewAction) eventType() event.Type     { return event.TypeInterviewScheduled }

func (a ScheduleInterviewAction) Validate(now time.Time) error {
	if a.DateTime.IsZero() {
		return domainwf.NewValidationError(domainwf.CodeMissingRequiredField, "date_time", "interview date is required")
	}
	if !a.DateTime.After(now) {
		return domainwf.NewValidationError(domainwf.CodeInterviewDateInPast, "date_time",
			fmt.Sprintf("interview date %s is not in the future", a.DateTime.Format(time.RFC3339)))
	}
	return nil
}

func (a ScheduleInterviewAction) apply(app *entity.MemberApplication, _ *transitionInput) {
	when := a.DateTime
	app.Interview.Scheduled = true
	app.Interview.DateTime = &when
	app.Interview.Location = strings.TrimSpace(a.Location)
}

// CompleteInterviewAction records that the interview took place
type CompleteInterviewAction struct {
	Notes string `json:"notes"`
}

func (CompleteInterviewAction) Trigger() domainwf.Trigger { return domainwf.TriggerCompleteInterview }
func (CompleteInterviewAction) eventType() event.Type     { return event.TypeInterviewCompleted }

func (a CompleteInterviewAction) Validate(time.Time) error {
	if strings.TrimSpace(a.Notes) == "" {
		return domainwf.NewValidationError(domainwf.CodeMissingInterviewNotes, "notes", "interview notes are required")
	}
	return nil
}

func (a CompleteInterviewAction) apply(app *entity.MemberApplication, in *transitionInput) {
	completed := in.now
	app.Interview.CompletedAt = &completed
	app.Interview.Notes = strings.TrimSpace(a.Notes)
}

// ApproveAction records the committee's approval. The permanent member ID is
// allocated by the engine inside the approval transaction.
type ApproveAction struct {
	Committee string `json:"committee"`
	Remarks   string `json:"remarks,omitempty"`
}

func (ApproveAction) Trigger() domainwf.Trigger { return domainwf.TriggerApprove }
func (ApproveAction) eventType() event.Type     { return event.TypeApplicationApproved }

func (a ApproveAction) Validate(time.Time) error {
	if strings.TrimSpace(a.Committee) == "" {
		return domainwf.NewValidationError(domainwf.CodeMissingApprovalCommittee, "committee", "approving committee is required")
	}
	return nil
}

func (a ApproveAction) apply(app *entity.MemberApplication, in *transitionInput) {
	approved := in.now
	app.Approval.ApprovedByCommittee = strings.TrimSpace(a.Committee)
	app.Approval.Remarks = strings.TrimSpace(a.Remarks)
	app.Approval.ApprovedAt = &approved
}

// RejectAction closes the application. When RefundEligible is set the refund
// amount defaults to the entry fee and the method to bank transfer.
type RejectAction struct {
	Reason            string `json:"reason"`
	Remarks           string `json:"remarks"`
	RefundEligible    bool   `json:"refund_eligible"`
	RefundAmountCents *int64 `json:"refund_amount_cents,omitempty"`
	RefundMethod      string `json:"refund_method,omitempty"`
}

func (RejectAction) Trigger() domainwf.Trigger { return domainwf.TriggerReject }
func (RejectAction) eventType() event.Type     { return event.TypeApplicationRejected }

func (a RejectAction) Validate(time.Time) error {
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		return domainwf.NewValidationError(domainwf.CodeMissingRejectionReason, "reason", "rejection reason is required")
	}
	if !entity.IsValidRejectionReason(reason) {
		return domainwf.NewValidationError(domainwf.CodeInvalidRejectionReason, "reason",
			fmt.Sprintf("unknown rejection reason %q", reason))
	}
	if strings.TrimSpace(a.Remarks) == "" {
		return domainwf.NewValidationError(domainwf.CodeMissingRejectionRemarks, "remarks", "rejection remarks are required")
	}
	if !a.RefundEligible {
		return nil
	}
	if a.RefundAmountCents != nil && *a.RefundAmountCents <= 0 {
		return domainwf.NewValidationError(domainwf.CodeInvalidAmount, "refund_amount",
			fmt.Sprintf("refund amount must be positive, got %s", entity.FormatCents(*a.RefundAmountCents)))
	}
	if a.RefundMethod != "" && !entity.IsValidRefundMethod(a.RefundMethod) {
		return domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "refund_method",
			fmt.Sprintf("unknown refund method %q", a.RefundMethod))
	}
	return nil
}

// refundAmount resolves the refund amount against the application's entry fee
func (a RejectAction) refundAmount(app *entity.MemberApplication) int64 {
	if a.RefundAmountCents != nil {
		return *a.RefundAmountCents
	}
	if app.EntryFee.AmountCents > 0 {
		return app.EntryFee.AmountCents
	}
	return entity.DefaultEntryFeeCents
}

func (a RejectAction) apply(app *entity.MemberApplication, in *transitionInput) {
	rejected := in.now
	app.Rejection = entity.Rejection{
		Reason:     strings.TrimSpace(a.Reason),
		Remarks:    strings.TrimSpace(a.Remarks),
		RejectedAt: &rejected,
	}
	if !a.RefundEligible {
		app.Refund = entity.Refund{}
		return
	}

	method := a.RefundMethod
	if method == "" {
		method = entity.RefundMethodBankTransfer
	}
	app.Refund = entity.Refund{
		Eligible:    true,
		AmountCents: a.refundAmount(app),
		Method:      method,
	}
}

// ProcessRefundAction books the refund of a rejected applicant's entry fee
type ProcessRefundAction struct {
	Reference  string    `json:"reference"`
	RefundedOn time.Time `json:"refunded_on"`
	Method     string    `json:"method,omitempty"`
}

func (ProcessRefundAction) Trigger() domainwf.Trigger { return domainwf.TriggerProcessRefund }
func (ProcessRefundAction) eventType() event.Type     { return event.TypeRefundProcessed }

func (a ProcessRefundAction) Validate(time.Time) error {
	if strings.TrimSpace(a.Reference) == "" {
		return domainwf.NewValidationError(domainwf.CodeMissingRefundReference, "reference", "refund reference is required")
	}
	if a.RefundedOn.IsZero() {
		return domainwf.NewValidationError(domainwf.CodeMissingRefundDate, "refunded_on", "refund date is required")
	}
	if a.Method != "" && !entity.IsValidRefundMethod(a.Method) {
		return domainwf.NewValidationError(domainwf.CodeInvalidFieldValue, "method",
			fmt.Sprintf("unknown refund method %q", a.Method))
	}
	return nil
}

func (a ProcessRefundAction) apply(app *entity.MemberApplication, in *transitionInput) {
	processed := in.now
	refundedOn := a.RefundedOn
	app.Refund.Processed = true
	app.Refund.ProcessedAt = &processed
	app.Refund.RefundedOn = &refundedOn
	app.Refund.Reference = strings.TrimSpace(a.Reference)
	if a.Method != "" {
		app.Refund.Method = a.Method
	}
}
