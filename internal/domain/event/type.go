package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationCreated   Type = "application.created"
	TypeDraftUpdated         Type = "application.draft_updated"
	TypeApplicationSubmitted Type = "application.submitted"
	TypeVerificationStarted  Type = "application.verification_started"
	TypeReferralVerified     Type = "referral.verified"
	TypeApprovalRequested    Type = "application.forwarded"
	TypeInterviewScheduled   Type = "interview.scheduled"
	TypeInterviewCompleted   Type = "interview.completed"
	TypeApplicationApproved  Type = "application.approved"
	TypeApplicationRejected  Type = "application.rejected"
	TypeRefundProcessed      Type = "refund.processed"
	TypeStatusChanged        Type = "application.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationCreated,
		TypeDraftUpdated,
		TypeApplicationSubmitted,
		TypeVerificationStarted,
		TypeReferralVerified,
		TypeApprovalRequested,
		TypeInterviewScheduled,
		TypeInterviewCompleted,
		TypeApplicationApproved,
		TypeApplicationRejected,
		TypeRefundProcessed,
		TypeStatusChanged:
		return true
	default:
		return false
	}
}
