package entity

// Rejection reasons accepted by the committee
const (
	RejectionReasonIncompleteDocuments     = "Incomplete Documents"
	RejectionReasonReferralNotVerified     = "Referral Not Verified"
	RejectionReasonInterviewUnsatisfactory = "Interview Unsatisfactory"
	RejectionReasonCommitteeDecision       = "Committee Decision"
	RejectionReasonWithdrawn               = "Withdrawn by Applicant"
	RejectionReasonOther                   = "Other"
)

var rejectionReasons = map[string]bool{
	RejectionReasonIncompleteDocuments:     true,
	RejectionReasonReferralNotVerified:     true,
	RejectionReasonInterviewUnsatisfactory: true,
	RejectionReasonCommitteeDecision:       true,
	RejectionReasonWithdrawn:               true,
	RejectionReasonOther:                   true,
}

// IsValidRejectionReason reports whether reason is one of the known rejection reasons
func IsValidRejectionReason(reason string) bool {
	return rejectionReasons[reason]
}

// Refund method constants
const (
	RefundMethodBankTransfer = "BANK_TRANSFER"
	RefundMethodCash         = "CASH"
	RefundMethodCheque       = "CHEQUE"
)

// IsValidRefundMethod reports whether method is a supported refund method
func IsValidRefundMethod(method string) bool {
	switch method {
	case RefundMethodBankTransfer, RefundMethodCash, RefundMethodCheque:
		return true
	default:
		return false
	}
}

// Member status constants
const (
	MemberStatusActive    = "ACTIVE"
	MemberStatusInactive  = "INACTIVE"
	MemberStatusSuspended = "SUSPENDED"
)

// Actor used when no administrator is identified
const SystemActor = "system"
