package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// Kind classifies a workflow error so callers can decide how to recover
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindGuard      Kind = "GUARD_VIOLATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONCURRENCY_CONFLICT"
	KindDependency Kind = "DEPENDENCY_FAILURE"
)

// Code is a machine-readable reason attached to every workflow error
type Code string

const (
	// Guard violations
	CodeInvalidTransition         Code = "INVALID_TRANSITION_FROM_STATE"
	CodeReferralsNotVerified      Code = "REFERRALS_NOT_VERIFIED"
	CodeMissingApprovalCommittee  Code = "MISSING_APPROVAL_COMMITTEE"
	CodeInterviewNotScheduled     Code = "INTERVIEW_NOT_SCHEDULED"
	CodeInterviewNotCompleted     Code = "INTERVIEW_NOT_COMPLETED"
	CodeInterviewAlreadyCompleted Code = "INTERVIEW_ALREADY_COMPLETED"
	CodeAlreadyVerified           Code = "ALREADY_VERIFIED"
	CodeReferralInvalid           Code = "REFERRAL_INVALID"
	CodeRefundNotEligible         Code = "REFUND_NOT_ELIGIBLE"
	CodeAlreadyProcessed          Code = "ALREADY_PROCESSED"
	CodeIncompleteSubmission      Code = "INCOMPLETE_SUBMISSION"

	// Validation failures
	CodeMissingRequiredField    Code = "MISSING_REQUIRED_FIELD"
	CodeInvalidReferralNumber   Code = "INVALID_REFERRAL_NUMBER"
	CodeInvalidAmount           Code = "INVALID_AMOUNT"
	CodeInterviewDateInPast     Code = "INTERVIEW_DATE_IN_PAST"
	CodeMissingInterviewNotes   Code = "MISSING_INTERVIEW_NOTES"
	CodeMissingRejectionReason  Code = "MISSING_REJECTION_REASON"
	CodeMissingRejectionRemarks Code = "MISSING_REJECTION_REMARKS"
	CodeInvalidRejectionReason  Code = "INVALID_REJECTION_REASON"
	CodeMissingRefundReference  Code = "MISSING_REFUND_REFERENCE"
	CodeMissingRefundDate       Code = "MISSING_REFUND_DATE"
	CodeRefundWithoutPayment    Code = "REFUND_WITHOUT_PAYMENT"
	CodeInvalidFieldValue       Code = "INVALID_FIELD_VALUE"

	// Infrastructure
	CodeNotFound              Code = "APPLICATION_NOT_FOUND"
	CodeVersionConflict       Code = "VERSION_CONFLICT"
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
)

// Error is the structured failure returned by the workflow engine
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets guard errors match the machine sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidTransition:
		return e.Code == CodeInvalidTransition
	case ErrGuardFailed:
		return e.Kind == KindGuard && e.Code != CodeInvalidTransition
	}
	return false
}

// NewValidationError creates a validation error for a single input field
func NewValidationError(code Code, field, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// NewGuardError creates a guard violation
func NewGuardError(code Code, message string) *Error {
	return &Error{Kind: KindGuard, Code: code, Message: message}
}

// NewNotFoundError creates a not-found error for an application id
func NewNotFoundError(id int64) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("application %d not found", id)}
}

// NewConflictError creates a concurrency conflict error
func NewConflictError(id int64, err error) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeVersionConflict,
		Message: fmt.Sprintf("application %d was modified concurrently", id),
		Err:     err,
	}
}

// NewDependencyError wraps a failure of the store or member directory
func NewDependencyError(dependency string, err error) *Error {
	return &Error{
		Kind:    KindDependency,
		Code:    CodeDependencyUnavailable,
		Message: fmt.Sprintf("%s unavailable", dependency),
		Err:     err,
	}
}

// AsError extracts a *Error from an error chain
func AsError(err error) (*Error, bool) {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr, true
	}
	return nil, false
}

// CodeOf returns the code of a workflow error, or "" for other errors
func CodeOf(err error) Code {
	if wfErr, ok := AsError(err); ok {
		return wfErr.Code
	}
	return ""
}
