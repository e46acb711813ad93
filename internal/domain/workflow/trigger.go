package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerUpdateDraft       Trigger = "UPDATE_DRAFT"
	TriggerSubmit            Trigger = "SUBMIT"
	TriggerStartVerification Trigger = "START_VERIFICATION"
	TriggerVerifyReferral    Trigger = "VERIFY_REFERRAL"
	TriggerRequestApproval   Trigger = "REQUEST_APPROVAL"
	TriggerScheduleInterview Trigger = "SCHEDULE_INTERVIEW"
	TriggerCompleteInterview Trigger = "COMPLETE_INTERVIEW"
	TriggerApprove           Trigger = "APPROVE"
	TriggerReject            Trigger = "REJECT"
	TriggerProcessRefund     Trigger = "PROCESS_REFUND"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
