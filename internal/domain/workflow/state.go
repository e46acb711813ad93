package workflow

// State represents a stage in the membership application lifecycle
type State string

const (
	StatePendingSubmission  State = "PENDING_SUBMISSION"
	StateSubmitted          State = "SUBMITTED"
	StateUnderVerification  State = "UNDER_VERIFICATION"
	StateInterviewScheduled State = "INTERVIEW_SCHEDULED"
	StatePendingApproval    State = "PENDING_APPROVAL"
	StateApproved           State = "APPROVED"
	StateRejected           State = "REJECTED"
)

var validStates = map[State]bool{
	StatePendingSubmission:  true,
	StateSubmitted:          true,
	StateUnderVerification:  true,
	StateInterviewScheduled: true,
	StatePendingApproval:    true,
	StateApproved:           true,
	StateRejected:           true,
}

// REJECTED still admits refund processing, but its status never changes again.
var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// AllStates returns every workflow state in lifecycle order
func AllStates() []State {
	return []State{
		StatePendingSubmission,
		StateSubmitted,
		StateUnderVerification,
		StateInterviewScheduled,
		StatePendingApproval,
		StateApproved,
		StateRejected,
	}
}

// IsTerminal returns true if the status can no longer change
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
