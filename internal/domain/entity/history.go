package entity

import "time"

// ApplicationHistory is the audit trail of one applied workflow action
type ApplicationHistory struct {
	ID             int64     `json:"id"`
	ApplicationID  int64     `json:"application_id"`
	ActorID        string    `json:"actor_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActionType     string    `json:"action_type"`
	ActionData     string    `json:"action_data"`
	Timestamp      time.Time `json:"timestamp"`
}
