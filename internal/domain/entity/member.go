package entity

import (
	"fmt"
	"time"
)

// Member is a registered temple member who may act as a referral
type Member struct {
	ID        int64     `json:"id"`
	MemberID  string    `json:"member_id"`
	FullName  string    `json:"full_name"`
	ICNumber  string    `json:"ic_number"`
	Status    string    `json:"status"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the member is in good standing
func (m *Member) IsActive() bool {
	return m != nil && m.Status == MemberStatusActive
}

// MemberLookup is the result of asking the member directory about a referral
type MemberLookup struct {
	Valid    bool   `json:"valid"`
	Name     string `json:"name"`
	MemberID string `json:"member_id,omitempty"`
}

// FormatPermanentMemberID renders a member ID such as TM202600001
func FormatPermanentMemberID(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s%04d%05d", prefix, year, sequence)
}
