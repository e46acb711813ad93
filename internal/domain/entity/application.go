package entity

import (
	"strings"
	"time"
)

// MemberApplication is a prospective member's request for membership
type MemberApplication struct {
	ID          int64       `json:"id"`
	Status      string      `json:"status"`
	Version     int64       `json:"version"`
	Applicant   Applicant   `json:"applicant"`
	Documents   []string    `json:"documents"`
	Referrals   [2]Referral `json:"referrals"`
	Interview   Interview   `json:"interview"`
	EntryFee    EntryFee    `json:"entry_fee"`
	Approval    Approval    `json:"approval"`
	Rejection   Rejection   `json:"rejection"`
	Refund      Refund      `json:"refund"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Applicant holds the applicant's personal details
type Applicant struct {
	FullName string `json:"full_name"`
	ICNumber string `json:"ic_number"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Referral is an existing member vouching for the applicant
type Referral struct {
	Name               string     `json:"name"`
	MemberID           string     `json:"member_id"`
	Verified           bool       `json:"verified"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	VerifiedBy         string     `json:"verified_by,omitempty"`
	VerificationNotes  string     `json:"verification_notes,omitempty"`
	VerifiedMemberName string     `json:"verified_member_name,omitempty"`
}

// Interview records the committee interview
type Interview struct {
	Scheduled   bool       `json:"scheduled"`
	DateTime    *time.Time `json:"date_time,omitempty"`
	Location    string     `json:"location,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsCompleted reports whether the interview took place
func (i Interview) IsCompleted() bool {
	return i.CompletedAt != nil
}

// EntryFee is the fee paid on application
type EntryFee struct {
	AmountCents      int64  `json:"amount_cents"`
	Paid             bool   `json:"paid"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

// Approval is the committee's approval record
type Approval struct {
	ApprovedByCommittee string     `json:"approved_by_committee,omitempty"`
	Remarks             string     `json:"remarks,omitempty"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	PermanentMemberID   string     `json:"permanent_member_id,omitempty"`
}

// Rejection is the committee's rejection record
type Rejection struct {
	Reason     string     `json:"reason,omitempty"`
	Remarks    string     `json:"remarks,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
}

// Refund tracks entry fee refund bookkeeping for rejected applications
type Refund struct {
	Eligible    bool       `json:"eligible"`
	AmountCents int64      `json:"amount_cents"`
	Method      string     `json:"method,omitempty"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	RefundedOn  *time.Time `json:"refunded_on,omitempty"`
	Reference   string     `json:"reference,omitempty"`
}

// NewDraftApplication creates an application in its initial draft status
func NewDraftApplication(status string, applicant Applicant, now time.Time) *MemberApplication {
	return &MemberApplication{
		Status:    status,
		Applicant: applicant,
		Documents: []string{},
		EntryFee:  EntryFee{AmountCents: DefaultEntryFeeCents},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Referral returns the referral with a 1-based number, or nil when out of range
func (a *MemberApplication) Referral(number int) *Referral {
	if number < 1 || number > len(a.Referrals) {
		return nil
	}
	return &a.Referrals[number-1]
}

// VerifiedReferralCount returns how many referrals have been verified
func (a *MemberApplication) VerifiedReferralCount() int {
	count := 0
	for _, r := range a.Referrals {
		if r.Verified {
			count++
		}
	}
	return count
}

// ReferralsVerified reports whether both referrals are verified
func (a *MemberApplication) ReferralsVerified() bool {
	return a.VerifiedReferralCount() == len(a.Referrals)
}

// MissingSubmissionFields lists required fields that are still empty
func (a *MemberApplication) MissingSubmissionFields() []string {
	var missing []string
	if strings.TrimSpace(a.Applicant.FullName) == "" {
		missing = append(missing, "applicant.full_name")
	}
	if strings.TrimSpace(a.Applicant.ICNumber) == "" {
		missing = append(missing, "applicant.ic_number")
	}
	for i, r := range a.Referrals {
		if strings.TrimSpace(r.Name) == "" {
			missing = append(missing, referralField(i, "name"))
		}
		if strings.TrimSpace(r.MemberID) == "" {
			missing = append(missing, referralField(i, "member_id"))
		}
	}
	if len(a.Documents) == 0 {
		missing = append(missing, "documents")
	}
	if !a.EntryFee.Paid {
		missing = append(missing, "entry_fee.paid")
	}
	return missing
}

func referralField(index int, name string) string {
	return "referrals." + string(rune('1'+index)) + "." + name
}

// Clone returns a deep copy so a failed action never touches the loaded snapshot
func (a *MemberApplication) Clone() *MemberApplication {
	if a == nil {
		return nil
	}

	c := *a
	c.Documents = append([]string(nil), a.Documents...)
	c.SubmittedAt = cloneTime(a.SubmittedAt)
	for i := range c.Referrals {
		c.Referrals[i].VerifiedAt = cloneTime(a.Referrals[i].VerifiedAt)
	}
	c.Interview.DateTime = cloneTime(a.Interview.DateTime)
	c.Interview.CompletedAt = cloneTime(a.Interview.CompletedAt)
	c.Approval.ApprovedAt = cloneTime(a.Approval.ApprovedAt)
	c.Rejection.RejectedAt = cloneTime(a.Rejection.RejectedAt)
	c.Refund.ProcessedAt = cloneTime(a.Refund.ProcessedAt)
	c.Refund.RefundedOn = cloneTime(a.Refund.RefundedOn)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
