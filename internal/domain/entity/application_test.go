package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeDraft() *MemberApplication {
	app := NewDraftApplication("PENDING_SUBMISSION", Applicant{FullName: "Tan Ah Kow", ICNumber: "800101-14-5555"}, time.Now())
	app.Referrals = [2]Referral{
		{Name: "Alice", MemberID: "ID1"},
		{Name: "Bob", MemberID: "ID2"},
	}
	app.Documents = []string{"uploads/ic-front.jpg"}
	app.EntryFee.Paid = true
	return app
}

func TestNewDraftApplication_DefaultEntryFee(t *testing.T) {
	app := NewDraftApplication("PENDING_SUBMISSION", Applicant{FullName: "Lim"}, time.Now())

	assert.Equal(t, DefaultEntryFeeCents, app.EntryFee.AmountCents)
	assert.False(t, app.EntryFee.Paid)
	assert.NotNil(t, app.Documents)
	assert.Empty(t, app.Approval.PermanentMemberID)
}

func TestMemberApplication_MissingSubmissionFields(t *testing.T) {
	t.Run("complete draft has no missing fields", func(t *testing.T) {
		assert.Empty(t, completeDraft().MissingSubmissionFields())
	})

	t.Run("reports every missing field", func(t *testing.T) {
		app := NewDraftApplication("PENDING_SUBMISSION", Applicant{}, time.Now())
		app.Referrals[1] = Referral{Name: "Bob"}

		missing := app.MissingSubmissionFields()

		assert.ElementsMatch(t, []string{
			"applicant.full_name",
			"applicant.ic_number",
			"referrals.1.name",
			"referrals.1.member_id",
			"referrals.2.member_id",
			"documents",
			"entry_fee.paid",
		}, missing)
	})
}

func TestMemberApplication_Referral(t *testing.T) {
	app := completeDraft()

	require.NotNil(t, app.Referral(1))
	assert.Equal(t, "Alice", app.Referral(1).Name)
	assert.Equal(t, "Bob", app.Referral(2).Name)
	assert.Nil(t, app.Referral(0))
	assert.Nil(t, app.Referral(3))

	app.Referral(2).Verified = true
	assert.Equal(t, 1, app.VerifiedReferralCount())
	assert.False(t, app.ReferralsVerified())

	app.Referral(1).Verified = true
	assert.True(t, app.ReferralsVerified())
}

func TestMemberApplication_CloneIsDeep(t *testing.T) {
	app := completeDraft()
	when := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	app.Interview.DateTime = &when
	app.Referrals[0].VerifiedAt = &when

	clone := app.Clone()
	clone.Documents[0] = "changed"
	*clone.Interview.DateTime = when.Add(time.Hour)
	clone.Referrals[0].Verified = true
	*clone.Referrals[0].VerifiedAt = when.Add(time.Hour)

	assert.Equal(t, "uploads/ic-front.jpg", app.Documents[0])
	assert.Equal(t, when, *app.Interview.DateTime)
	assert.False(t, app.Referrals[0].Verified)
	assert.Equal(t, when, *app.Referrals[0].VerifiedAt)

	var nilApp *MemberApplication
	assert.Nil(t, nilApp.Clone())
}

func TestFormatAndParseCents(t *testing.T) {
	assert.Equal(t, "51.00", FormatCents(DefaultEntryFeeCents))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-1.50", FormatCents(-150))

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"51.00", 5100, false},
		{"51", 5100, false},
		{"51.5", 5150, false},
		{".75", 75, false},
		{"-2.10", -210, false},
		{"51.001", 0, true},
		{"51.", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRejectionReasonsAndRefundMethods(t *testing.T) {
	assert.True(t, IsValidRejectionReason("Incomplete Documents"))
	assert.False(t, IsValidRejectionReason("Because"))
	assert.True(t, IsValidRefundMethod(RefundMethodCash))
	assert.False(t, IsValidRefundMethod("CRYPTO"))
}

func TestFormatPermanentMemberID(t *testing.T) {
	assert.Equal(t, "TM202600001", FormatPermanentMemberID("TM", 2026, 1))
	assert.Equal(t, "TM202712345", FormatPermanentMemberID("TM", 2027, 12345))
}

func TestMember_IsActive(t *testing.T) {
	var nilMember *Member
	assert.False(t, nilMember.IsActive())
	assert.True(t, (&Member{Status: MemberStatusActive}).IsActive())
	assert.False(t, (&Member{Status: MemberStatusSuspended}).IsActive())
}
