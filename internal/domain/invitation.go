package domain

import "time"

// InvitationStatus represents the lifecycle status of an invitation.
type InvitationStatus string

const (
	InvitationStatusInvited  InvitationStatus = "invited"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// InvitationTTL is how long an invitation token stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation is a single-use bearer token that becomes a member account.
type Invitation struct {
	ID             string           `json:"id"`
	OwnerUserID    string           `json:"ownerUserId"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	PhoneNumber    string           `json:"phoneNumber"`
	Status         InvitationStatus `json:"status"`
	InviteToken    string           `json:"inviteToken"`
	ExpiresAt      time.Time        `json:"expiresAt"`
	AcceptedAt     *time.Time       `json:"acceptedAt,omitempty"`
	AcceptedUserID string           `json:"acceptedUserId,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ExpiredAt reports whether the invitation is past its expiry at now.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Redeemable reports whether the invitation can still be accepted at now.
func (i *Invitation) Redeemable(now time.Time) bool {
	return i.Status == InvitationStatusInvited && !i.ExpiredAt(now)
}
