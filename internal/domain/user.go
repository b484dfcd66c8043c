package domain

import "time"

// UserRole distinguishes paying accounts from delegated sub-accounts.
type UserRole string

const (
	UserRoleOwner  UserRole = "owner"
	UserRoleMember UserRole = "member"
)

// UserStatus represents whether an account may place orders.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusFrozen UserStatus = "frozen"
)

// ValidUserStatus reports whether s is a recognized member status.
func ValidUserStatus(s UserStatus) bool {
	return s == UserStatusActive || s == UserStatusFrozen
}

// User is an owner or member account.
type User struct {
	ID          string     `json:"id"`
	Role        UserRole   `json:"role"`
	OwnerID     string     `json:"ownerId,omitempty"` // members only
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber"`
	Email       string     `json:"email,omitempty"`
	Status      UserStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsOwner reports whether u is an owner account.
func (u *User) IsOwner() bool {
	return u.Role == UserRoleOwner
}

// RoleConsistent checks that owners carry no OwnerID and members always do.
func (u *User) RoleConsistent() bool {
	switch u.Role {
	case UserRoleOwner:
		return u.OwnerID == ""
	case UserRoleMember:
		return u.OwnerID != ""
	default:
		return false
	}
}

// UserRelationship records that a member belongs to an owner.
type UserRelationship struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	MemberID  string    `json:"memberId"`
	CreatedAt time.Time `json:"createdAt"`
}
