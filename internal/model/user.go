package model

import "time"

// Roles assignable to an account.  Admin accounts are never created through
// self-service registration; they exist only via operator action.
const (
	RoleCustomer = "customer"
	RoleRider    = "rider"
	RoleAdmin    = "admin"
)

// Approval states.  Every self-registered account starts as pending and only
// administrative moderation may move it; approved and disapproved are not
// terminal, an admin can move an account between any of the three.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusDisapproved = "disapproved"
)

// SelfServiceRole reports whether a role may be chosen at registration or on
// the legacy phone path.
func SelfServiceRole(role string) bool {
	return role == RoleCustomer || role == RoleRider
}

// KnownRole reports whether a role belongs to the fixed role set.
func KnownRole(role string) bool {
	return role == RoleCustomer || role == RoleRider || role == RoleAdmin
}

// User represents an account record as stored in the `users` table.  The
// password hash carries `json:"-"` so no response path can ever serialize
// it, even if a raw record leaks into a payload.
//
// Fields:
//
//	ID                – opaque uuid handle, assigned at creation, immutable.
//	Email             – unique across all accounts.
//	PasswordHash      – bcrypt digest; never serialized.
//	Phone             – unique when set; empty means unset.
//	Role              – customer | rider | admin.
//	FirstName..Sex    – profile attributes.
//	SchoolID          – optional student identifier.
//	LicenseID         – driver licence; meaningful for riders, stored
//	                    normalized (trimmed, uppercase).
//	Status            – pending | approved | disapproved.
//	DisapprovalReason – free text recorded on disapproval.
//	Approved          – legacy boolean kept as its own column; mirrored on
//	                    moderation transitions but independently settable.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Phone             string    `json:"phone,omitempty"`
	Role              string    `json:"role"`
	FirstName         string    `json:"firstName"`
	MiddleName        string    `json:"middleName,omitempty"`
	LastName          string    `json:"lastName"`
	Sex               string    `json:"sex,omitempty"`
	SchoolID          string    `json:"schoolId,omitempty"`
	LicenseID         string    `json:"licenseId,omitempty"`
	Status            string    `json:"status"`
	DisapprovalReason string    `json:"disapprovalReason,omitempty"`
	Approved          bool      `json:"approved"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsApproved reports whether the approval gate would let this account
// through.  Admins bypass the gate entirely.
func (u User) IsApproved() bool {
	return u.Role == RoleAdmin || u.Status == StatusApproved
}
