package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of authorization roles a user can hold.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Photo string `bson:"photo,omitempty" json:"photo,omitempty"`
	Role  Role   `bson:"role" json:"role"`

	// Credential fields are never serialized to clients.
	Password          string    `bson:"password" json:"-"`
	PasswordChangedAt time.Time `bson:"password_changed_at,omitempty" json:"-"`

	PasswordResetToken   string    `bson:"password_reset_token,omitempty" json:"-"`
	PasswordResetExpires time.Time `bson:"password_reset_expires,omitempty" json:"-"`

	// Active is a pointer so a missing field reads as active. Soft-deleted
	// users keep their documents but are excluded from every lookup.
	Active *bool `bson:"active,omitempty" json:"-"`
}

// IsActive treats a missing active flag as true.
func (u *User) IsActive() bool {
	return u.Active == nil || *u.Active
}

// ChangedPasswordAfter reports whether the user's credentials were rotated
// after the given token issuance time. Comparison is at second granularity,
// matching the resolution of JWT issued-at claims.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}
