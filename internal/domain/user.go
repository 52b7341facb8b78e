// internal/domain/user.go
package domain

import "time"

// UserRole is the identity role supplied by the identity service.
type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleAgent    UserRole = "AGENT"
	RoleMerchant UserRole = "MERCHANT"
	RoleSystem   UserRole = "SYSTEM"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleMerchant, RoleSystem:
		return true
	}
	return false
}

// User represents an actor in the wallet system.
type User struct {
	ID                int64     `db:"id" json:"id"`                                 // Primary key, BIGSERIAL in DB
	Username          string    `db:"username" json:"username"`                     // Unique username
	Role              UserRole  `db:"role" json:"role"`                             // CUSTOMER, AGENT, MERCHANT, SYSTEM
	VerificationLevel int       `db:"verification_level" json:"verification_level"` // KYC tier, 0-3
	Timezone          string    `db:"timezone" json:"timezone"`                     // IANA zone used for limit windows
	PhoneNumber       *string   `db:"phone_number" json:"phone_number,omitempty"`   // MESSAGE channel target
	Email             *string   `db:"email" json:"email,omitempty"`                 // EMAIL channel target
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"` // Timestamp of creation
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"` // Timestamp of last update
}

// NewUser creates a new active customer at tier 0.
func NewUser(username string) *User {
	now := time.Now().UTC()
	return &User{
		Username:  username,
		Role:      RoleCustomer,
		Timezone:  "UTC",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	return LoadLocation(u.Timezone)
}

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
