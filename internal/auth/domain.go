package auth

import "time"

// Credential is the stored record linking an identity to its password hash and role.
type Credential struct {
	UserID       int64
	Username     string
	Email        string
	PasswordHash string
	RoleID       int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the public projection of the credential.
func (c *Credential) Identity() Identity {
	return Identity{
		UserID:    c.UserID,
		Username:  c.Username,
		Email:     c.Email,
		RoleID:    c.RoleID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Identity is the client-visible view of a user. It never carries the hash.
type Identity struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleID    int64     `json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCredential is the input for creating a credential record.
type NewCredential struct {
	Username     string
	Email        string
	PasswordHash string
	RoleID       int64
}

// Session is the result of a successful login or registration.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
}
