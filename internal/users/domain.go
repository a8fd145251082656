package users

import "time"

// User is the public view of an account. The password hash never leaves the
// repository except through PasswordHash.
type User struct {
	ID        int64     `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleID    int64     `json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileUpdate holds the normalised fields written by an update.
type ProfileUpdate struct {
	Username string
	Email    string
	RoleID   int64
}
