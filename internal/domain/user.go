package domain

import "time"

// User is the application profile stored next to the credentials.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is the stored login secret for a user.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash []byte
}
