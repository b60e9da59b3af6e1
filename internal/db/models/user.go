// Package models - user.go defines the User model for registry accounts and
// the APIKey model used to authenticate gem pushes.
package models

import "time"

// User represents a registry account
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// APIKey represents a push credential. The full key is shown once at creation;
// only the bcrypt hash and a display prefix are stored.
type APIKey struct {
	ID         string
	UserID     string
	KeyPrefix  string
	KeyHash    string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
