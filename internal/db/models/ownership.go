// Package models - ownership.go defines the Ownership model linking a user to
// a gem they may publish, and the Linkset model holding a gem's auxiliary URLs.
package models

import "time"

// Ownership represents an approved (or pending) publishing right over a gem
type Ownership struct {
	ID        string    `json:"id"`
	RubygemID string    `json:"rubygem_id"`
	UserID    string    `json:"user_id"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	// Joined fields (not stored in ownerships table)
	UserEmail *string `json:"user_email,omitempty"`
}

// Linkset holds the auxiliary URLs shown on a gem's detail page. Each field is
// either empty or an absolute URL; validation happens before persistence.
type Linkset struct {
	RubygemID string `json:"rubygem_id" db:"rubygem_id"`
	Code      string `json:"code" db:"code"`
	Docs      string `json:"docs" db:"docs"`
	Wiki      string `json:"wiki" db:"wiki"`
	Mail      string `json:"mail" db:"mail"`
	Bugs      string `json:"bugs" db:"bugs"`
}

// Subscription is the join record behind the per-viewer "subscribed" flag
type Subscription struct {
	ID        string    `json:"id" db:"id"`
	RubygemID string    `json:"rubygem_id" db:"rubygem_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
