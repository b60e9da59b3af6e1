// Package models - rubygem.go defines the Rubygem model representing a named
// package in the registry, along with its lookup slug and joined summary fields.
package models

import "time"

// Rubygem represents a published package in the registry
type Rubygem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RubygemSummary is returned by the listing query and carries the latest
// version number alongside the gem row, fetched in a single query to avoid
// N+1 lookups.
type RubygemSummary struct {
	Rubygem
	CurrentVersion *string `json:"current_version,omitempty"`
	VersionCount   int     `json:"version_count"`
}
