// Package models - version.go defines the Version and Dependency models for
// published gem revisions and their dependency edges.
package models

import (
	"fmt"
	"time"
)

// Dependency kinds. Development dependencies are stored but excluded from the
// runtime dependency projection.
const (
	DependencyRuntime     = "runtime"
	DependencyDevelopment = "development"
)

// Version represents one published revision of a gem
type Version struct {
	ID          string    `json:"id"`
	RubygemID   string    `json:"rubygem_id"`
	Number      string    `json:"number"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// Joined fields (not stored in versions table)
	RubygemName *string `json:"rubygem_name,omitempty"`
}

// Title returns the display title used in the feed projection, e.g. "rake (0.8.7)"
func (v *Version) Title() string {
	name := ""
	if v.RubygemName != nil {
		name = *v.RubygemName
	}
	return fmt.Sprintf("%s (%s)", name, v.Number)
}

// Dependency represents a reference from a version to another gem by name
type Dependency struct {
	ID           string `json:"id"`
	VersionID    string `json:"version_id"`
	GemName      string `json:"gem_name"`
	Requirements string `json:"requirements"`
	Kind         string `json:"kind"`
}
