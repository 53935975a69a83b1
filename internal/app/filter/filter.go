// Package filter provides the filter chain for session validation.
package filter

import (
	"context"

	"github.com/osa030/hifzbox/internal/domain/session"
)

// Origin tells where a session entering the studio came from.
type Origin int

const (
	OriginLoad   Origin = iota // Loaded from the local store
	OriginImport               // Imported from exported JSON
	OriginShare                // Opened from a share URL
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginLoad:
		return "load"
	case OriginImport:
		return "import"
	case OriginShare:
		return "share"
	default:
		return "unknown"
	}
}

// External reports whether the session was produced outside this studio.
func (o Origin) External() bool {
	return o == OriginImport || o == OriginShare
}

// Request represents a session to be validated.
type Request struct {
	Origin  Origin
	Session *session.Data
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "chapter_out_of_bounds", "unknown_reciter"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for session filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied to sessions of the given origin.
	AppliesTo(origin Origin) bool
	// Check performs the filter check.
	Check(ctx context.Context, req Request) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
