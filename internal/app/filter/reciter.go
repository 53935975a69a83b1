package filter

import (
	"context"
	"slices"
)

// ReciterFilter checks that an externally produced session names a known reciter.
type ReciterFilter struct {
	reciters []string
}

// NewReciterFilter creates a new reciter filter accepting the given reciters.
func NewReciterFilter(reciters []string) *ReciterFilter {
	return &ReciterFilter{reciters: reciters}
}

func (f *ReciterFilter) Name() string {
	return "reciter_filter"
}

func (f *ReciterFilter) Description() string {
	return "Checks that imported or shared sessions use a configured reciter"
}

func (f *ReciterFilter) ReturnCodes() []string {
	return []string{"unknown_reciter"}
}

func (f *ReciterFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ReciterFilter) AppliesTo(origin Origin) bool {
	return origin.External()
}

func (f *ReciterFilter) Check(ctx context.Context, req Request) Result {
	// Sessions without a reciter fall back to the default one.
	if req.Session.Reciter == "" || len(f.reciters) == 0 {
		return Accept()
	}
	if !slices.Contains(f.reciters, req.Session.Reciter) {
		return Reject("unknown_reciter")
	}
	return Accept()
}

func init() {
	// Created with the configured reciters at startup; registered for listing.
	Register("reciter_filter", func() Filter {
		return &ReciterFilter{}
	})
}
