package filter

import (
	"context"

	"github.com/osa030/hifzbox/internal/domain/verse"
)

// ChapterBoundsFilter checks that the chapter exists and the range lies within it.
type ChapterBoundsFilter struct{}

// NewChapterBoundsFilter creates a new chapter bounds filter.
func NewChapterBoundsFilter() *ChapterBoundsFilter {
	return &ChapterBoundsFilter{}
}

func (f *ChapterBoundsFilter) Name() string {
	return "chapter_bounds_filter"
}

func (f *ChapterBoundsFilter) Description() string {
	return "Checks that the chapter exists and the verse range lies within it"
}

func (f *ChapterBoundsFilter) ReturnCodes() []string {
	return []string{"chapter_out_of_bounds", "range_out_of_bounds"}
}

func (f *ChapterBoundsFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ChapterBoundsFilter) AppliesTo(origin Origin) bool {
	return true
}

func (f *ChapterBoundsFilter) Check(ctx context.Context, req Request) Result {
	d := req.Session
	count := verse.VerseCount(d.Chapter)
	if count == 0 {
		return Reject("chapter_out_of_bounds")
	}
	if err := d.Range().Validate(count); err != nil {
		return Reject("range_out_of_bounds")
	}
	return Accept()
}

func init() {
	Register("chapter_bounds_filter", func() Filter {
		return &ChapterBoundsFilter{}
	})
}
