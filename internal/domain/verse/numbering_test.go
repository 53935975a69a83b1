package verse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalNumber(t *testing.T) {
	tests := []struct {
		name    string
		chapter int
		verse   int
		want    int
	}{
		{name: "first verse", chapter: 1, verse: 1, want: 1},
		{name: "end of first chapter", chapter: 1, verse: 7, want: 7},
		{name: "start of second chapter", chapter: 2, verse: 1, want: 8},
		{name: "third chapter", chapter: 3, verse: 1, want: 294},
		{name: "last verse", chapter: 114, verse: 6, want: TotalVerses},
		{name: "verse past chapter end", chapter: 1, verse: 8, want: 0},
		{name: "unknown chapter", chapter: 115, verse: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GlobalNumber(tt.chapter, tt.verse))
		})
	}
}

func TestVerseCount(t *testing.T) {
	assert.Equal(t, 7, VerseCount(1))
	assert.Equal(t, 286, VerseCount(2))
	assert.Equal(t, 6, VerseCount(114))
	assert.Equal(t, 0, VerseCount(0))
}

func TestChapter_VerseAt(t *testing.T) {
	ch := Chapter{
		ID: 1,
		Verses: []Verse{
			{ID: 1, Text: "a", Translations: map[string]string{"en": "one"}},
			{ID: 2, Text: "b"},
		},
	}

	v, ok := ch.VerseAt(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v.Translation("en"))
	assert.Equal(t, "", v.Translation("fr"))

	v, ok = ch.VerseAt(2)
	assert.True(t, ok)
	assert.Equal(t, "", v.Translation("en"))

	_, ok = ch.VerseAt(3)
	assert.False(t, ok)
}

func TestIndex(t *testing.T) {
	index := Index()
	require.Len(t, index, ChapterCount)

	total := 0
	for i, ch := range index {
		assert.Equal(t, i+1, ch.ID)
		assert.Equal(t, VerseCount(ch.ID), ch.TotalVerses)
		total += ch.TotalVerses
	}
	assert.Equal(t, TotalVerses, total)
}
