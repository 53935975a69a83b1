// Package verse provides the Chapter, Verse and Range domain entities.
package verse

// Chapter represents a chapter (surah) with its verses.
type Chapter struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Transliteration string  `json:"transliteration"`
	Translation     string  `json:"translation"`
	Type            string  `json:"type"`
	TotalVerses     int     `json:"total_verses"`
	Verses          []Verse `json:"verses"`
}

// Verse represents a single verse (ayah).
type Verse struct {
	ID              int               `json:"id"`
	Chapter         int               `json:"chapter"`
	Text            string            `json:"text"`
	Transliteration string            `json:"transliteration"`
	Translations    map[string]string `json:"translations,omitempty"`
}

// VerseAt returns the verse with the given 1-based number.
func (c *Chapter) VerseAt(number int) (Verse, bool) {
	if number < 1 || number > len(c.Verses) {
		return Verse{}, false
	}
	v := c.Verses[number-1]
	if v.ID == number {
		return v, true
	}
	// Fall back to a scan when the payload is not densely ordered.
	for _, candidate := range c.Verses {
		if candidate.ID == number {
			return candidate, true
		}
	}
	return Verse{}, false
}

// Translation returns the translation for the given language, if present.
func (v Verse) Translation(language string) string {
	if v.Translations == nil {
		return ""
	}
	return v.Translations[language]
}
