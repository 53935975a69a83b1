// Package session provides the study Session domain entity.
package session

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/hifzbox/internal/domain/verse"
)

// ShareParam is the query parameter carrying a shared session.
const ShareParam = "session"

var (
	ErrInvalidSession = errors.New("invalid session data")
	ErrNoSharedData   = errors.New("no shared session in url")
)

// Mode represents who is using the studio.
type Mode string

const (
	ModeStudent Mode = "student"
	ModeTeacher Mode = "teacher"
)

// Marks holds teacher annotations: chapter -> verse -> comment.
type Marks map[int]map[int]string

// Data represents a saved study session.
type Data struct {
	Name         string `json:"name"`
	Chapter      int    `json:"chapter"`
	StartVerse   int    `json:"startVerse"`
	EndVerse     int    `json:"endVerse"`
	Mode         Mode   `json:"mode"`
	Language     string `json:"language"`
	Reciter      string `json:"reciter"`
	Repeat       int    `json:"repeat"`
	MarkedVerses Marks  `json:"markedVerses"`
}

// Range returns the saved verse range.
func (d *Data) Range() verse.Range {
	return verse.Range{Start: d.StartVerse, End: d.EndVerse}
}

// Validate checks the minimum a session needs to be loaded.
func (d *Data) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.Wrap(ErrInvalidSession, "name is required")
	}
	if d.Chapter < 1 {
		return errors.Wrap(ErrInvalidSession, "chapter is required")
	}
	if err := d.Range().Validate(0); err != nil {
		return errors.Mark(err, ErrInvalidSession)
	}
	if d.Repeat < 0 {
		return errors.Wrapf(ErrInvalidSession, "repeat %d must be >= 0", d.Repeat)
	}
	switch d.Mode {
	case ModeStudent, ModeTeacher, "":
	default:
		return errors.Wrapf(ErrInvalidSession, "unknown mode %q", d.Mode)
	}
	return nil
}

// Normalize fills optional fields with their defaults.
func (d *Data) Normalize(defaultReciter string) {
	if d.Mode == "" {
		d.Mode = ModeStudent
	}
	if d.Language == "" {
		d.Language = "en"
	}
	if d.Reciter == "" {
		d.Reciter = defaultReciter
	}
	if d.MarkedVerses == nil {
		d.MarkedVerses = Marks{}
	}
}

// Export serializes the session to JSON.
func (d *Data) Export() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode session")
	}
	return string(b), nil
}

// Import parses and validates a JSON session.
func Import(data string) (*Data, error) {
	var d Data
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode session"), ErrInvalidSession)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ShareURL builds a link embedding the session as a query parameter.
func (d *Data) ShareURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse base url")
	}
	payload, err := d.Export()
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(ShareParam, payload)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromShareURL extracts the session embedded in a shared link.
func FromShareURL(raw string) (*Data, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse share url")
	}
	payload := u.Query().Get(ShareParam)
	if payload == "" {
		return nil, ErrNoSharedData
	}
	return Import(payload)
}

// ImportedName returns the name to use for an imported session,
// suffixing it when a session with the same name already exists.
func ImportedName(name string, exists func(string) bool) string {
	if !exists(name) {
		return name
	}
	return name + " (Imported)"
}

// Set records a comment for a verse. An empty comment removes the mark.
func (m Marks) Set(chapter, verseNo int, comment string) {
	if comment == "" {
		if verses, ok := m[chapter]; ok {
			delete(verses, verseNo)
			if len(verses) == 0 {
				delete(m, chapter)
			}
		}
		return
	}
	if m[chapter] == nil {
		m[chapter] = make(map[int]string)
	}
	m[chapter][verseNo] = comment
}

// Get returns the comment for a verse.
func (m Marks) Get(chapter, verseNo int) (string, bool) {
	c, ok := m[chapter][verseNo]
	return c, ok
}

// Clone returns a deep copy.
func (m Marks) Clone() Marks {
	out := make(Marks, len(m))
	for ch, verses := range m {
		cp := make(map[int]string, len(verses))
		for v, c := range verses {
			cp[v] = c
		}
		out[ch] = cp
	}
	return out
}
