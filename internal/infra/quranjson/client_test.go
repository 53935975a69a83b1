package quranjson

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fatiha = `{
	"id": 1, "name": "الفاتحة", "transliteration": "Al-Fatihah", "translation": "The Opener",
	"type": "meccan", "total_verses": 2,
	"verses": [
		{"id": 1, "text": "بِسْمِ ٱللَّهِ", "transliteration": "Bismi Allahi"},
		{"id": 2, "text": "ٱلْحَمْدُ لِلَّهِ", "transliteration": "Alhamdu lillahi"}
	]
}`

// newCatalog serves chapter 1 in Arabic and the given translation files.
func newCatalog(t *testing.T, translations map[string]string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/chapters/index.json":
			fmt.Fprint(w, `[{"id": 1, "name": "الفاتحة", "transliteration": "Al-Fatihah", "total_verses": 7}]`)
		case "/chapters/1.json":
			fmt.Fprint(w, fatiha)
		default:
			for lang, body := range translations {
				if r.URL.Path == "/chapters/"+lang+"/1.json" {
					fmt.Fprint(w, body)
					return
				}
			}
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestChapters(t *testing.T) {
	server, hits := newCatalog(t, nil)
	client := New(Config{BaseURL: server.URL})

	chapters, err := client.Chapters(context.Background())
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, "Al-Fatihah", chapters[0].Transliteration)
	assert.Equal(t, 7, chapters[0].TotalVerses)

	_, err = client.Chapters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestChapter_MergesTranslation(t *testing.T) {
	server, _ := newCatalog(t, map[string]string{
		"fr": `{"verses": [{"id": 1, "translation": "Au nom d'Allah"}, {"id": 2, "translation": "Louange à Allah"}]}`,
	})
	client := New(Config{BaseURL: server.URL})

	chapter, err := client.Chapter(context.Background(), 1, "fr")
	require.NoError(t, err)
	require.Len(t, chapter.Verses, 2)
	assert.Equal(t, 1, chapter.Verses[0].Chapter)
	assert.Equal(t, "Au nom d'Allah", chapter.Verses[0].Translation("fr"))
	assert.Equal(t, "Louange à Allah", chapter.Verses[1].Translation("fr"))
}

func TestChapter_FallsBackToEnglish(t *testing.T) {
	server, _ := newCatalog(t, map[string]string{
		"en": `{"verses": [{"id": 1, "text": "In the name of Allah"}]}`,
	})
	client := New(Config{BaseURL: server.URL})

	chapter, err := client.Chapter(context.Background(), 1, "sv")
	require.NoError(t, err)
	assert.Equal(t, "", chapter.Verses[0].Translation("sv"))
	assert.Equal(t, "In the name of Allah", chapter.Verses[0].Translation("en"))
	assert.Equal(t, "", chapter.Verses[1].Translation("en"))
}

func TestChapter_NoTranslationAtAll(t *testing.T) {
	server, _ := newCatalog(t, nil)
	client := New(Config{BaseURL: server.URL})

	chapter, err := client.Chapter(context.Background(), 1, "tr")
	require.NoError(t, err)
	assert.Nil(t, chapter.Verses[0].Translations)
}

func TestChapter_ArabicSkipsTranslation(t *testing.T) {
	server, hits := newCatalog(t, nil)
	client := New(Config{BaseURL: server.URL})

	_, err := client.Chapter(context.Background(), 1, Arabic)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestChapter_Cached(t *testing.T) {
	server, hits := newCatalog(t, map[string]string{
		"en": `{"verses": [{"id": 1, "translation": "In the name of Allah"}]}`,
	})
	client := New(Config{BaseURL: server.URL + "/"})

	first, err := client.Chapter(context.Background(), 1, "en")
	require.NoError(t, err)
	second, err := client.Chapter(context.Background(), 1, "en")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestChapter_Errors(t *testing.T) {
	server, _ := newCatalog(t, nil)
	client := New(Config{BaseURL: server.URL})

	_, err := client.Chapter(context.Background(), 115, "en")
	assert.True(t, errors.Is(err, ErrInvalidChapter))

	_, err = client.Chapter(context.Background(), 2, "en")
	assert.True(t, errors.Is(err, ErrNotFound))
}
