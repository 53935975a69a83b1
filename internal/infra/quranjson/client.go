// Package quranjson provides a client for the quran-json CDN distribution.
package quranjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/hifzbox/internal/domain/verse"
)

// DefaultBaseURL is the public CDN distribution of quran-json.
const DefaultBaseURL = "https://cdn.jsdelivr.net/npm/quran-json@3.1.2/dist"

// Arabic is the language of the base chapter text.
const Arabic = "ar"

// Errors
var (
	ErrNotFound       = errors.New("catalog resource not found")
	ErrInvalidChapter = errors.New("chapter must be between 1 and 114")
)

// Config represents catalog client configuration.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	FallbackLanguage string
}

// chapterCacheEntry represents a cached merged chapter.
type chapterCacheEntry struct {
	chapter *verse.Chapter
}

// Client is a quran-json catalog client.
type Client struct {
	baseURL    string
	fallback   string
	httpClient *http.Client

	// Cache for the chapter index
	index []verse.Chapter
	// Cache for merged chapters keyed by chapter and language
	chapterCache map[string]*chapterCacheEntry

	// Mutex for cache access
	cacheMu sync.RWMutex
}

// translationResponse represents a translated chapter file.
type translationResponse struct {
	Verses []struct {
		ID          int    `json:"id"`
		Text        string `json:"text"`
		Translation string `json:"translation"`
	} `json:"verses"`
}

// New creates a new catalog client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FallbackLanguage == "" {
		cfg.FallbackLanguage = "en"
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		fallback:     cfg.FallbackLanguage,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		chapterCache: make(map[string]*chapterCacheEntry),
	}
}

// Chapters retrieves the chapter index without verses.
func (c *Client) Chapters(ctx context.Context) ([]verse.Chapter, error) {
	c.cacheMu.RLock()
	if c.index != nil {
		defer c.cacheMu.RUnlock()
		return c.index, nil
	}
	c.cacheMu.RUnlock()

	var chapters []verse.Chapter
	if err := c.getJSON(ctx, "/chapters/index.json", &chapters); err != nil {
		return nil, errors.Wrap(err, "failed to fetch chapter index")
	}

	c.cacheMu.Lock()
	c.index = chapters
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached chapter index: count=%d", len(chapters))

	return chapters, nil
}

// Chapter retrieves a chapter with its Arabic text and, unless language is
// Arabic, the translation for language merged into each verse. When the
// translation is unavailable the fallback language is merged instead; a
// missing fallback leaves the verses untranslated.
func (c *Client) Chapter(ctx context.Context, id int, language string) (*verse.Chapter, error) {
	if id < 1 || id > verse.ChapterCount {
		return nil, errors.Wrapf(ErrInvalidChapter, "chapter=%d", id)
	}
	if language == "" {
		language = c.fallback
	}

	cacheKey := fmt.Sprintf("chapter:%d:%s", id, language)
	c.cacheMu.RLock()
	if entry, ok := c.chapterCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached chapter: chapter=%d language=%s", id, language)
		return entry.chapter, nil
	}
	c.cacheMu.RUnlock()

	var chapter verse.Chapter
	if err := c.getJSON(ctx, fmt.Sprintf("/chapters/%d.json", id), &chapter); err != nil {
		return nil, errors.Wrapf(err, "failed to fetch chapter %d", id)
	}
	for i := range chapter.Verses {
		chapter.Verses[i].Chapter = id
	}

	if language != Arabic {
		if err := c.mergeTranslation(ctx, &chapter, language); err != nil {
			zlog.Warn().Msgf("translation unavailable, falling back: chapter=%d language=%s fallback=%s: %v",
				id, language, c.fallback, err)
			if language != c.fallback {
				if err := c.mergeTranslation(ctx, &chapter, c.fallback); err != nil {
					zlog.Error().Msgf("fallback translation unavailable: chapter=%d language=%s: %v", id, c.fallback, err)
				}
			}
		}
	}

	c.cacheMu.Lock()
	c.chapterCache[cacheKey] = &chapterCacheEntry{chapter: &chapter}
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached chapter: chapter=%d language=%s verses=%d", id, language, len(chapter.Verses))

	return &chapter, nil
}

// mergeTranslation merges the translation file for language into the verses by position.
func (c *Client) mergeTranslation(ctx context.Context, chapter *verse.Chapter, language string) error {
	var tr translationResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/chapters/%s/%d.json", language, chapter.ID), &tr); err != nil {
		return err
	}

	for i := range chapter.Verses {
		if i >= len(tr.Verses) {
			break
		}
		text := tr.Verses[i].Translation
		if text == "" {
			text = tr.Verses[i].Text
		}
		if chapter.Verses[i].Translations == nil {
			chapter.Verses[i].Translations = make(map[string]string)
		}
		chapter.Verses[i].Translations[language] = text
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, "GET %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
