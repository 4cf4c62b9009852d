// Package harvest drafts practice phrases from a saved Japanese article.
// Drafts carry the Japanese text and a tag; the English target is left for
// the learner to fill in before import.
package harvest

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/japaniel/tossa/pkg/phrase"
)

// Article is the readable part of a page.
type Article struct {
	Title string
	Text  string
}

// Reader returns the kana reading of Japanese text. *reading.Analyzer implements it.
type Reader interface {
	Reading(text string) string
}

// Options controls which sentences become drafts.
type Options struct {
	Tag      string // primary tag of every draft; empty leaves drafts untagged
	IDPrefix string // defaults to "h"
	MinRunes int    // defaults to 4
	MaxRunes int    // defaults to 30
	Limit    int    // 0 means no limit
	// Quotes drafts only text inside 「」, which is usually spoken language.
	Quotes bool
}

func (o Options) withDefaults() Options {
	if o.IDPrefix == "" {
		o.IDPrefix = "h"
	}
	if o.MinRunes <= 0 {
		o.MinRunes = 4
	}
	if o.MaxRunes <= 0 {
		o.MaxRunes = 30
	}
	return o
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT    = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP    = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
	reQuote = regexp.MustCompile(`「([^「」]+)」`)
	reKana  = regexp.MustCompile(`[\p{Hiragana}\p{Katakana}\p{Han}]`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Readability keeps furigana as plain text otherwise, so
// "漢字" would come out as "漢字かんじ". ASCII-only patterns keep this safe for Shift_JIS.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	return reRP.ReplaceAll(cleaned, []byte{})
}

// Extract reads an HTML page and returns its main text with furigana removed.
func Extract(r io.Reader, pageURL *url.URL) (Article, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Article{}, fmt.Errorf("read page: %w", err)
	}
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "file", Path: "/"}
	}
	a, err := readability.FromReader(bytes.NewReader(SanitizeRuby(content)), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("readability extraction: %w", err)
	}
	return Article{Title: strings.TrimSpace(a.Title), Text: a.TextContent}, nil
}

// Sentences splits text on Japanese sentence delimiters and newlines.
// Delimiters stay attached; blank sentences are dropped.
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' {
			flush()
		}
	}
	flush()
	return sentences
}

// Quotes returns the text inside 「」 brackets, in order.
func Quotes(text string) []string {
	var out []string
	for _, m := range reQuote.FindAllStringSubmatch(text, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Harvester turns articles into draft phrases.
type Harvester struct {
	Readings Reader
	Logger   *zap.Logger
}

// Draft builds phrases from the article text. Duplicates and sentences outside
// the length bounds or without Japanese characters are skipped.
func (h Harvester) Draft(a Article, opts Options) []phrase.Phrase {
	opts = opts.withDefaults()
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var candidates []string
	if opts.Quotes {
		candidates = Quotes(a.Text)
	} else {
		candidates = Sentences(a.Text)
	}

	seen := make(map[string]bool)
	var out []phrase.Phrase
	for _, s := range candidates {
		n := utf8.RuneCountInString(s)
		if n < opts.MinRunes || n > opts.MaxRunes || !reKana.MatchString(s) || seen[s] {
			continue
		}
		seen[s] = true
		p := phrase.Phrase{
			ID:     fmt.Sprintf("%s%d", opts.IDPrefix, len(out)+1),
			Native: s,
		}
		if opts.Tag != "" {
			p.Tags = []string{opts.Tag}
		}
		if h.Readings != nil {
			p.Reading = h.Readings.Reading(s)
		}
		out = append(out, p)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	logger.Info("drafted phrases",
		zap.String("title", a.Title),
		zap.Int("candidates", len(candidates)),
		zap.Int("drafts", len(out)))
	return out
}
