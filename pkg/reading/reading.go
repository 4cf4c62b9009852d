// Package reading derives kana readings for Japanese phrase text.
package reading

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token is a single analyzed unit of text.
type Token struct {
	Surface    string // the text as it appears (e.g. "思い")
	BaseForm   string // dictionary form (e.g. "思う")
	Reading    string // katakana reading from the dictionary, "" if unknown
	PrimaryPOS string // first IPA part-of-speech field (e.g. "名詞", "記号")
}

// posSymbol is the IPA part of speech for punctuation and other symbols.
const posSymbol = "記号"

// Analyzer wraps a kagome tokenizer. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer loads the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Tokens splits text into tokens, dropping whitespace-only ones.
func (a *Analyzer) Tokens(text string) []Token {
	var out []Token
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		// IPA features: 0 POS, 6 base form, 7 reading.
		features := tok.Features()
		t := Token{Surface: tok.Surface, BaseForm: tok.Surface}
		if len(features) > 0 {
			t.PrimaryPOS = features[0]
		}
		if len(features) > 6 && features[6] != "*" {
			t.BaseForm = features[6]
		}
		if len(features) > 7 && features[7] != "*" {
			t.Reading = features[7]
		}
		out = append(out, t)
	}
	return out
}

// Reading returns the hiragana reading of text. Punctuation is dropped. Tokens
// without a dictionary reading (latin, unknown words) keep their surface form.
func (a *Analyzer) Reading(text string) string {
	var b strings.Builder
	for _, t := range a.Tokens(text) {
		switch {
		case t.PrimaryPOS == posSymbol:
		case t.Reading != "":
			b.WriteString(ToHiragana(t.Reading))
		default:
			b.WriteString(ToHiragana(t.Surface))
		}
	}
	return b.String()
}

// ToHiragana converts katakana to hiragana and leaves other runes alone.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
