// Package answer decides whether a typed answer is close enough to the expected phrase.
package answer

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Reader returns the kana reading of Japanese text. *reading.Analyzer implements it.
type Reader interface {
	Reading(text string) string
}

// Matcher compares answers. The zero value matches on surface text only.
type Matcher struct {
	// Readings, when set, lets a kana answer match a kanji phrase.
	Readings Reader
}

var (
	reNumber  = regexp.MustCompile(`[0-9一二三四五六七八九十百千万億]+`)
	reNonWord = regexp.MustCompile(`[^\w\s]`)
	reSpace   = regexp.MustCompile(`\s+`)

	jaPunct = "。、，．・：；！？!?「」『』（）()[]【】"
)

// contractions are expanded in order before comparing English words.
var contractions = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\byou're\b`), "you are"},
	{regexp.MustCompile(`\byoure\b`), "you are"},
	{regexp.MustCompile(`\bi'm\b`), "i am"},
	{regexp.MustCompile(`\bit's\b`), "it is"},
	{regexp.MustCompile(`\bhe's\b`), "he is"},
	{regexp.MustCompile(`\bshe's\b`), "she is"},
	{regexp.MustCompile(`\bthey're\b`), "they are"},
	{regexp.MustCompile(`\bwe're\b`), "we are"},
	{regexp.MustCompile(`\bgonna\b`), "going to"},
	{regexp.MustCompile(`\bwanna\b`), "want to"},
	{regexp.MustCompile(`\bgotta\b`), "got to"},
	{regexp.MustCompile(`\blemme\b`), "let me"},
	{regexp.MustCompile(`\bkinda\b`), "kind of"},
	{regexp.MustCompile(`\bsorta\b`), "sort of"},
	{regexp.MustCompile(`\bok\b`), "okay"},
	{regexp.MustCompile(`\balright\b`), "okay"},
	{regexp.MustCompile(`\ball right\b`), "okay"},
}

// Match reports whether given roughly says expected. Japanese answers are
// compared by characters, English ones by words. Numbers must agree exactly.
func (m Matcher) Match(given, expected string, japanese bool) bool {
	if strings.TrimSpace(given) == "" || strings.TrimSpace(expected) == "" {
		return false
	}
	if !sameNumbers(given, expected) {
		return false
	}
	if japanese {
		if matchJapanese(given, expected) {
			return true
		}
		if m.Readings != nil {
			return matchJapanese(m.Readings.Reading(given), m.Readings.Reading(expected))
		}
		return false
	}
	return matchEnglish(given, expected)
}

func sameNumbers(a, b string) bool {
	na := reNumber.FindAllString(norm.NFKC.String(a), -1)
	nb := reNumber.FindAllString(norm.NFKC.String(b), -1)
	return strings.Join(na, ",") == strings.Join(nb, ",")
}

// EnglishWords lowercases s, expands contractions and splits it into words.
func EnglishWords(s string) []string {
	t := strings.ToLower(s)
	for _, c := range contractions {
		t = c.re.ReplaceAllString(t, c.repl)
	}
	t = reNonWord.ReplaceAllString(t, " ")
	var out []string
	for _, w := range reSpace.Split(t, -1) {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// JapaneseChars strips symbols, latin letters, digits and punctuation from s
// and returns the remaining characters.
func JapaneseChars(s string) []rune {
	var out []rune
	for _, r := range norm.NFKC.String(s) {
		switch {
		case unicode.IsSpace(r),
			r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)),
			unicode.Is(unicode.So, r),
			strings.ContainsRune(jaPunct, r):
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchJapanese(given, expected string) bool {
	a := JapaneseChars(expected)
	b := JapaneseChars(given)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	have := make(map[rune]bool, len(b))
	for _, r := range b {
		have[r] = true
	}
	hit := 0
	for _, r := range a {
		if have[r] {
			hit++
		}
	}
	ratio := float64(hit) / float64(len(a))
	return ratio >= 0.5 && hit >= 3
}

func matchEnglish(given, expected string) bool {
	want := EnglishWords(expected)
	if len(want) == 0 {
		return false
	}
	have := make(map[string]bool)
	for _, w := range EnglishWords(given) {
		have[w] = true
	}
	if len(want) == 1 {
		return have[want[0]]
	}

	hit := 0
	for _, w := range want {
		if have[w] {
			hit++
		}
	}
	ratio := float64(hit) / float64(len(want))
	minHits := int(math.Max(2, math.Ceil(float64(len(want))*0.6)))
	return ratio >= 0.7 && hit >= minHits && have[want[len(want)-1]]
}
