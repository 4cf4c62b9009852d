package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader map[string]string

func (f fakeReader) Reading(s string) string {
	if r, ok := f[s]; ok {
		return r
	}
	return s
}

func TestMatchEnglish(t *testing.T) {
	var m Matcher
	tests := []struct {
		given, expected string
		want            bool
	}{
		{"that sounds good", "That sounds good.", true},
		{"I am fine with that", "I'm fine with that.", true},
		{"sounds good", "That sounds good.", false}, // 2/3 hits is under 0.7
		{"that sounds", "That sounds good.", false},
		{"sure", "Sure.", true},
		{"okay", "OK.", true},
		{"alright", "ok", true},
		{"nope", "Sure.", false},
		{"", "Sure.", false},
		{"let me think about it", "Let me think about it.", true},
		{"let me think", "Let me think about it.", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, m.Match(tc.given, tc.expected, false), "given=%q expected=%q", tc.given, tc.expected)
	}
}

func TestMatchNumbersMustAgree(t *testing.T) {
	var m Matcher
	assert.False(t, m.Match("I am 30 years old", "I am 31 years old", false))
	assert.True(t, m.Match("I am ３１ years old", "I am 31 years old", false))
	assert.False(t, m.Match("三人です", "二人です", true))
}

func TestMatchJapanese(t *testing.T) {
	var m Matcher
	assert.True(t, m.Match("それは難しいです", "それは難しいです。", true))
	assert.True(t, m.Match("それは難しい", "それは難しいです", true))
	assert.False(t, m.Match("いい", "いいですね", true), "fewer than three matching characters")
	assert.False(t, m.Match("!!", "いいですね", true))
}

func TestMatchJapaneseByReading(t *testing.T) {
	r := fakeReader{"考える": "かんがえる"}
	assert.False(t, Matcher{}.Match("かんがえる", "考える", true))
	assert.True(t, Matcher{Readings: r}.Match("かんがえる", "考える", true))
}

func TestEnglishWords(t *testing.T) {
	got := EnglishWords("You're gonna be OK, alright?")
	require.Equal(t, []string{"you", "are", "going", "to", "be", "okay", "okay"}, got)
}

func TestJapaneseChars(t *testing.T) {
	require.Equal(t, []rune("正直に言うと"), JapaneseChars("「正直に、言うと」ABC 123"))
}
