package phrase

import (
	"sort"
	"strings"
)

// Phrase is a single practice item. Phrases are loaded once and never mutated.
type Phrase struct {
	ID     string   `json:"id" yaml:"id"`
	Native string   `json:"native" yaml:"native"` // prompt text (e.g. "いいですね")
	Target string   `json:"target" yaml:"target"` // expected answer (e.g. "That sounds good.")
	Tags   []string `json:"tags" yaml:"tags"`     // Tags[0] is the primary tag (intent)

	// Class is an optional main/sub classification. Search can filter on it.
	Class *Classification `json:"class,omitempty" yaml:"class,omitempty"`
	// MeaningGroup links phrases that express the same meaning.
	MeaningGroup string `json:"meaningGroup,omitempty" yaml:"meaning_group,omitempty"`
	// Reading is the hiragana reading of Native, filled in at import time.
	Reading string `json:"reading,omitempty" yaml:"reading,omitempty"`
}

// Classification is the secondary main/sub category pair.
type Classification struct {
	Main string `json:"main" yaml:"main"`
	Sub  string `json:"sub" yaml:"sub"`
}

// ParseClass reads "MAIN" or "MAIN/SUB". It returns nil for an empty string.
func ParseClass(s string) *Classification {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	main, sub, _ := strings.Cut(s, "/")
	return &Classification{Main: strings.TrimSpace(main), Sub: strings.TrimSpace(sub)}
}

func (c Classification) String() string {
	if c.Sub == "" {
		return c.Main
	}
	return c.Main + "/" + c.Sub
}

// SubCount is the number of phrases in one sub class.
type SubCount struct {
	Sub   string
	Count int
}

// SubCounts counts the phrases of main class main per sub class, in order of
// first appearance. Phrases without a sub are skipped.
func SubCounts(phrases []Phrase, main string) []SubCount {
	var out []SubCount
	index := map[string]int{}
	for _, p := range phrases {
		if p.Class == nil || p.Class.Main != main {
			continue
		}
		sub := strings.TrimSpace(p.Class.Sub)
		if sub == "" {
			continue
		}
		i, ok := index[sub]
		if !ok {
			i = len(out)
			index[sub] = i
			out = append(out, SubCount{Sub: sub})
		}
		out[i].Count++
	}
	return out
}

// PrimaryTag returns the intent key of the phrase.
func (p Phrase) PrimaryTag() Tag {
	if len(p.Tags) == 0 {
		return Untagged
	}
	return NewTag(p.Tags[0])
}

// HasTag reports whether tag is among the phrase's tags.
func (p Phrase) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// untaggedName is how the Untagged sentinel renders.
const untaggedName = "unknown"

// Tag is a primary tag. The zero value is Untagged, which is distinct from a
// real tag whose name happens to be "unknown".
type Tag struct {
	name string
	set  bool
}

// Untagged is the primary tag of phrases without tags.
var Untagged = Tag{}

// NewTag returns the tag named s. An empty name yields Untagged.
func NewTag(s string) Tag {
	if s == "" {
		return Untagged
	}
	return Tag{name: s, set: true}
}

// IsUntagged reports whether t is the Untagged sentinel.
func (t Tag) IsUntagged() bool { return !t.set }

// Name returns the raw tag name, or "" for Untagged.
func (t Tag) Name() string { return t.name }

func (t Tag) String() string {
	if !t.set {
		return untaggedName
	}
	return t.name
}

// IDSet is a set of phrase ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string)    { s[id] = struct{}{} }
func (s IDSet) Remove(id string) { delete(s, id) }

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
