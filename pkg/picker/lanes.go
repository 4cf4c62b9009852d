package picker

import (
	"strings"

	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/phrase"
)

// Lane says which pipeline produced a pick.
type Lane int

const (
	LaneMain Lane = iota
	LaneReview
)

func (l Lane) String() string {
	if l == LaneReview {
		return "REVIEW"
	}
	return "MAIN"
}

// ReviewMarker is appended to the detail of review-lane picks.
const ReviewMarker = "[REVIEW]"

type tagSet map[phrase.Tag]struct{}

func (s tagSet) has(t phrase.Tag) bool {
	_, ok := s[t]
	return ok
}

// recentTags collects the primary tags of the last n entries. Untagged entries are skipped.
func recentTags(hist []history.Entry, n int) tagSet {
	start := len(hist) - n
	if start < 0 {
		start = 0
	}
	out := make(tagSet, n)
	for _, e := range hist[start:] {
		if e.PrimaryTag.IsUntagged() {
			continue
		}
		out[e.PrimaryTag] = struct{}{}
	}
	return out
}

func tagCounts(hist []history.Entry) map[phrase.Tag]int {
	counts := make(map[phrase.Tag]int)
	for _, e := range hist {
		if e.PrimaryTag.IsUntagged() {
			continue
		}
		counts[e.PrimaryTag]++
	}
	return counts
}

// lanes is the main/review split of the whole pool.
type lanes struct {
	main       []phrase.Phrase
	review     []phrase.Phrase
	reviewTags tagSet
}

func (l lanes) isReview(p phrase.Phrase) bool { return l.reviewTags.has(p.PrimaryTag()) }

// classify splits pool into lanes. A phrase is review-eligible when its tag has been
// logged at least minCount times and is not among the tags of the last window entries.
// Untagged phrases always stay in the main lane.
func classify(pool []phrase.Phrase, hist []history.Entry, minCount, window int) lanes {
	counts := tagCounts(hist)
	recent := recentTags(hist, window)

	l := lanes{reviewTags: make(tagSet)}
	for _, p := range pool {
		tag := p.PrimaryTag()
		if !tag.IsUntagged() && counts[tag] >= minCount && !recent.has(tag) {
			l.review = append(l.review, p)
			l.reviewTags[tag] = struct{}{}
		} else {
			l.main = append(l.main, p)
		}
	}
	return l
}

// wasReviewPick reports whether the latest entry came from the review lane.
func wasReviewPick(hist []history.Entry) bool {
	if len(hist) == 0 {
		return false
	}
	return strings.Contains(hist[len(hist)-1].Detail, ReviewMarker)
}
