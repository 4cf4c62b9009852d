package picker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/phrase"
)

// seq replays fixed draws, then returns 0.
type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	if s.i >= len(s.vals) {
		return 0
	}
	v := s.vals[s.i]
	s.i++
	return v
}

type errStore struct{ err error }

func (s errStore) ListAll(ctx context.Context) ([]phrase.Phrase, error) { return nil, s.err }

func ph(id string, tags ...string) phrase.Phrase {
	return phrase.Phrase{ID: id, Tags: tags}
}

func store(ps ...phrase.Phrase) Store { return phrase.NewMemoryRepository(ps) }

// logOf builds a history where each entry picks a phrase with the given primary tag.
func logOf(tags ...string) []history.Entry {
	l := history.NewLog(nil)
	for i, t := range tags {
		l.Append("test", ph(fmt.Sprintf("h%d", i), t), Rule, "picked")
	}
	return l.Entries()
}

func TestNextEmptyPool(t *testing.T) {
	p := New(store())
	res, err := p.Next(context.Background(), "", nil, nil)
	if !errors.Is(err, ErrNoPhrases) {
		t.Fatalf("expected ErrNoPhrases, got %v", err)
	}
	if res.Phrase.ID != "" {
		t.Fatalf("expected zero phrase on failure, got %+v", res.Phrase)
	}
}

func TestNextStoreError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(errStore{boom}).Next(context.Background(), "", nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestNextAvoidsLastWithinIntent(t *testing.T) {
	// Draw 0 selects intent X (first bucket); {a, b} minus a leaves b.
	p := New(store(ph("a", "X"), ph("b", "X"), ph("c", "Y")), WithSource(&seq{vals: []float64{0}}))
	res, err := p.Next(context.Background(), "a", nil, nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Phrase.ID != "b" {
		t.Fatalf("expected b, got %s", res.Phrase.ID)
	}
	if res.Lane != LaneMain || res.Intent != phrase.NewTag("X") {
		t.Fatalf("unexpected lane/intent: %v %v", res.Lane, res.Intent)
	}
	want := Reason{Rule: Rule, Detail: `picked from "X" avoiding last`}
	if res.Reason != want {
		t.Fatalf("expected reason %+v, got %+v", want, res.Reason)
	}
}

func TestClassifyReviewEligibility(t *testing.T) {
	pool := []phrase.Phrase{ph("x1", "X"), ph("x2", "X"), ph("y1", "Y"), ph("u1")}

	tests := []struct {
		name       string
		hist       []history.Entry
		wantReview []string
	}{
		{"empty history", nil, nil},
		{"seen four times, not recent", logOf("X", "X", "X", "X", "Y", "Z", "W"), []string{"x1", "x2"}},
		{"seen three times", logOf("X", "X", "X", "Y", "Z", "W"), nil},
		{"seen four times but recent", logOf("X", "X", "X", "Y", "Z", "X"), nil},
		{"untagged never reviewed", logOf("", "", "", "", "Y", "Z", "W"), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ln := classify(pool, tc.hist, DefaultReviewMinSeen, DefaultReviewWindow)
			var got []string
			for _, p := range ln.review {
				got = append(got, p.ID)
			}
			if diff := cmp.Diff(tc.wantReview, got); diff != "" {
				t.Fatalf("review lane (-want +got):\n%s", diff)
			}
			if len(ln.main)+len(ln.review) != len(pool) {
				t.Fatalf("lanes do not cover the pool: %d + %d != %d", len(ln.main), len(ln.review), len(pool))
			}
		})
	}
}

func TestNextReviewInterrupt(t *testing.T) {
	// Every phrase has tag X, seen 4 times and absent from the last 3 entries.
	hist := logOf("X", "X", "X", "X", "Y", "Z", "W")
	p := New(store(ph("x1", "X"), ph("x2", "X")),
		WithSource(&seq{vals: []float64{0, 0.05, 0.9}}))
	res, err := p.Next(context.Background(), "x1", hist, nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Lane != LaneReview {
		t.Fatalf("expected review lane, got %v", res.Lane)
	}
	if res.Phrase.ID != "x2" {
		t.Fatalf("expected review pick to avoid x1, got %s", res.Phrase.ID)
	}
	if res.Reason.Detail != `picked from "X" avoiding last [REVIEW]` {
		t.Fatalf("unexpected detail %q", res.Reason.Detail)
	}
}

func TestNextReviewSuppressedAfterReview(t *testing.T) {
	hist := logOf("X", "X", "X", "X", "Y", "Z", "W")
	hist[len(hist)-1].Detail = `picked from "W" ` + ReviewMarker
	pool := store(ph("x1", "X"), ph("y1", "Y"))

	// A zero draw would trigger the interrupt if it were allowed.
	p := New(pool, WithSource(&seq{}))
	res, err := p.Next(context.Background(), "", hist, nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Lane != LaneMain {
		t.Fatalf("expected main lane after a review pick, got %v", res.Lane)
	}

	p = New(pool, WithSource(NewRandSource(7)))
	for i := 0; i < 1000; i++ {
		res, err := p.Next(context.Background(), "", hist, nil)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if res.Lane == LaneReview {
			t.Fatalf("review pick right after a review pick at trial %d", i)
		}
	}
}

func TestReviewRateConverges(t *testing.T) {
	hist := logOf("X", "X", "X", "X", "Y", "Y", "Y")
	p := New(store(ph("x1", "X"), ph("x2", "X"), ph("y1", "Y"), ph("y2", "Y")),
		WithSource(NewRandSource(42)))

	const trials = 100000
	review := 0
	for i := 0; i < trials; i++ {
		res, err := p.Next(context.Background(), "", hist, nil)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if res.Lane == LaneReview {
			review++
		}
	}
	rate := float64(review) / trials
	if math.Abs(rate-DefaultReviewRate) > 0.005 {
		t.Fatalf("review rate %.4f not within tolerance of %.2f", rate, DefaultReviewRate)
	}
}

func TestNextTwoBackTagAvoidanceInFallback(t *testing.T) {
	// X is review-eligible; recent-2 is {Z, W}. Draws: intent X, gate 0.5 (no review).
	hist := logOf("X", "X", "X", "X", "Y", "Z", "W")
	p := New(store(ph("x1", "X"), ph("y1", "Y"), ph("z1", "Z"), ph("w1", "W")),
		WithSource(&seq{vals: []float64{0, 0.5}}))
	res, err := p.Next(context.Background(), "", hist, nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Phrase.ID != "y1" || res.Lane != LaneMain {
		t.Fatalf("expected y1 from main lane, got %s (%v)", res.Phrase.ID, res.Lane)
	}
}

func TestNextTwoBackProperty(t *testing.T) {
	hist := logOf("X", "X", "X", "X", "Y", "Z", "W")
	recent := recentTags(hist, DefaultAvoidWindow)
	p := New(store(ph("x1", "X"), ph("y1", "Y"), ph("y2", "Y"), ph("z1", "Z"), ph("w1", "W")),
		WithSource(NewRandSource(3)))
	for i := 0; i < 2000; i++ {
		res, err := p.Next(context.Background(), "", hist, nil)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if res.Lane != LaneMain || res.Intent == res.Phrase.PrimaryTag() {
			// Within-intent picks are all one tag; the filter only bites in fallback.
			continue
		}
		if recent.has(res.Phrase.PrimaryTag()) {
			t.Fatalf("fallback pick %s has recent tag %v", res.Phrase.ID, res.Phrase.PrimaryTag())
		}
	}
}

func TestNextFallsBackToWholePool(t *testing.T) {
	// Whole pool is review-eligible, the gate says no: main lane is empty.
	hist := logOf("X", "X", "X", "X", "Y", "Y", "Y")
	p := New(store(ph("x1", "X"), ph("x2", "X")), WithSource(&seq{vals: []float64{0, 0.99}}))
	res, err := p.Next(context.Background(), "x1", hist, nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Phrase.ID != "x2" || res.Lane != LaneMain {
		t.Fatalf("expected x2 via pool fallback, got %s (%v)", res.Phrase.ID, res.Lane)
	}
}

func TestNextSinglePhraseRepeats(t *testing.T) {
	p := New(store(ph("only", "X")))
	res, err := p.Next(context.Background(), "only", logOf("X", "X"), nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.Phrase.ID != "only" {
		t.Fatalf("expected the only phrase, got %s", res.Phrase.ID)
	}
}

func TestNextOneBackProperty(t *testing.T) {
	// In both pools every intent bucket holding "a" has another member.
	pools := [][]phrase.Phrase{
		{ph("a", "X"), ph("b", "X")},
		{ph("a"), ph("b"), ph("c", "unknown")},
	}
	for pi, pool := range pools {
		p := New(store(pool...), WithSource(NewRandSource(int64(pi))))
		for i := 0; i < 500; i++ {
			res, err := p.Next(context.Background(), "a", nil, nil)
			if err != nil {
				t.Fatalf("pool %d: next: %v", pi, err)
			}
			if res.Phrase.ID == "a" {
				t.Fatalf("pool %d: repeated last phrase at trial %d", pi, i)
			}
		}
	}
}

func TestNextClosureAndNonEmptiness(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	tags := []string{"", "A", "B", "C", "unknown"}

	for iter := 0; iter < 3000; iter++ {
		n := 1 + rng.Intn(6)
		pool := make([]phrase.Phrase, n)
		ids := phrase.NewIDSet()
		intents := map[phrase.Tag]bool{}
		mastered := phrase.NewIDSet()
		for i := range pool {
			id := fmt.Sprintf("p%d", i)
			pool[i] = ph(id, tags[rng.Intn(len(tags))])
			if pool[i].Tags[0] == "" {
				pool[i].Tags = nil
			}
			ids.Add(id)
			intents[pool[i].PrimaryTag()] = true
			if rng.Intn(3) == 0 {
				mastered.Add(id)
			}
		}
		var htags []string
		for i := rng.Intn(12); i > 0; i-- {
			htags = append(htags, tags[rng.Intn(len(tags))])
		}
		hist := logOf(htags...)
		if len(hist) > 0 && rng.Intn(4) == 0 {
			hist[len(hist)-1].Detail += " " + ReviewMarker
		}
		lastID := ""
		if rng.Intn(2) == 0 {
			lastID = pool[rng.Intn(n)].ID
		}

		histBefore := append([]history.Entry(nil), hist...)
		masteredBefore := mastered.Clone()

		p := New(store(pool...), WithSource(NewRandSource(int64(iter))))
		res, err := p.Next(context.Background(), lastID, hist, mastered)
		if err != nil {
			t.Fatalf("iter %d: unexpected error %v", iter, err)
		}
		if !ids.Has(res.Phrase.ID) {
			t.Fatalf("iter %d: phrase %q not in pool", iter, res.Phrase.ID)
		}
		if n > 1 && len(intents) == 1 && lastID != "" && res.Phrase.ID == lastID {
			t.Fatalf("iter %d: repeated %s from a pool of %d", iter, lastID, n)
		}
		if diff := cmp.Diff(histBefore, hist, cmp.AllowUnexported(phrase.Tag{})); diff != "" {
			t.Fatalf("iter %d: history mutated:\n%s", iter, diff)
		}
		if diff := cmp.Diff(masteredBefore, mastered); diff != "" {
			t.Fatalf("iter %d: mastery set mutated:\n%s", iter, diff)
		}
	}
}
