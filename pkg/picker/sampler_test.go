package picker

import (
	"math"
	"testing"

	"github.com/japaniel/tossa/pkg/phrase"
)

func TestSamplerRouletteWalk(t *testing.T) {
	cands := []phrase.Phrase{ph("a", "X"), ph("b", "X")}
	mastered := phrase.NewIDSet("a")

	// Weights are [0.4, 1.0]; total 1.4.
	tests := []struct {
		draw float64
		want string
	}{
		{0.0, "a"},
		{0.25, "a"}, // 0.35 - 0.4 <= 0
		{0.3, "b"},  // 0.42 - 0.4 > 0
		{0.999, "b"},
	}
	for _, tc := range tests {
		s := Sampler{Penalty: DefaultStarPenalty, Rand: &seq{vals: []float64{tc.draw}}}
		got, ok := s.Sample(cands, mastered)
		if !ok || got.ID != tc.want {
			t.Fatalf("draw %.3f: expected %s, got %s (ok=%v)", tc.draw, tc.want, got.ID, ok)
		}
	}
}

func TestSamplerSingleCandidateSkipsDraw(t *testing.T) {
	src := &seq{vals: []float64{0.7}}
	s := Sampler{Penalty: DefaultStarPenalty, Rand: src}
	got, ok := s.Sample([]phrase.Phrase{ph("solo", "X")}, nil)
	if !ok || got.ID != "solo" {
		t.Fatalf("expected solo, got %+v", got)
	}
	if src.i != 0 {
		t.Fatalf("single candidate consumed %d draws", src.i)
	}
}

func TestSamplerEmpty(t *testing.T) {
	s := Sampler{Penalty: DefaultStarPenalty, Rand: &seq{}}
	if _, ok := s.Sample(nil, nil); ok {
		t.Fatalf("expected ok=false for empty candidates")
	}
}

func TestSamplerZeroWeightFallsBackToUniform(t *testing.T) {
	cands := []phrase.Phrase{ph("a", "X"), ph("b", "X"), ph("c", "X")}
	mastered := phrase.NewIDSet("a", "b", "c")
	s := Sampler{Penalty: 0, Rand: &seq{vals: []float64{0.5}}}
	got, ok := s.Sample(cands, mastered)
	if !ok || got.ID != "b" {
		t.Fatalf("expected uniform pick b, got %s", got.ID)
	}
}

func TestSamplerWeightRatio(t *testing.T) {
	cands := []phrase.Phrase{ph("a", "X"), ph("b", "X")}
	mastered := phrase.NewIDSet("a")
	s := Sampler{Penalty: DefaultStarPenalty, Rand: NewRandSource(11)}

	counts := map[string]int{}
	for i := 0; i < 100000; i++ {
		got, _ := s.Sample(cands, mastered)
		counts[got.ID]++
	}
	ratio := float64(counts["b"]) / float64(counts["a"])
	if math.Abs(ratio-2.5) > 0.1 {
		t.Fatalf("expected b:a ratio near 2.5, got %.3f (%v)", ratio, counts)
	}
}

func TestRecencyFiltersNeverEmpty(t *testing.T) {
	in := []phrase.Phrase{ph("a", "X")}
	if out := avoidID("a")(in); len(out) != 1 {
		t.Fatalf("avoidID emptied a single-candidate set")
	}
	recent := tagSet{phrase.NewTag("X"): {}}
	if out := avoidTags(recent)(in); len(out) != 1 {
		t.Fatalf("avoidTags emptied the set")
	}
	mixed := []phrase.Phrase{ph("a", "X"), ph("b", "Y"), ph("u")}
	out := avoidTags(recent)(mixed)
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "u" {
		t.Fatalf("unexpected avoidTags result %v", out)
	}
	if out := avoidID("")(mixed); len(out) != 3 {
		t.Fatalf("avoidID without a last id must be a no-op")
	}
}

func TestFirstNonEmptyOrder(t *testing.T) {
	name, out := firstNonEmpty(
		stage{name: "intent"},
		stage{name: "main", source: []phrase.Phrase{ph("m", "Y")}},
		stage{name: "pool", source: []phrase.Phrase{ph("p", "Z")}},
	)
	if name != "main" || len(out) != 1 || out[0].ID != "m" {
		t.Fatalf("expected main stage, got %s %v", name, out)
	}
}

func TestBucketByIntentKeepsFirstSeenOrder(t *testing.T) {
	b := bucketByIntent([]phrase.Phrase{ph("y", "Y"), ph("x", "X"), ph("u"), ph("y2", "Y")})
	want := []string{"Y", "X", "unknown"}
	if len(b.keys) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(b.keys))
	}
	for i, k := range b.keys {
		if k.String() != want[i] {
			t.Fatalf("bucket %d: expected %s, got %s", i, want[i], k)
		}
	}
	if !b.keys[2].IsUntagged() {
		t.Fatalf("expected the third bucket to be Untagged")
	}
	tag, members := b.choose(&seq{vals: []float64{0}}, "y")
	if tag != phrase.NewTag("Y") || len(members) != 1 || members[0].ID != "y2" {
		t.Fatalf("unexpected choice %v %v", tag, members)
	}
}
