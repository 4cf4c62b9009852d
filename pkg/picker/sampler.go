package picker

import (
	"math/rand"

	"github.com/japaniel/tossa/pkg/phrase"
)

// Source yields uniform floats in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewRandSource returns a math/rand backed Source.
func NewRandSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// uniformIndex maps a draw onto [0, n).
func uniformIndex(rng Source, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Sampler draws one candidate with mastered phrases down-weighted.
type Sampler struct {
	Penalty float64 // weight of a mastered phrase; others weigh 1
	Rand    Source
}

// Weight returns the sampling weight of p.
func (s Sampler) Weight(p phrase.Phrase, mastered phrase.IDSet) float64 {
	if mastered.Has(p.ID) {
		return s.Penalty
	}
	return 1.0
}

// Sample performs a roulette-wheel draw. It reports false only for an empty input.
// A single candidate is returned without consuming a draw.
func (s Sampler) Sample(candidates []phrase.Phrase, mastered phrase.IDSet) (phrase.Phrase, bool) {
	switch len(candidates) {
	case 0:
		return phrase.Phrase{}, false
	case 1:
		return candidates[0], true
	}

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		weights[i] = s.Weight(c, mastered)
		total += weights[i]
	}
	if total <= 0 {
		return candidates[uniformIndex(s.Rand, len(candidates))], true
	}

	r := s.Rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return candidates[i], true
		}
	}
	// float drift
	return candidates[len(candidates)-1], true
}
