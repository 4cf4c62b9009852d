package picker

import "github.com/japaniel/tossa/pkg/phrase"

// filter narrows a candidate set. Filters in this file never return an empty
// set for a non-empty input.
type filter func([]phrase.Phrase) []phrase.Phrase

func keep(in []phrase.Phrase, ok func(phrase.Phrase) bool) []phrase.Phrase {
	out := make([]phrase.Phrase, 0, len(in))
	for _, p := range in {
		if ok(p) {
			out = append(out, p)
		}
	}
	return out
}

// avoidID drops the previous pick (1-back) unless it is the only candidate.
func avoidID(lastID string) filter {
	return func(in []phrase.Phrase) []phrase.Phrase {
		if lastID == "" || len(in) <= 1 {
			return in
		}
		out := keep(in, func(p phrase.Phrase) bool { return p.ID != lastID })
		if len(out) == 0 {
			return in
		}
		return out
	}
}

// avoidTags drops candidates whose primary tag was seen recently (2-back),
// skipping the filter when it would leave nothing.
func avoidTags(recent tagSet) filter {
	return func(in []phrase.Phrase) []phrase.Phrase {
		if len(recent) == 0 {
			return in
		}
		out := keep(in, func(p phrase.Phrase) bool { return !recent.has(p.PrimaryTag()) })
		if len(out) == 0 {
			return in
		}
		return out
	}
}

// stage is one step of the main-lane fallback chain: a source set and the
// filters applied to it.
type stage struct {
	name    string
	source  []phrase.Phrase
	filters []filter
}

func (s stage) run() []phrase.Phrase {
	out := s.source
	for _, f := range s.filters {
		out = f(out)
	}
	return out
}

// firstNonEmpty runs stages in order and returns the first non-empty result.
func firstNonEmpty(stages ...stage) (string, []phrase.Phrase) {
	for _, s := range stages {
		if out := s.run(); len(out) > 0 {
			return s.name, out
		}
	}
	return "", nil
}
