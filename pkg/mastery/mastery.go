// Package mastery tracks which phrases the learner has mastered ("stars").
package mastery

import (
	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/phrase"
)

// DefaultStreakToStar is the number of consecutive correct answers that earns a star.
const DefaultStreakToStar = 3

// Outcome is how a practice turn ended.
type Outcome int

const (
	Correct Outcome = iota
	Incorrect
	Revealed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "ok"
	case Incorrect:
		return "ng"
	case Revealed:
		return "revealed"
	case TimedOut:
		return "timeout"
	}
	return "unknown"
}

// Tracker holds stars and the running streak of correct answers per phrase.
type Tracker struct {
	stars        phrase.IDSet
	streaks      map[string]int
	streakToStar int
}

// NewTracker starts from an existing star set, which is copied.
func NewTracker(stars phrase.IDSet, streakToStar int) *Tracker {
	if streakToStar <= 0 {
		streakToStar = DefaultStreakToStar
	}
	return &Tracker{
		stars:        stars.Clone(),
		streaks:      make(map[string]int),
		streakToStar: streakToStar,
	}
}

// Stars returns a snapshot of the star set, safe to hand to the picker.
func (t *Tracker) Stars() phrase.IDSet { return t.stars.Clone() }

func (t *Tracker) Starred(id string) bool { return t.stars.Has(id) }

// Streak is the number of correct answers in a row for id.
func (t *Tracker) Streak(id string) int { return t.streaks[id] }

// StreakToStar is the streak length that earns a star.
func (t *Tracker) StreakToStar() int { return t.streakToStar }

// Record applies an outcome for id and reports whether the star set changed.
//   - Correct extends the streak; reaching the threshold grants a star.
//   - Incorrect resets the streak.
//   - TimedOut resets the streak and takes the star away.
//   - Revealed leaves both untouched.
func (t *Tracker) Record(id string, o Outcome) (changed bool) {
	switch o {
	case Correct:
		t.streaks[id]++
		if t.streaks[id] >= t.streakToStar && !t.stars.Has(id) {
			t.stars.Add(id)
			return true
		}
	case Incorrect:
		delete(t.streaks, id)
	case TimedOut:
		delete(t.streaks, id)
		if t.stars.Has(id) {
			t.stars.Remove(id)
			return true
		}
	}
	return false
}

// PracticeStar reports whether a phrase the learner copied into their list has
// been answered cleanly on each of its last three picks.
func PracticeStar(entries []history.Entry, id string, copied phrase.IDSet) bool {
	if !copied.Has(id) {
		return false
	}
	recent := history.ForPhrase(entries, id, 3)
	if len(recent) < 3 {
		return false
	}
	for _, e := range recent {
		if !e.Clean() {
			return false
		}
	}
	return true
}
