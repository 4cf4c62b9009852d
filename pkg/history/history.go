// Package history keeps the append-only pick log the picker reads from.
package history

import (
	"time"

	"github.com/japaniel/tossa/pkg/phrase"
)

// Entry is one pick. TagOccurrenceOrder and ConsecutiveSameTag are derived
// from the entries before it and can be rebuilt with Recompute.
type Entry struct {
	Order     int
	Time      time.Time
	SessionID string
	PhraseID  string

	PrimaryTag phrase.Tag

	// Rule and Detail come from the picker's reason for this pick.
	Rule   string
	Detail string

	Answered    bool // an answer was typed in time
	Revealed    bool
	RevealAfter time.Duration // zero unless Revealed
	Timeout     bool
	Elapsed     time.Duration

	TagOccurrenceOrder int // occurrences of PrimaryTag so far, this entry included
	ConsecutiveSameTag int // run length of PrimaryTag ending at this entry
}

// Clean reports whether the learner answered without revealing or timing out.
// A pick that was never answered is not clean.
func (e Entry) Clean() bool { return e.Answered && !e.Revealed && !e.Timeout }

// Log is an ordered list of entries. Callers own it; the picker only reads it.
type Log struct {
	entries []Entry
	now     func() time.Time
}

// NewLog returns a log seeded with existing entries (e.g. loaded from the database).
func NewLog(entries []Entry) *Log {
	return &Log{entries: append([]Entry(nil), entries...), now: time.Now}
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Last returns the most recent entry.
func (l *Log) Last() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Append records a pick of p and returns the new entry.
func (l *Log) Append(sessionID string, p phrase.Phrase, rule, detail string) Entry {
	e := Entry{
		Order:      len(l.entries),
		Time:       l.now(),
		SessionID:  sessionID,
		PhraseID:   p.ID,
		PrimaryTag: p.PrimaryTag(),
		Rule:       rule,
		Detail:     detail,
	}
	e.TagOccurrenceOrder, e.ConsecutiveSameTag = derive(l.entries, e.PrimaryTag)
	l.entries = append(l.entries, e)
	return e
}

// MarkRevealed flags the last entry as revealed after d. It is a no-op on an empty log
// or when the entry already timed out.
func (l *Log) MarkRevealed(d time.Duration) (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	last := &l.entries[len(l.entries)-1]
	if last.Timeout {
		return *last, false
	}
	last.Revealed = true
	last.RevealAfter = d
	last.Elapsed = d
	return *last, true
}

// MarkTimeout flags the last entry as timed out after d.
func (l *Log) MarkTimeout(d time.Duration) (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	last := &l.entries[len(l.entries)-1]
	if last.Revealed {
		return *last, false
	}
	last.Timeout = true
	last.Elapsed = d
	return *last, true
}

// MarkAnswered records an answer typed after d. It is a no-op once the last
// entry was revealed or timed out.
func (l *Log) MarkAnswered(d time.Duration) (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	last := &l.entries[len(l.entries)-1]
	if last.Revealed || last.Timeout {
		return *last, false
	}
	last.Answered = true
	last.Elapsed = d
	return *last, true
}

// Recompute returns a copy of entries with Order and the derived counters rebuilt
// from each entry's prefix.
func Recompute(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		e.Order = i
		e.TagOccurrenceOrder, e.ConsecutiveSameTag = derive(out, e.PrimaryTag)
		out = append(out, e)
	}
	return out
}

func derive(prefix []Entry, tag phrase.Tag) (occurrence, consecutive int) {
	for _, e := range prefix {
		if e.PrimaryTag == tag {
			occurrence++
		}
	}
	consecutive = 1
	if n := len(prefix); n > 0 && prefix[n-1].PrimaryTag == tag {
		consecutive = prefix[n-1].ConsecutiveSameTag + 1
	}
	return occurrence + 1, consecutive
}

// ForPhrase returns the last n entries for id, oldest first.
func ForPhrase(entries []Entry, id string, n int) []Entry {
	var out []Entry
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		if entries[i].PhraseID == id {
			out = append(out, entries[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
