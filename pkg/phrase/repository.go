package phrase

import (
	"context"
	"errors"
	"math/rand"
	"strings"
)

// ErrNotFound is returned by GetByID when no phrase has the requested id.
var ErrNotFound = errors.New("phrase: not found")

// DefaultSearchLimit caps Search results when Query.Limit is unset.
const DefaultSearchLimit = 50

// Query filters phrases. All set fields must match.
type Query struct {
	Keyword string   // case-insensitive substring of native, target, reading or tags
	Tags    []string // every tag must be present
	// Class matches on Main, and on Sub when it is set.
	Class        *Classification
	MeaningGroup string
	Limit        int
}

// Repository is the phrase store consumed by the picker and the CLI.
type Repository interface {
	ListAll(ctx context.Context) ([]Phrase, error)
	Search(ctx context.Context, q Query) ([]Phrase, error)
	GetByID(ctx context.Context, id string) (Phrase, error)
}

// Matches reports whether p satisfies every filter of q except Limit.
func (q Query) Matches(p Phrase) bool {
	kw := strings.ToLower(strings.TrimSpace(q.Keyword))
	if kw != "" {
		hay := strings.ToLower(p.Native + " " + p.Target + " " + p.Reading + " " + strings.Join(p.Tags, " "))
		if !strings.Contains(hay, kw) {
			return false
		}
	}
	for _, t := range q.Tags {
		if !p.HasTag(t) {
			return false
		}
	}
	if c := q.Class; c != nil {
		if p.Class == nil || p.Class.Main != c.Main || (c.Sub != "" && p.Class.Sub != c.Sub) {
			return false
		}
	}
	if q.MeaningGroup != "" && p.MeaningGroup != q.MeaningGroup {
		return false
	}
	return true
}

// MemoryRepository serves a fixed phrase list.
type MemoryRepository struct {
	phrases []Phrase
}

// NewMemoryRepository wraps phrases. The slice is copied.
func NewMemoryRepository(phrases []Phrase) *MemoryRepository {
	return &MemoryRepository{phrases: append([]Phrase(nil), phrases...)}
}

func (r *MemoryRepository) ListAll(ctx context.Context) ([]Phrase, error) {
	return append([]Phrase(nil), r.phrases...), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (Phrase, error) {
	for _, p := range r.phrases {
		if p.ID == id {
			return p, nil
		}
	}
	return Phrase{}, ErrNotFound
}

// Search returns all matches; the limit is applied by the package-level Search.
func (r *MemoryRepository) Search(ctx context.Context, q Query) ([]Phrase, error) {
	var out []Phrase
	for _, p := range r.phrases {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Search trims the keyword, queries repo and applies the result limit
// (DefaultSearchLimit when q.Limit <= 0).
func Search(ctx context.Context, repo Repository, q Query) ([]Phrase, error) {
	q.Keyword = strings.TrimSpace(q.Keyword)
	res, err := repo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// Random returns a uniformly chosen match of q, or nil when nothing matches.
func Random(ctx context.Context, repo Repository, q Query, rng *rand.Rand) (*Phrase, error) {
	q.Limit = 0
	list, err := repo.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	p := list[rng.Intn(len(list))]
	return &p, nil
}
