// Package picker chooses the next phrase to practice from a phrase pool and
// the learner's pick history.
//
// One call to Next runs the whole pipeline: bucket the pool by intent, pick an
// intent, split the pool into main and review lanes, maybe interrupt with a
// review pick, narrow the candidates with the recency rules and finally draw
// one phrase weighted by mastery. Nothing is cached between calls.
package picker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/phrase"
)

// ErrNoPhrases is returned when the phrase store is empty.
var ErrNoPhrases = errors.New("picker: no phrases available")

// Rule names the selection strategy in every Reason.
const Rule = "intent-bucket+recent-avoid"

const (
	DefaultReviewRate    = 0.10
	DefaultStarPenalty   = 0.4
	DefaultReviewMinSeen = 4
	DefaultReviewWindow  = 3
	DefaultAvoidWindow   = 2
)

// Store is the part of the phrase repository the picker needs.
type Store interface {
	ListAll(ctx context.Context) ([]phrase.Phrase, error)
}

// Config tunes the pipeline.
type Config struct {
	ReviewRate    float64 // probability of a review interrupt when one is allowed
	StarPenalty   float64 // sampling weight of mastered phrases
	ReviewMinSeen int     // tag occurrences before its phrases become review-eligible
	ReviewWindow  int     // entries whose tags block review eligibility
	AvoidWindow   int     // entries whose tags the main lane avoids
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		ReviewRate:    DefaultReviewRate,
		StarPenalty:   DefaultStarPenalty,
		ReviewMinSeen: DefaultReviewMinSeen,
		ReviewWindow:  DefaultReviewWindow,
		AvoidWindow:   DefaultAvoidWindow,
	}
}

// Reason explains a pick. Callers store it on the history entry they append.
type Reason struct {
	Rule   string
	Detail string
}

// Result is the outcome of Next.
type Result struct {
	Phrase phrase.Phrase
	Reason Reason
	Lane   Lane
	Intent phrase.Tag // the bucket drawn at the start of the pipeline
}

// Picker runs the selection pipeline. It is not safe for concurrent use
// because the random Source is not; callers serialize calls.
type Picker struct {
	store  Store
	cfg    Config
	rng    Source
	logger *zap.Logger
}

// Option configures a Picker.
type Option func(*Picker)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option { return func(p *Picker) { p.cfg = cfg } }

// WithSource injects the random source, e.g. a scripted one in tests.
func WithSource(src Source) Option { return func(p *Picker) { p.rng = src } }

// WithLogger sets the logger used for debug traces of each decision.
func WithLogger(l *zap.Logger) Option { return func(p *Picker) { p.logger = l } }

// New creates a Picker over store. Without WithSource it draws from a fixed seed.
func New(store Store, opts ...Option) *Picker {
	p := &Picker{store: store, cfg: DefaultConfig()}
	for _, o := range opts {
		o(p)
	}
	if p.rng == nil {
		p.rng = NewRandSource(0)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

func (p *Picker) sampler() Sampler {
	return Sampler{Penalty: p.cfg.StarPenalty, Rand: p.rng}
}

// Next picks the phrase to show after lastID. hist and mastered are read only.
func (p *Picker) Next(ctx context.Context, lastID string, hist []history.Entry, mastered phrase.IDSet) (Result, error) {
	pool, err := p.store.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list phrases: %w", err)
	}
	if len(pool) == 0 {
		return Result{}, ErrNoPhrases
	}

	intent, intentCands := bucketByIntent(pool).choose(p.rng, lastID)
	ln := classify(pool, hist, p.cfg.ReviewMinSeen, p.cfg.ReviewWindow)

	if p.reviewAllowed(ln, hist) && p.rng.Float64() < p.cfg.ReviewRate {
		cands := avoidID(lastID)(ln.review)
		picked, _ := p.sampler().Sample(cands, mastered)
		p.logger.Debug("review interrupt",
			zap.Stringer("intent", intent),
			zap.Int("review_lane", len(ln.review)),
			zap.String("phrase", picked.ID))
		return p.result(picked, intent, lastID, LaneReview), nil
	}

	recent := recentTags(hist, p.cfg.AvoidWindow)
	filters := []filter{avoidTags(recent), avoidID(lastID)}
	intentMain := keep(intentCands, func(ph phrase.Phrase) bool { return !ln.isReview(ph) })

	name, cands := firstNonEmpty(
		stage{name: "intent", source: intentMain, filters: filters},
		stage{name: "main", source: ln.main, filters: filters},
		stage{name: "pool", source: pool, filters: filters},
	)
	picked, _ := p.sampler().Sample(cands, mastered)
	p.logger.Debug("main pick",
		zap.Stringer("intent", intent),
		zap.String("stage", name),
		zap.Int("candidates", len(cands)),
		zap.String("phrase", picked.ID))
	return p.result(picked, intent, lastID, LaneMain), nil
}

// reviewAllowed gates the review interrupt: the lane must have phrases and the
// previous pick must not itself have been a review pick.
func (p *Picker) reviewAllowed(ln lanes, hist []history.Entry) bool {
	return len(ln.review) > 0 && !wasReviewPick(hist)
}

func (p *Picker) result(picked phrase.Phrase, intent phrase.Tag, lastID string, lane Lane) Result {
	return Result{
		Phrase: picked,
		Reason: buildReason(picked.PrimaryTag(), lastID != "", lane),
		Lane:   lane,
		Intent: intent,
	}
}

func buildReason(tag phrase.Tag, avoided bool, lane Lane) Reason {
	detail := fmt.Sprintf("picked from %q", tag.String())
	if avoided {
		detail += " avoiding last"
	}
	if lane == LaneReview {
		detail += " " + ReviewMarker
	}
	return Reason{Rule: Rule, Detail: detail}
}
