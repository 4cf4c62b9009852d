package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/tossa/pkg/answer"
	"github.com/japaniel/tossa/pkg/db"
	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/mastery"
	"github.com/japaniel/tossa/pkg/reading"
)

func newMathRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

type practiceOptions struct {
	rounds  int
	reverse bool
	resume  bool
}

func (a *app) practiceCmd() *cobra.Command {
	var opts practiceOptions
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Interactive recall practice",
		Long: `Shows a phrase and waits for the answer. Type the translation,
or an empty line or "?" to reveal it. Answers after the time limit count as a timeout,
and the next phrase waits for enter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.practice(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.rounds, "rounds", "n", 10, "number of phrases")
	cmd.Flags().BoolVar(&opts.reverse, "reverse", false, "show the English text and answer in Japanese")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "continue the latest session")
	return cmd
}

// readLines feeds input lines to a channel until EOF or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (a *app) practice(ctx context.Context, in io.Reader, out io.Writer, opts practiceOptions) error {
	conn, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	id := ""
	if opts.resume {
		if id, err = db.LatestSession(ctx, conn); err != nil {
			return err
		}
	}
	sessionID, log, err := a.session(ctx, conn, id)
	if err != nil {
		return err
	}
	stars, err := db.LoadStars(ctx, conn)
	if err != nil {
		return err
	}
	tracker := mastery.NewTracker(stars, a.cfg.Practice.StarStreak)

	matcher := answer.Matcher{}
	if opts.reverse {
		if analyzer, err := reading.NewAnalyzer(); err == nil {
			matcher.Readings = analyzer
		} else {
			a.logger.Warn("reading analyzer unavailable", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)
	pk := a.newPicker(conn)
	limit := a.cfg.GetAnswerTimeLimit()
	tally := map[mastery.Outcome]int{}

rounds:
	for round := 1; round <= opts.rounds; round++ {
		res, e, err := a.pick(ctx, conn, pk, sessionID, log, tracker.Stars())
		if isNoPhrases(err) {
			fmt.Fprintln(out, "nothing to practice")
			return nil
		}
		if err != nil {
			return err
		}

		prompt, expected := res.Phrase.Native, res.Phrase.Target
		if opts.reverse {
			prompt, expected = expected, prompt
		}
		mark := ""
		if tracker.Starred(res.Phrase.ID) {
			mark = " ★"
		}
		fmt.Fprintf(out, "[%d/%d] %s%s  (%s)\n> ", round, opts.rounds, prompt, mark, e.PrimaryTag)

		start := time.Now()
		timer := time.NewTimer(limit)
		var (
			line    string
			ok      bool
			expired bool
		)
		select {
		case line, ok = <-lines:
		case <-timer.C:
			expired = true
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		timer.Stop()
		elapsed := time.Since(start)
		if !ok && !expired {
			fmt.Fprintln(out)
			break rounds
		}

		outcome := a.judge(log, matcher, line, expected, opts.reverse, elapsed, limit, expired)
		tally[outcome]++
		changed := tracker.Record(res.Phrase.ID, outcome)
		switch outcome {
		case mastery.Correct:
			if tracker.Starred(res.Phrase.ID) && !changed {
				fmt.Fprintf(out, "OK  %s\n", expected)
			} else {
				fmt.Fprintf(out, "OK  %s  (streak %d/%d)\n", expected,
					tracker.Streak(res.Phrase.ID), tracker.StreakToStar())
			}
		case mastery.Incorrect:
			fmt.Fprintf(out, "NG  %s\n", expected)
		case mastery.Revealed:
			fmt.Fprintf(out, "--  %s\n", expected)
		case mastery.TimedOut:
			if expired {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "time up  %s\n", expected)
		}

		if last, ok := log.Last(); ok {
			if err := db.UpdatePickOutcome(ctx, conn, last); err != nil {
				return err
			}
		}
		if changed {
			if err := a.persistStar(ctx, conn, tracker, res.Phrase.ID); err != nil {
				return err
			}
			if tracker.Starred(res.Phrase.ID) {
				fmt.Fprintf(out, "★ %s mastered\n", res.Phrase.ID)
			} else {
				fmt.Fprintf(out, "☆ %s lost its star\n", res.Phrase.ID)
			}
		}

		// The line typed too late belongs to this round; consume it before
		// the next prompt.
		if expired && round < opts.rounds {
			fmt.Fprint(out, "(enter to continue)\n")
			select {
			case _, ok := <-lines:
				if !ok {
					break rounds
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	fmt.Fprintf(out, "session %s: %d ok, %d ng, %d revealed, %d timeout\n", sessionID,
		tally[mastery.Correct], tally[mastery.Incorrect], tally[mastery.Revealed], tally[mastery.TimedOut])
	return nil
}

// judge classifies one answer and marks the last log entry accordingly.
func (a *app) judge(log *history.Log, m answer.Matcher, line, expected string, japanese bool, elapsed, limit time.Duration, expired bool) mastery.Outcome {
	given := strings.TrimSpace(line)
	switch {
	case expired || elapsed > limit:
		log.MarkTimeout(elapsed)
		return mastery.TimedOut
	case given == "" || given == "?":
		log.MarkRevealed(elapsed)
		return mastery.Revealed
	}
	log.MarkAnswered(elapsed)
	if m.Match(given, expected, japanese) {
		return mastery.Correct
	}
	return mastery.Incorrect
}

func (a *app) persistStar(ctx context.Context, conn *sql.DB, t *mastery.Tracker, id string) error {
	if t.Starred(id) {
		return db.AddStar(ctx, conn, id, time.Now())
	}
	return db.RemoveStar(ctx, conn, id)
}

