package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/tossa/pkg/db"
	"github.com/japaniel/tossa/pkg/harvest"
	"github.com/japaniel/tossa/pkg/ingest"
	"github.com/japaniel/tossa/pkg/mastery"
	"github.com/japaniel/tossa/pkg/phrase"
	"github.com/japaniel/tossa/pkg/reading"
	"github.com/japaniel/tossa/pkg/seed"
)

func (a *app) importPhrases(cmd *cobra.Command, phrases []phrase.Phrase) (int, error) {
	ctx := cmd.Context()
	conn, err := a.openDB(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	analyzer, err := reading.NewAnalyzer()
	if err != nil {
		a.logger.Warn("reading analyzer unavailable, importing without readings", zap.Error(err))
	}
	im := ingest.NewImporter(conn, nil)
	if analyzer != nil {
		im.Readings = analyzer
	}
	im.Workers = a.cfg.Import.Workers
	im.BatchSize = a.cfg.Import.BatchSize
	im.Logger = a.logger
	im.OnProgress = func(cur, total int) {
		a.logger.Info("import progress", zap.Int("current", cur), zap.Int("total", total))
	}
	return im.Import(ctx, phrases)
}

func (a *app) initCmd() *cobra.Command {
	var writeConfig bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and load the default phrases if it is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if writeConfig {
				if _, err := os.Stat(a.configPath); errors.Is(err, os.ErrNotExist) {
					if err := a.cfg.Save(a.configPath); err != nil {
						return err
					}
					fmt.Fprintf(out, "Config written to %s\n", a.configPath)
				}
			}

			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			n, err := db.CountPhrases(ctx, conn)
			conn.Close()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Database initialized at %s\n", a.cfg.Database.Path)
			if n > 0 {
				fmt.Fprintf(out, "%d phrases already present.\n", n)
				return nil
			}

			phrases, err := seed.Default()
			if err != nil {
				return err
			}
			count, err := a.importPhrases(cmd, phrases)
			if err != nil {
				return fmt.Errorf("import default phrases: %w", err)
			}
			fmt.Fprintf(out, "Imported %d default phrases.\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "also write the effective config if the file does not exist")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a YAML or JSON phrase file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phrases, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			count, err := a.importPhrases(cmd, phrases)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d phrases.\n", count)
			return nil
		},
	}
}

func (a *app) nextCmd() *cobra.Command {
	var newSession bool
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pick the next phrase of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			id := ""
			if !newSession {
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

			res, e, err := a.pick(ctx, conn, a.newPicker(conn), sessionID, log, stars)
			if isNoPhrases(err) {
				fmt.Fprintln(out, "nothing to practice")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "#%d %s  %s\n", e.Order+1, res.Phrase.ID, res.Phrase.Native)
			fmt.Fprintf(out, "   %s\n", res.Phrase.Target)
			fmt.Fprintf(out, "   %s: %s (%s)\n", res.Reason.Rule, res.Reason.Detail, res.Lane)
			return nil
		},
	}
	cmd.Flags().BoolVar(&newSession, "new-session", false, "start a new session instead of continuing the latest")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		tags   []string
		class  string
		group  string
		limit  int
		random bool
	)
	cmd := &cobra.Command{
		Use:   "search [KEYWORD]",
		Short: "Search phrases by keyword, tags, class or meaning group",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			q := phrase.Query{Tags: tags, Class: phrase.ParseClass(class), MeaningGroup: group, Limit: limit}
			if len(args) == 1 {
				q.Keyword = args[0]
			}
			repo := db.PhraseRepository{DB: conn}
			var found []phrase.Phrase
			if random {
				p, err := phrase.Random(ctx, repo, q, newMathRand(a.cfg.Picker.Seed))
				if err != nil {
					return err
				}
				if p != nil {
					found = append(found, *p)
				}
			} else if found, err = phrase.Search(ctx, repo, q); err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, p := range found {
				fmt.Fprintf(out, "%-8s %s / %s [%s]\n", p.ID, p.Native, p.Target, strings.Join(p.Tags, ", "))
			}
			if q.Class != nil && q.Class.Sub == "" && !random {
				all, err := repo.Search(ctx, phrase.Query{Class: q.Class})
				if err != nil {
					return err
				}
				for _, sc := range phrase.SubCounts(all, q.Class.Main) {
					fmt.Fprintf(out, "  %s/%s: %d\n", q.Class.Main, sc.Sub, sc.Count)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "required tag (repeatable)")
	cmd.Flags().StringVar(&class, "class", "", "classification MAIN or MAIN/SUB")
	cmd.Flags().StringVar(&group, "group", "", "meaning group id")
	cmd.Flags().IntVar(&limit, "limit", phrase.DefaultSearchLimit, "maximum number of results")
	cmd.Flags().BoolVar(&random, "random", false, "print one random match")
	return cmd
}

func (a *app) starsCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "stars",
		Short: "List or clear mastered phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if clear {
				n, err := db.ClearStars(ctx, conn)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d stars.\n", n)
				return nil
			}

			stars, err := db.LoadStars(ctx, conn)
			if err != nil {
				return err
			}
			if len(stars) == 0 {
				fmt.Fprintln(out, "no stars yet")
				return nil
			}
			recent, err := db.RecentPicks(ctx, conn, 500)
			if err != nil {
				return err
			}
			for _, id := range stars.Sorted() {
				p, err := db.GetPhrase(ctx, conn, id)
				if errors.Is(err, phrase.ErrNotFound) {
					fmt.Fprintf(out, "★ %s (removed)\n", id)
					continue
				}
				if err != nil {
					return err
				}
				line := fmt.Sprintf("★ %-8s %s / %s", p.ID, p.Native, p.Target)
				if mastery.PracticeStar(recent, id, stars) {
					line += "  (last 3 clean)"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "remove every star")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var sessionID string
	var listSessions bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the picks of a session (default: the latest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			conn, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if listSessions {
				sessions, err := db.ListSessions(ctx, conn, 20)
				if err != nil {
					return err
				}
				for _, s := range sessions {
					fmt.Fprintf(out, "%s  %s  %d picks, %d clean\n",
						s.ID, s.StartedAt.Local().Format(time.DateTime), s.Picks, s.Clean)
				}
				return nil
			}

			if sessionID == "" {
				if sessionID, err = db.LatestSession(ctx, conn); err != nil {
					return err
				}
			}
			if sessionID == "" {
				fmt.Fprintln(out, "no history")
				return nil
			}
			entries, err := db.LoadSession(ctx, conn, sessionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "session %s\n", sessionID)
			for _, e := range entries {
				var flags []string
				if e.Revealed {
					flags = append(flags, fmt.Sprintf("revealed@%s", e.RevealAfter))
				}
				if e.Timeout {
					flags = append(flags, "timeout")
				}
				fmt.Fprintf(out, "%3d %-8s %-10s occ=%d run=%d %s %s\n",
					e.Order+1, e.PhraseID, e.PrimaryTag, e.TagOccurrenceOrder, e.ConsecutiveSameTag,
					e.Detail, strings.Join(flags, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id")
	cmd.Flags().BoolVar(&listSessions, "sessions", false, "list recent sessions instead")
	return cmd
}

func (a *app) harvestCmd() *cobra.Command {
	var opts harvest.Options
	var outPath string
	cmd := &cobra.Command{
		Use:   "harvest FILE.html",
		Short: "Draft phrases from a saved Japanese article",
		Long: `Extracts the article text of a saved HTML page, strips furigana and
writes draft phrases as YAML. Fill in each target before importing the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			article, err := harvest.Extract(f, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
			if err != nil {
				return err
			}

			h := harvest.Harvester{Logger: a.logger}
			if analyzer, err := reading.NewAnalyzer(); err == nil {
				h.Readings = analyzer
			} else {
				a.logger.Warn("reading analyzer unavailable", zap.Error(err))
			}
			drafts := h.Draft(article, opts)

			w := cmd.OutOrStdout()
			if outPath != "" {
				of, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer of.Close()
				w = of
			}
			if err := seed.Write(w, drafts); err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d drafts from %q to %s\n", len(drafts), article.Title, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "primary tag for every draft")
	cmd.Flags().StringVar(&opts.IDPrefix, "id-prefix", "h", "prefix of generated ids")
	cmd.Flags().IntVar(&opts.MinRunes, "min", 4, "minimum characters per draft")
	cmd.Flags().IntVar(&opts.MaxRunes, "max", 30, "maximum characters per draft")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of drafts (0 = all)")
	cmd.Flags().BoolVar(&opts.Quotes, "quotes", false, "only draft text inside 「」")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write YAML to this file instead of stdout")
	return cmd
}
