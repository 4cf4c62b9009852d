// Command tossa picks Japanese phrases for recall practice.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/japaniel/tossa/pkg/config"
	"github.com/japaniel/tossa/pkg/db"
	"github.com/japaniel/tossa/pkg/history"
	"github.com/japaniel/tossa/pkg/phrase"
	"github.com/japaniel/tossa/pkg/picker"
)

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every command.
type app struct {
	configPath string
	dbPath     string
	seed       int64
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tossa",
		Short:         "Phrase picker for spoken Japanese recall practice",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to SQLite database (overrides config)")
	root.PersistentFlags().Int64Var(&a.seed, "seed", 0, "random seed (overrides config, 0 = clock)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.initCmd(),
		a.importCmd(),
		a.nextCmd(),
		a.practiceCmd(),
		a.searchCmd(),
		a.starsCmd(),
		a.historyCmd(),
		a.harvestCmd(),
	)
	return root
}

// setup loads the config and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.seed != 0 {
		cfg.Picker.Seed = a.seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	a.logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	conn, err := db.Open(ctx, a.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("database opened", zap.String("path", a.cfg.Database.Path))
	return conn, nil
}

func (a *app) newPicker(conn *sql.DB) *picker.Picker {
	seed := a.cfg.Picker.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return picker.New(db.PhraseRepository{DB: conn},
		picker.WithConfig(a.cfg.PickerConfig()),
		picker.WithSource(picker.NewRandSource(seed)),
		picker.WithLogger(a.logger))
}

// session returns the id and log of an existing session, or of a new one when
// id is empty.
func (a *app) session(ctx context.Context, conn *sql.DB, id string) (string, *history.Log, error) {
	if id == "" {
		id = uuid.NewString()
		a.logger.Info("new session", zap.String("session", id))
		return id, history.NewLog(nil), nil
	}
	entries, err := db.LoadSession(ctx, conn, id)
	if err != nil {
		return "", nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return id, history.NewLog(entries), nil
}

// pick runs the picker once and records the pick in log and the database.
func (a *app) pick(ctx context.Context, conn *sql.DB, pk *picker.Picker, sessionID string, log *history.Log, mastered phrase.IDSet) (picker.Result, history.Entry, error) {
	var lastID string
	if last, ok := log.Last(); ok {
		lastID = last.PhraseID
	}
	res, err := pk.Next(ctx, lastID, log.Entries(), mastered)
	if err != nil {
		return picker.Result{}, history.Entry{}, err
	}
	e := log.Append(sessionID, res.Phrase, res.Reason.Rule, res.Reason.Detail)
	if err := db.AppendPick(ctx, conn, e); err != nil {
		return picker.Result{}, history.Entry{}, err
	}
	return res, e, nil
}

func isNoPhrases(err error) bool { return errors.Is(err, picker.ErrNoPhrases) }
