package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wagnerlima/knowledgeflow/internal/ai"
	"github.com/wagnerlima/knowledgeflow/internal/config"
	"github.com/wagnerlima/knowledgeflow/internal/logging"
	"github.com/wagnerlima/knowledgeflow/internal/storage"
)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "kflow/skip-setup"

// app carries global flags and the state built from them for one invocation.
type app struct {
	configPath string
	backend    string
	dataDir    string
	verbose    bool
	asJSON     bool

	cfg *config.Config
	log *zap.Logger
	// now overrides the store clock in tests.
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kflow",
		Short: "knowledgeflow - notes, tasks and the links between them",
		Long: `kflow keeps notes and tasks in a local SQLite database or a directory of
JSON files, links them into a graph, files them under categories and can
summarize them with a hosted language model.

Run "kflow serve" to expose the same operations as MCP tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ./.kflow/config.yaml, then ~/.kflow/config.yaml)")
	pf.StringVar(&a.backend, "backend", "", "Storage backend: sqlite or json")
	pf.StringVar(&a.dataDir, "data-dir", "", "Directory holding the store")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&a.asJSON, "json", false, "Print results as JSON")

	root.AddCommand(
		a.noteCmd(),
		a.taskCmd(),
		a.linkCmd(),
		a.categoryCmd(),
		a.searchCmd(),
		a.aiCmd(),
		a.serveCmd(),
		a.watchCmd(),
		a.repairCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backend") {
		cfg.Storage.Backend = a.backend
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Storage.DataDir = a.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Verbose:     a.verbose,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	policy, err := storage.ParseCorruptPolicy(a.cfg.Storage.CorruptPolicy)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Options{
		Backend:       a.cfg.Storage.Backend,
		DataDir:       a.cfg.Storage.DataDir,
		CorruptPolicy: policy,
		Logger:        a.log,
		Now:           a.now,
	})
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, s storage.Store) error) error {
	ctx := cmd.Context()
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// jsonStore opens the store and insists on the JSON backend.
func (a *app) jsonStore(cmd *cobra.Command, fn func(ctx context.Context, s *storage.JSONStore) error) error {
	if a.cfg.Storage.Backend != storage.BackendJSON {
		return fmt.Errorf("%s needs the json backend (configured: %s)", cmd.CommandPath(), a.cfg.Storage.Backend)
	}
	return a.withStore(cmd, func(ctx context.Context, s storage.Store) error {
		js, ok := s.(*storage.JSONStore)
		if !ok {
			return errors.New("store is not a JSON store")
		}
		return fn(ctx, js)
	})
}

func notFoundErr(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, storage.ErrNotFound)
}

var errNoProvider = errors.New("no AI provider configured (set ai.provider to openai or gemini)")

// agent builds the summarizer, or returns errNoProvider when AI is disabled.
func (a *app) agent(ctx context.Context) (*ai.Agent, error) {
	if a.cfg.AI.Provider == "" {
		return nil, errNoProvider
	}
	timeout, err := a.cfg.AI.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return ai.New(ctx, ai.Config{
		Provider:    a.cfg.AI.Provider,
		Model:       a.cfg.AI.Model,
		APIKey:      a.cfg.AI.APIKey,
		BaseURL:     a.cfg.AI.BaseURL,
		Timeout:     timeout,
		MaxWords:    a.cfg.AI.MaxWords,
		Concurrency: a.cfg.AI.Concurrency,
	}, a.log)
}

func (a *app) treeMode() (storage.TreeMode, error) {
	return storage.ParseTreeMode(a.cfg.Storage.TreeMode)
}

// emit prints v as JSON under --json and calls human otherwise.
func (a *app) emit(cmd *cobra.Command, v any, human func(p *printer)) error {
	if a.asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	p := newPrinter(cmd.OutOrStdout())
	human(p)
	return p.err
}

// say prints a one-line confirmation, or {"message": ...} under --json.
func (a *app) say(cmd *cobra.Command, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if a.asJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"message": msg})
	}
	_, err := io.WriteString(cmd.OutOrStdout(), msg+"\n")
	return err
}
