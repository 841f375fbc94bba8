package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/bkyoung/comment-anchor/internal/adapter/buffer"
	"github.com/bkyoung/comment-anchor/internal/adapter/cli"
	"github.com/bkyoung/comment-anchor/internal/adapter/git"
	"github.com/bkyoung/comment-anchor/internal/adapter/output/json"
	"github.com/bkyoung/comment-anchor/internal/adapter/output/markdown"
	storeAdapter "github.com/bkyoung/comment-anchor/internal/adapter/store"
	"github.com/bkyoung/comment-anchor/internal/adapter/store/sqlite"
	"github.com/bkyoung/comment-anchor/internal/adapter/workspace"
	"github.com/bkyoung/comment-anchor/internal/config"
	"github.com/bkyoung/comment-anchor/internal/logging"
	"github.com/bkyoung/comment-anchor/internal/usecase/anchor"
	"github.com/bkyoung/comment-anchor/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigFile:  os.Getenv("ANCHOR_CONFIG"),
		ConfigPaths: defaultConfigPaths(),
		FileName:    "anchor",
		EnvPrefix:   "ANCHOR",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, closeLog, err := buildLogger(cfg.Observability.Logging)
	if err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}
	defer closeLog()
	zlog.Logger = logger

	repoDir := cfg.Git.RepositoryDir
	if repoDir == "" {
		repoDir = "."
	}
	workspaceRoot := cfg.Workspace.Root
	if workspaceRoot == "" {
		workspaceRoot = repoDir
	}

	retry := buildRetryConfig(cfg.Sync)
	gitEngine := git.NewEngine(repoDir, retry)
	documents := workspace.NewProvider(workspaceRoot)
	workingDiffer := buffer.NewDiffer(gitEngine, documents)
	diffSource := anchor.NewRoutedDiffSource(gitEngine, workingDiffer)

	var metrics anchor.Metrics = anchor.NopMetrics{}
	if cfg.Observability.Metrics.Enabled {
		metrics = anchor.NewDefaultMetrics()
	}

	cache := anchor.NewRevisionDiffCache(diffSource, metrics, logging.Component("diffcache"))
	synchronizer := anchor.NewSynchronizer(anchor.SynchronizerDeps{
		Cache:    cache,
		Resolver: gitEngine,
		Metrics:  metrics,
		Logger:   logging.Component("synchronizer"),
	})

	threadStore, closeStore, err := buildStore(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("store setup failed: %w", err)
	}
	defer closeStore()

	// Timestamp function for deterministic output file naming
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}

	service := anchor.NewService(anchor.ServiceDeps{
		Store:        threadStore,
		Resolver:     gitEngine,
		Synchronizer: synchronizer,
		Markdown:     markdown.NewWriter(nowFunc),
		JSON:         json.NewWriter(nowFunc),
		Logger:       logging.Component("service"),
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Manager:       service,
		DefaultRepo:   repositoryName(repoDir),
		DefaultOutput: cfg.Output.Directory,
		Version:       version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func buildLogger(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	if !cfg.Enabled {
		return zerolog.Nop(), func() {}, nil
	}
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return logging.New(level, cfg.File)
}

func buildRetryConfig(cfg config.SyncConfig) git.RetryConfig {
	retry := git.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	retry.InitialBackoff, retry.MaxBackoff = cfg.RetryDurations(retry.InitialBackoff, retry.MaxBackoff)
	if cfg.BackoffMultiplier >= 1 {
		retry.Multiplier = cfg.BackoffMultiplier
	}
	return retry
}

// buildStore opens the SQLite store. When persistence is disabled the
// store runs in memory and threads last only for the process lifetime.
func buildStore(cfg config.StoreConfig, logger zerolog.Logger) (anchor.ThreadStore, func(), error) {
	path := ":memory:"
	if cfg.Enabled {
		storeDir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store directory: %w", err)
		}
		path = cfg.Path
	} else {
		logger.Warn().Msg("store disabled, threads will not survive this process")
	}

	sqliteStore, err := sqlite.NewStore(path)
	if err != nil {
		return nil, nil, err
	}
	return storeAdapter.NewBridge(sqliteStore), func() { _ = sqliteStore.Close() }, nil
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "anchor"))
	}
	return paths
}

// Compile-time interface compliance checks
var _ anchor.DiffSource = (*git.Engine)(nil)
var _ anchor.DiffSource = (*buffer.Differ)(nil)
var _ anchor.RevisionResolver = (*git.Engine)(nil)
var _ anchor.DocumentProvider = (*workspace.Provider)(nil)
var _ anchor.ThreadStore = (*storeAdapter.Bridge)(nil)
var _ anchor.MarkdownWriter = (*markdown.Writer)(nil)
var _ anchor.JSONWriter = (*json.Writer)(nil)
var _ buffer.ContentSource = (*git.Engine)(nil)
var _ buffer.Documents = (*workspace.Provider)(nil)
var _ cli.ThreadManager = (*anchor.Service)(nil)
