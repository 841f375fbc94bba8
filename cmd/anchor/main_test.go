package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bkyoung/comment-anchor/internal/config"
	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/usecase/anchor"
)

func TestBuildRetryConfig(t *testing.T) {
	tests := []struct {
		name           string
		cfg            config.SyncConfig
		wantRetries    int
		wantInitial    time.Duration
		wantMax        time.Duration
		wantMultiplier float64
	}{
		{
			name:           "empty config keeps defaults",
			cfg:            config.SyncConfig{},
			wantRetries:    3,
			wantInitial:    500 * time.Millisecond,
			wantMax:        8 * time.Second,
			wantMultiplier: 2.0,
		},
		{
			name: "explicit values override defaults",
			cfg: config.SyncConfig{
				MaxRetries:        5,
				InitialBackoff:    "250ms",
				MaxBackoff:        "4s",
				BackoffMultiplier: 3.0,
			},
			wantRetries:    5,
			wantInitial:    250 * time.Millisecond,
			wantMax:        4 * time.Second,
			wantMultiplier: 3.0,
		},
		{
			name: "multiplier below one is ignored",
			cfg: config.SyncConfig{
				BackoffMultiplier: 0.5,
			},
			wantRetries:    3,
			wantInitial:    500 * time.Millisecond,
			wantMax:        8 * time.Second,
			wantMultiplier: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildRetryConfig(tt.cfg)

			if got.MaxRetries != tt.wantRetries {
				t.Errorf("MaxRetries = %d, want %d", got.MaxRetries, tt.wantRetries)
			}
			if got.InitialBackoff != tt.wantInitial {
				t.Errorf("InitialBackoff = %s, want %s", got.InitialBackoff, tt.wantInitial)
			}
			if got.MaxBackoff != tt.wantMax {
				t.Errorf("MaxBackoff = %s, want %s", got.MaxBackoff, tt.wantMax)
			}
			if got.Multiplier != tt.wantMultiplier {
				t.Errorf("Multiplier = %f, want %f", got.Multiplier, tt.wantMultiplier)
			}
		})
	}
}

func TestRepositoryName(t *testing.T) {
	tests := []struct {
		name    string
		repoDir string
		want    string
	}{
		{name: "relative path uses base name", repoDir: "some/nested/project", want: "project"},
		{name: "absolute path uses base name", repoDir: "/var/src/widgets", want: "widgets"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repositoryName(tt.repoDir); got != tt.want {
				t.Errorf("repositoryName(%q) = %q, want %q", tt.repoDir, got, tt.want)
			}
		})
	}
}

func TestBuildLoggerDisabled(t *testing.T) {
	logger, closeLog, err := buildLogger(config.LoggingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("buildLogger() error = %v", err)
	}
	defer closeLog()

	if logger.GetLevel() != zerolog.Disabled {
		t.Errorf("expected disabled logger, got level %s", logger.GetLevel())
	}
}

func TestBuildStoreDisabledRunsInMemory(t *testing.T) {
	threadStore, closeStore, err := buildStore(config.StoreConfig{Enabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildStore() error = %v", err)
	}
	defer closeStore()

	ctx := context.Background()
	thread, err := domain.NewThread(domain.ThreadInput{
		Repo:           "widgets",
		Path:           "main.go",
		Anchor:         domain.NewRange(3, 5),
		AnchorRevision: "abc123",
		Title:          "check error handling",
	})
	if err != nil {
		t.Fatalf("NewThread() error = %v", err)
	}
	if err := threadStore.SaveThread(ctx, thread); err != nil {
		t.Fatalf("SaveThread() error = %v", err)
	}

	got, err := threadStore.GetThread(ctx, thread.ID)
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if got.Title != thread.Title {
		t.Errorf("Title = %q, want %q", got.Title, thread.Title)
	}
}

func TestBuildStoreEnabledCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "threads.db")

	threadStore, closeStore, err := buildStore(config.StoreConfig{Enabled: true, Path: dbPath}, zerolog.Nop())
	if err != nil {
		t.Fatalf("buildStore() error = %v", err)
	}
	defer closeStore()

	threads, err := threadStore.ListThreads(context.Background(), anchor.ThreadFilter{})
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(threads) != 0 {
		t.Errorf("expected empty store, got %d threads", len(threads))
	}
}
