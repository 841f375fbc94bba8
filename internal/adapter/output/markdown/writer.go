package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/comment-anchor/internal/domain"
)

type clock func() string

// Writer renders sync reports into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Write persists a Markdown artifact to disk.
func (w *Writer) Write(ctx context.Context, artifact domain.MarkdownArtifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.md",
		sanitise(artifact.Repository),
		sanitise(artifact.TargetRef),
		w.now(),
	)
	path := filepath.Join(artifact.OutputDir, filename)

	content := buildContent(artifact)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildContent(artifact domain.MarkdownArtifact) string {
	var builder strings.Builder
	caser := cases.Title(language.English)
	report := artifact.Report

	builder.WriteString("# Thread Sync Report\n\n")
	builder.WriteString(fmt.Sprintf("- Repository: %s\n", artifact.Repository))
	builder.WriteString(fmt.Sprintf("- Target: %s (%s)\n", artifact.TargetRef, report.TargetRevision))
	builder.WriteString(fmt.Sprintf("- Synced: %s\n", report.SyncedAt.Format("2006-01-02 15:04:05 MST")))
	builder.WriteString(fmt.Sprintf("- Threads: %d placed, %d unresolvable, %d failed\n\n",
		report.ResolvedCount(),
		report.UnresolvableCount(),
		report.FailedCount(),
	))

	if len(report.Entries) == 0 {
		builder.WriteString("No threads to sync.\n")
		return builder.String()
	}

	builder.WriteString("## Threads\n\n")
	for _, entry := range report.Entries {
		title := entry.Title
		if title == "" {
			title = "(untitled)"
		}
		builder.WriteString(fmt.Sprintf("### %s (%s)\n", title, caser.String(string(entry.Outcome))))
		builder.WriteString(fmt.Sprintf("- Anchor: %s:%s at %s\n", entry.Path, entry.Anchor.String(), domain.ShortRevision(entry.AnchorRevision)))
		if entry.Display != nil {
			builder.WriteString(fmt.Sprintf("- Now at: %s:%s\n", entry.Path, entry.Display.String()))
		} else {
			builder.WriteString("- Now at: no position\n")
		}
		builder.WriteString(fmt.Sprintf("- State: %s\n", entry.State))
		if entry.Reason != "" {
			builder.WriteString(fmt.Sprintf("- Reason: %s\n", entry.Reason))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
