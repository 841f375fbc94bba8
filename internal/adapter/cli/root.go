package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/usecase/anchor"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ThreadManager defines the operations the CLI drives.
type ThreadManager interface {
	AddThread(ctx context.Context, input anchor.AddThreadInput) (domain.Thread, error)
	ListThreads(ctx context.Context, filter anchor.ThreadFilter) ([]anchor.ThreadSummary, error)
	GetThread(ctx context.Context, threadID string) (domain.Thread, []domain.Comment, error)
	Comment(ctx context.Context, threadID, author, body string) (domain.Comment, error)
	Resolve(ctx context.Context, threadID string) (domain.Thread, error)
	Reopen(ctx context.Context, threadID string) (domain.Thread, error)
	Remove(ctx context.Context, threadID string) error
	SyncThreads(ctx context.Context, input anchor.SyncInput) (anchor.SyncResult, error)
}

// Arguments encapsulates IO streams injected from the host process.
type Arguments struct {
	InReader  io.Reader
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Manager       ThreadManager
	Args          Arguments
	DefaultRepo   string
	DefaultOutput string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "anchor",
		Short: "Keep code review threads attached to moving code",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	inReader := deps.Args.InReader
	if inReader == nil {
		inReader = os.Stdin
	}
	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetIn(inReader)
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(addCommand(deps.Manager, deps.DefaultRepo))
	root.AddCommand(listCommand(deps.Manager, deps.DefaultRepo))
	root.AddCommand(showCommand(deps.Manager))
	root.AddCommand(commentCommand(deps.Manager))
	root.AddCommand(resolveCommand(deps.Manager))
	root.AddCommand(reopenCommand(deps.Manager))
	root.AddCommand(rmCommand(deps.Manager))
	root.AddCommand(syncCommand(deps.Manager, deps.DefaultRepo, deps.DefaultOutput))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func addCommand(manager ThreadManager, defaultRepo string) *cobra.Command {
	var repo string
	var lines string
	var ref string
	var title string
	var message string
	var working bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Start a thread anchored to a line range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseLineRange(lines)
			if err != nil {
				return err
			}

			anchorRef := ref
			if working {
				anchorRef = domain.WorkingRevision
			}

			thread, err := manager.AddThread(cmd.Context(), anchor.AddThreadInput{
				Repo:  repo,
				Path:  args[0],
				Start: start,
				End:   end,
				Ref:   anchorRef,
				Title: title,
				Body:  message,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created thread %s at %s:%s (%s)\n",
				shortID(thread.ID), thread.Path, thread.Anchor.String(), domain.ShortRevision(thread.AnchorRevision))
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", defaultRepo, "Repository name")
	cmd.Flags().StringVar(&lines, "lines", "", "Line range, e.g. 12 or 12-15 (required)")
	cmd.Flags().StringVar(&ref, "ref", "HEAD", "Revision the range refers to")
	cmd.Flags().BoolVar(&working, "working", false, "Anchor to the live working content instead of a committed revision")
	cmd.Flags().StringVar(&title, "title", "", "Thread title")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Opening comment body")
	_ = cmd.MarkFlagRequired("lines")

	return cmd
}

func listCommand(manager ThreadManager, defaultRepo string) *cobra.Command {
	var repo string
	var path string
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads with their last known positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := anchor.ThreadFilter{Repo: repo, Path: path}
			if state != "" {
				threadState := domain.ThreadState(state)
				if !threadState.IsValid() {
					return fmt.Errorf("unknown state %q (want open or resolved)", state)
				}
				filter.State = threadState
			}

			summaries, err := manager.ListThreads(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no threads")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, summary := range summaries {
				thread := summary.Thread
				position := fmt.Sprintf("%s:%s@%s", thread.Path, thread.Anchor.String(), domain.ShortRevision(thread.AnchorRevision))
				display := "unsynced"
				if summary.LastSync != nil {
					if summary.LastSync.Display != nil {
						display = fmt.Sprintf("now %s:%s", thread.Path, summary.LastSync.Display.String())
					} else {
						display = string(summary.LastSync.Outcome)
					}
				}
				title := thread.Title
				if title == "" {
					title = "(untitled)"
				}
				_, _ = fmt.Fprintf(out, "%s  [%s]  %s  %s  (%s, %d comments)\n",
					shortID(thread.ID), thread.State, position, title, display, summary.CommentCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", defaultRepo, "Repository name")
	cmd.Flags().StringVar(&path, "path", "", "Only threads on this file")
	cmd.Flags().StringVar(&state, "state", "", "Only threads in this state (open or resolved)")

	return cmd
}

func showCommand(manager ThreadManager) *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show a thread and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, comments, err := manager.GetThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			title := thread.Title
			if title == "" {
				title = "(untitled)"
			}
			_, _ = fmt.Fprintf(out, "thread %s [%s]\n", thread.ID, thread.State)
			_, _ = fmt.Fprintf(out, "  %s\n", title)
			_, _ = fmt.Fprintf(out, "  anchored at %s:%s (%s)\n", thread.Path, thread.Anchor.String(), domain.ShortRevision(thread.AnchorRevision))
			for _, comment := range comments {
				author := comment.Author
				if author == "" {
					author = "anonymous"
				}
				_, _ = fmt.Fprintf(out, "\n  %s (%s):\n    %s\n",
					author, comment.CreatedAt.Format("2006-01-02 15:04"), comment.Body)
			}
			return nil
		},
	}
}

func commentCommand(manager ThreadManager) *cobra.Command {
	var message string
	var author string

	cmd := &cobra.Command{
		Use:   "comment <thread-id>",
		Short: "Add a comment to a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comment, err := manager.Comment(cmd.Context(), args[0], author, message)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added comment %s\n", shortID(comment.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Comment body (required)")
	cmd.Flags().StringVar(&author, "author", "", "Comment author")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func resolveCommand(manager ThreadManager) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <thread-id>",
		Short: "Mark a thread resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := manager.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "resolved thread %s\n", shortID(thread.ID))
			return nil
		},
	}
}

func reopenCommand(manager ThreadManager) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <thread-id>",
		Short: "Reopen a resolved thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			thread, err := manager.Reopen(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reopened thread %s\n", shortID(thread.ID))
			return nil
		},
	}
}

func rmCommand(manager ThreadManager) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <thread-id>",
		Short: "Delete a thread and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && IsInteractive() {
				ok, err := confirm(cmd, fmt.Sprintf("delete thread %s and all its comments? [y/N] ", shortID(args[0])))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			if err := manager.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted thread %s\n", shortID(args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without confirmation")

	return cmd
}

func syncCommand(manager ThreadManager, defaultRepo, defaultOutput string) *cobra.Command {
	var repo string
	var target string
	var working bool
	var markdownDir string
	var jsonDir string

	cmd := &cobra.Command{
		Use:   "sync [target]",
		Short: "Recompute thread positions against a target revision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			if working {
				target = domain.WorkingRevision
			}
			if target == "" {
				target = "HEAD"
			}

			result, err := manager.SyncThreads(cmd.Context(), anchor.SyncInput{
				Repo:        repo,
				TargetRef:   target,
				MarkdownDir: markdownDir,
				JSONDir:     jsonDir,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := result.Report
			_, _ = fmt.Fprintf(out, "synced %d threads against %s: %d placed, %d unresolvable, %d failed\n",
				len(report.Entries), domain.ShortRevision(report.TargetRevision),
				report.ResolvedCount(), report.UnresolvableCount(), report.FailedCount())

			for _, entry := range report.Entries {
				switch {
				case entry.Display != nil:
					_, _ = fmt.Fprintf(out, "  %s  %s:%s -> %s:%s (%s)\n",
						shortID(entry.ThreadID), entry.Path, entry.Anchor.String(),
						entry.Path, entry.Display.String(), entry.Outcome)
				default:
					_, _ = fmt.Fprintf(out, "  %s  %s:%s -> %s\n",
						shortID(entry.ThreadID), entry.Path, entry.Anchor.String(), entry.Outcome)
				}
			}

			if result.MarkdownPath != "" {
				_, _ = fmt.Fprintf(out, "markdown report: %s\n", result.MarkdownPath)
			}
			if result.JSONPath != "" {
				_, _ = fmt.Fprintf(out, "json report: %s\n", result.JSONPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", defaultRepo, "Repository name")
	cmd.Flags().StringVar(&target, "target", "", "Target revision (overrides positional)")
	cmd.Flags().BoolVar(&working, "working", false, "Sync against the live working content")
	cmd.Flags().StringVar(&markdownDir, "markdown", "", "Write a Markdown report into this directory")
	cmd.Flags().StringVar(&jsonDir, "json", "", "Write a JSON report into this directory")
	if defaultOutput != "" {
		cmd.Flags().Lookup("markdown").Usage += fmt.Sprintf(" (configured default: %s)", defaultOutput)
	}

	return cmd
}

// parseLineRange parses "12" or "12-15" into a start and end line.
func parseLineRange(s string) (int, int, error) {
	if s == "" {
		return 0, 0, fmt.Errorf("line range is required")
	}

	parts := strings.SplitN(s, "-", 2)
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid line range %q", s)
	}

	end := start
	if len(parts) == 2 {
		end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid line range %q", s)
		}
	}

	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("invalid line range %q: want start >= 1 and end >= start", s)
	}
	return start, end, nil
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
