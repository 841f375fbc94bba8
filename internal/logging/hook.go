package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts the repository and file path from context and adds
// them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if repo := GetRepo(ctx); repo != "" {
		e.Str("repo", repo)
	}

	if path := GetPath(ctx); path != "" {
		e.Str("path", path)
	}
}
