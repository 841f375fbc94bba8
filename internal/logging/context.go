package logging

import "context"

type contextKey string

const (
	repoKey contextKey = "repo"
	pathKey contextKey = "path"
)

// WithRepo adds a repository identifier to the context.
func WithRepo(ctx context.Context, repo string) context.Context {
	return context.WithValue(ctx, repoKey, repo)
}

// WithPath adds a file path to the context.
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pathKey, path)
}

// GetRepo retrieves the repository identifier from the context.
// Returns empty string if not present.
func GetRepo(ctx context.Context) string {
	if repo, ok := ctx.Value(repoKey).(string); ok {
		return repo
	}
	return ""
}

// GetPath retrieves the file path from the context.
// Returns empty string if not present.
func GetPath(ctx context.Context) string {
	if path, ok := ctx.Value(pathKey).(string); ok {
		return path
	}
	return ""
}
