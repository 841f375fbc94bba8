// Package version exposes the build version stamped in at link time.
package version

// version is injected via -ldflags at build time (see magefile.go).
var version string

const devVersion = "v0.0.0-dev"

// Value returns the stamped build version, or a development placeholder
// when the binary was built without ldflags.
func Value() string {
	if version == "" {
		return devVersion
	}
	return version
}
