package ldraw

import (
	"path"
	"regexp"
	"strings"
)

// digitPrefix matches file names beginning with three digits, the
// LDraw convention for an officially numbered part (e.g. "3001.dat").
var digitPrefix = regexp.MustCompile(`^\d{3}`)

// CandidatePaths returns the search path for resolving a sub-file
// reference named name (the referrer is accepted for diagnostics only;
// LDraw names are resolved against fixed library roots, never
// relative to the referencing file). The order is significant: the
// first candidate whose fetch succeeds wins, and callers should not
// continue searching past the first success.
//
// This is the canonical table (resolved Open Question), mirroring the
// most-recent file-loader generation: names are classified by prefix
// or suffix into one of the library's three roots, falling back to
// trying all three (primitives, then parts, then models) when nothing
// matches.
//
//	s\...          -> ldraw/parts/
//	8\... or 48\... -> ldraw/p/
//	...ldr or .mpd  -> ldraw/models/
//	^\d\d\d...      -> ldraw/parts/
//	otherwise       -> ldraw/p/, ldraw/parts/, ldraw/models/
func CandidatePaths(referrer, name string) []string {
	normalized := strings.ReplaceAll(name, "\\", "/")
	lower := strings.ToLower(normalized)

	switch {
	case strings.HasPrefix(normalized, "s/"):
		return []string{path.Join("ldraw", "parts", normalized)}
	case strings.HasPrefix(normalized, "8/"), strings.HasPrefix(normalized, "48/"):
		return []string{path.Join("ldraw", "p", normalized)}
	case strings.HasSuffix(lower, ".ldr"), strings.HasSuffix(lower, ".mpd"):
		return []string{path.Join("ldraw", "models", normalized)}
	case digitPrefix.MatchString(normalized):
		return []string{path.Join("ldraw", "parts", normalized)}
	default:
		return []string{
			path.Join("ldraw", "p", normalized),
			path.Join("ldraw", "parts", normalized),
			path.Join("ldraw", "models", normalized),
		}
	}
}
