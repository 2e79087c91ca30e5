package dedup

import (
	"path"
	"sort"
	"strings"
)

// Manifest, lockfile and build-config basenames treated as critical:
// two tasks touching any of these are very likely to collide.
var criticalBasenames = map[string]bool{
	"package.json":       true,
	"package-lock.json":  true,
	"yarn.lock":          true,
	"pnpm-lock.yaml":     true,
	"go.mod":             true,
	"go.sum":             true,
	"cargo.toml":         true,
	"cargo.lock":         true,
	"requirements.txt":   true,
	"pyproject.toml":     true,
	"tsconfig.json":      true,
	"jest.config.js":     true,
	"vite.config.ts":     true,
	"webpack.config.js":  true,
	"makefile":           true,
	"dockerfile":         true,
	"docker-compose.yml": true,
	".env":               true,
}

// Directories whose contents are treated as critical wherever they
// appear in the tree.
var criticalDirectories = map[string]bool{
	".github":    true,
	"migrations": true,
}

// criticalSet is the merged built-in + configured critical matcher.
type criticalSet struct {
	basenames   map[string]bool
	directories map[string]bool
}

func newCriticalSet(extraFiles, extraDirs []string) criticalSet {
	s := criticalSet{
		basenames:   make(map[string]bool, len(criticalBasenames)+len(extraFiles)),
		directories: make(map[string]bool, len(criticalDirectories)+len(extraDirs)),
	}
	for name := range criticalBasenames {
		s.basenames[name] = true
	}
	for dir := range criticalDirectories {
		s.directories[dir] = true
	}
	for _, name := range extraFiles {
		if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
			s.basenames[n] = true
		}
	}
	for _, dir := range extraDirs {
		if d := NormalizePath(dir); d != "" {
			s.directories[d] = true
		}
	}
	return s
}

// matches reports whether a normalized path is critical: its basename
// is a critical file, or any directory segment is a critical directory.
func (s criticalSet) matches(normalized string) bool {
	if normalized == "" {
		return false
	}
	if s.basenames[path.Base(normalized)] {
		return true
	}
	for _, segment := range strings.Split(path.Dir(normalized), "/") {
		if s.directories[segment] {
			return true
		}
	}
	return false
}

// filter returns the critical subset of already-normalized paths,
// deduplicated and sorted for stable output.
func (s criticalSet) filter(normalized []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range normalized {
		if s.matches(p) && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
