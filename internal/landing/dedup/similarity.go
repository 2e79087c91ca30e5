package dedup

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/forgeflow/autoland/internal/core/domain"
)

// SimilarityResult breaks down how alike two pieces of work are.
type SimilarityResult struct {
	Score                 float64  `json:"score"`
	TitleSimilarity       float64  `json:"title_similarity"`
	PathOverlap           float64  `json:"path_overlap"`
	OverlappingPaths      []string `json:"overlapping_paths,omitempty"`
	SharesCriticalFiles   bool     `json:"shares_critical_files"`
	CriticalFilesInCommon []string `json:"critical_files_in_common,omitempty"`
}

// Blend weights for the overall score. Titles carry the topic; path
// overlap reinforces it.
const (
	titleWeight = 0.7
	pathWeight  = 0.3
)

// minTokenLen drops trivially short tokens before comparing titles.
const minTokenLen = 3

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "these": true, "those": true, "are": true,
	"was": true, "were": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "will": true, "would": true, "should": true,
	"can": true, "could": true, "into": true, "onto": true, "via": true,
	"when": true, "where": true, "which": true, "while": true, "about": true,
	"after": true, "before": true, "between": true, "during": true,
	"under": true, "over": true, "some": true, "all": true, "any": true,
	"not": true, "its": true, "their": true, "our": true, "your": true,
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizePath canonicalizes a repo-relative path for comparison:
// lower-case, no leading "./", no repeated or trailing slashes.
func NormalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, "/")
	if p == "." || p == "/" {
		return ""
	}
	return p
}

func normalizePathSet(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		n := NormalizePath(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// titleTokens reduces a title to its significant token set.
func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range tokenSplit.Split(strings.ToLower(title), -1) {
		if len(tok) < minTokenLen || stopWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

// titleSimilarity is the overlap ratio of the two significant token
// sets. Two titles that reduce to nothing count as identical.
func titleSimilarity(a, b string) float64 {
	ta, tb := titleTokens(a), titleTokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for tok := range ta {
		if tb[tok] {
			common++
		}
	}
	union := len(ta) + len(tb) - common
	return float64(common) / float64(union)
}

// pathOverlap is intersection-over-union of two normalized path sets,
// returning the shared paths sorted for stable output.
func pathOverlap(a, b []string) (float64, []string) {
	if len(a) == 0 && len(b) == 0 {
		return 0, nil
	}

	setA := make(map[string]bool, len(a))
	for _, p := range a {
		setA[p] = true
	}

	var shared []string
	for _, p := range b {
		if setA[p] {
			shared = append(shared, p)
		}
	}
	sort.Strings(shared)

	union := len(setA)
	for _, p := range b {
		if !setA[p] {
			union++
		}
	}
	if union == 0 {
		return 0, nil
	}
	return float64(len(shared)) / float64(union), shared
}

// similarity scores two title+path-set pairs.
func (d *Deduplicator) similarity(titleA string, pathsA []string, titleB string, pathsB []string) SimilarityResult {
	na, nb := normalizePathSet(pathsA), normalizePathSet(pathsB)

	title := titleSimilarity(titleA, titleB)
	overlap, shared := pathOverlap(na, nb)

	critical := d.critical.filter(shared)

	return SimilarityResult{
		Score:                 titleWeight*title + pathWeight*overlap,
		TitleSimilarity:       title,
		PathOverlap:           overlap,
		OverlappingPaths:      shared,
		SharesCriticalFiles:   len(critical) > 0,
		CriticalFilesInCommon: critical,
	}
}

// CalculateTaskSimilarity scores two tasks in a batch against each other.
func (d *Deduplicator) CalculateTaskSimilarity(a, b domain.DiscoveredTask) SimilarityResult {
	return d.similarity(a.Title, a.AffectedPaths, b.Title, b.AffectedPaths)
}

// CalculateTaskIssueSimilarity scores a task against an open issue,
// mining the issue's paths out of its body text.
func (d *Deduplicator) CalculateTaskIssueSimilarity(task domain.DiscoveredTask, issue domain.Issue) SimilarityResult {
	return d.similarity(task.Title, task.AffectedPaths, issue.Title, ExtractIssuePaths(issue.Body))
}

var (
	backtickRe = regexp.MustCompile("`([^`\n]+)`")
	headingRe  = regexp.MustCompile(`(?mi)^#{1,6}\s`)
)

// Recognized source-ish extensions for bare filenames quoted without a
// directory component.
var pathExtensions = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".rs": true, ".java": true, ".rb": true, ".c": true,
	".h": true, ".cpp": true, ".cs": true, ".md": true, ".yml": true,
	".yaml": true, ".json": true, ".toml": true, ".sql": true, ".sh": true,
	".css": true, ".html": true, ".lock": true, ".mod": true, ".sum": true,
	".txt": true, ".proto": true,
}

// ExtractIssuePaths mines file paths from an issue body. An explicit
// "Affected Paths" section wins; otherwise every back-tick-quoted
// substring that looks like a relative path is taken. URLs never count.
func ExtractIssuePaths(body string) []string {
	if body == "" {
		return nil
	}

	if section := affectedPathsSection(body); section != "" {
		if paths := backtickedPaths(section); len(paths) > 0 {
			return paths
		}
	}
	return backtickedPaths(body)
}

// affectedPathsSection returns the body slice from an "Affected Paths"
// marker to the next heading, or "" when the section is absent.
func affectedPathsSection(body string) string {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "affected paths")
	if start < 0 {
		return ""
	}

	rest := body[start+len("affected paths"):]
	if loc := headingRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return rest
}

func backtickedPaths(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range backtickRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if !looksLikePath(candidate) {
			continue
		}
		n := NormalizePath(candidate)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// looksLikePath accepts relative file paths and rejects URLs, shell
// fragments and prose.
func looksLikePath(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.Contains(s, "://") || strings.HasPrefix(strings.ToLower(s), "http") {
		return false
	}
	if strings.Contains(s, "/") {
		return true
	}
	return pathExtensions[strings.ToLower(path.Ext(s))]
}
