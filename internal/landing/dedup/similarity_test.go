package dedup

import (
	"testing"

	"github.com/forgeflow/autoland/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"./src/index.ts", "src/index.ts"},
		{"src//index.ts", "src/index.ts"},
		{"SRC/Index.ts", "src/index.ts"},
		{"src/index.ts", "src/index.ts"},
		{"src/nested/", "src/nested"},
		{"  lib/a.go ", "lib/a.go"},
		{"", ""},
		{".", ""},
		{"./", ""},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathVariantsOverlap(t *testing.T) {
	d := New(Config{})
	a := domain.DiscoveredTask{Title: "Refactor index module", AffectedPaths: []string{"./src/index.ts"}}
	b := domain.DiscoveredTask{Title: "Tidy entry point", AffectedPaths: []string{"SRC//Index.ts"}}

	sim := d.CalculateTaskSimilarity(a, b)
	if sim.PathOverlap != 1 {
		t.Errorf("PathOverlap = %v, want 1 for normalized variants of the same file", sim.PathOverlap)
	}
	if len(sim.OverlappingPaths) != 1 || sim.OverlappingPaths[0] != "src/index.ts" {
		t.Errorf("OverlappingPaths = %v, want [src/index.ts]", sim.OverlappingPaths)
	}
}

func TestIdenticalTasksScoreHigh(t *testing.T) {
	d := New(Config{})
	task := domain.DiscoveredTask{
		Title:         "Fix login session expiry handling",
		AffectedPaths: []string{"src/auth/session.ts", "src/auth/login.ts"},
	}

	sim := d.CalculateTaskSimilarity(task, task)
	if sim.Score < 0.5 {
		t.Errorf("Score = %v, want >= 0.5 for identical title and paths", sim.Score)
	}
	if sim.PathOverlap <= 0 {
		t.Errorf("PathOverlap = %v, want > 0", sim.PathOverlap)
	}
	if sim.TitleSimilarity != 1 {
		t.Errorf("TitleSimilarity = %v, want 1", sim.TitleSimilarity)
	}
}

func TestDisjointTasksScoreLow(t *testing.T) {
	d := New(Config{})
	a := domain.DiscoveredTask{
		Title:         "Fix login session expiry handling",
		AffectedPaths: []string{"src/auth/session.ts"},
	}
	b := domain.DiscoveredTask{
		Title:         "Document release pipeline runbook",
		AffectedPaths: []string{"docs/release.md"},
	}

	sim := d.CalculateTaskSimilarity(a, b)
	if sim.Score >= 0.3 {
		t.Errorf("Score = %v, want < 0.3 for disjoint topic and paths", sim.Score)
	}
}

func TestSharedCriticalFileFlagged(t *testing.T) {
	d := New(Config{})
	a := domain.DiscoveredTask{Title: "Bump dependency versions", AffectedPaths: []string{"package.json", "src/a.ts"}}
	b := domain.DiscoveredTask{Title: "Add dependency for charts", AffectedPaths: []string{"package.json", "src/charts.ts"}}

	sim := d.CalculateTaskSimilarity(a, b)
	if !sim.SharesCriticalFiles {
		t.Error("SharesCriticalFiles = false, want true for a shared manifest")
	}
	if len(sim.CriticalFilesInCommon) != 1 || sim.CriticalFilesInCommon[0] != "package.json" {
		t.Errorf("CriticalFilesInCommon = %v, want [package.json]", sim.CriticalFilesInCommon)
	}
}

func TestNestedManifestIsCritical(t *testing.T) {
	d := New(Config{})
	a := domain.DiscoveredTask{Title: "Pin web app deps", AffectedPaths: []string{"apps/web/package.json"}}
	b := domain.DiscoveredTask{Title: "Upgrade web app deps", AffectedPaths: []string{"apps/web/package.json"}}

	sim := d.CalculateTaskSimilarity(a, b)
	if !sim.SharesCriticalFiles {
		t.Error("nested manifest not recognized as critical")
	}
}

func TestTitleSimilarityIgnoresStopWordsAndShortTokens(t *testing.T) {
	got := titleSimilarity(
		"Fix the race in the watcher",
		"Fix a race in watcher",
	)
	// Both reduce to {fix, race, watcher}.
	if got != 1 {
		t.Errorf("titleSimilarity = %v, want 1", got)
	}
}

func TestTitleSimilarityEmptyAfterFiltering(t *testing.T) {
	// Every token is a stop word or too short.
	if got := titleSimilarity("to do it", "on an is"); got != 1 {
		t.Errorf("titleSimilarity for empty token sets = %v, want 1", got)
	}
	if got := titleSimilarity("to do it", "rework scheduler"); got != 0 {
		t.Errorf("titleSimilarity empty-vs-nonempty = %v, want 0", got)
	}
}

func TestExtractIssuePathsAffectedSectionWins(t *testing.T) {
	body := "Intro mentions `src/elsewhere.ts` casually.\n\n" +
		"## Affected Paths\n" +
		"- `src/auth/session.ts`\n" +
		"- `src/auth/login.ts`\n\n" +
		"## Notes\n" +
		"Also touches `docs/readme.md` maybe.\n"

	got := ExtractIssuePaths(body)
	want := []string{"src/auth/session.ts", "src/auth/login.ts"}
	if len(got) != len(want) {
		t.Fatalf("ExtractIssuePaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExtractIssuePaths = %v, want %v", got, want)
		}
	}
}

func TestExtractIssuePathsFallsBackToWholeBody(t *testing.T) {
	body := "The parser in `pkg/parser/lex.go` mishandles `config.yaml` " +
		"when run via `make test`. See https://example.test/docs."

	got := ExtractIssuePaths(body)
	want := map[string]bool{"pkg/parser/lex.go": true, "config.yaml": true}
	if len(got) != len(want) {
		t.Fatalf("ExtractIssuePaths = %v, want the two real paths", got)
	}
	for _, p := range got {
		if !want[p] {
			t.Errorf("unexpected extracted path %q", p)
		}
	}
}

func TestExtractIssuePathsRejectsURLs(t *testing.T) {
	body := "See `https://example.test/a/b` and `http://foo/bar.go` for context; " +
		"real file is `cmd/run.go`."

	got := ExtractIssuePaths(body)
	if len(got) != 1 || got[0] != "cmd/run.go" {
		t.Errorf("ExtractIssuePaths = %v, want [cmd/run.go]", got)
	}
}

func TestExtractIssuePathsEmptyBody(t *testing.T) {
	if got := ExtractIssuePaths(""); got != nil {
		t.Errorf("ExtractIssuePaths(\"\") = %v, want nil", got)
	}
}

func TestTaskIssueSimilarity(t *testing.T) {
	d := New(Config{})
	task := domain.DiscoveredTask{
		Title:         "Fix session expiry in auth flow",
		AffectedPaths: []string{"src/auth/session.ts"},
	}
	issue := domain.Issue{
		Number: 12,
		Title:  "Session expiry broken in auth flow",
		Body:   "## Affected Paths\n- `src/auth/session.ts`\n",
		State:  domain.StateOpen,
	}

	sim := d.CalculateTaskIssueSimilarity(task, issue)
	if sim.Score < 0.5 {
		t.Errorf("Score = %v, want >= 0.5 for matching issue", sim.Score)
	}
	if sim.PathOverlap != 1 {
		t.Errorf("PathOverlap = %v, want 1", sim.PathOverlap)
	}
}
