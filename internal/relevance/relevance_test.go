package relevance

import (
	"strings"
	"testing"

	"github.com/fyrsmithlabs/relnotesd/internal/notes"
)

// buildDiff renders a minimal unified diff touching the given path with n
// changed lines.
func buildDiff(path string, n int) string {
	var b strings.Builder
	b.WriteString("--- a/" + path + "\n")
	b.WriteString("+++ b/" + path + "\n")
	b.WriteString("@@ -1," + "5" + " +1,5 @@\n")
	for i := 0; i < n; i++ {
		b.WriteString("+added line\n")
	}
	return b.String()
}

func TestIsRelevant(t *testing.T) {
	bigDiff := buildDiff("internal/parser/parser.go", 25)

	tests := []struct {
		name        string
		title       string
		diff        string
		wantInclude bool
	}{
		{"docs excluded", "docs: update readme", bigDiff, false},
		{"dependency bump excluded", "chore(deps): bump lodash from 4.17.20 to 4.17.21", bigDiff, false},
		{"ci excluded", "ci: cache go modules in workflows", bigDiff, false},
		{"test only excluded", "test: cover the retry path", bigDiff, false},
		{"refactor excluded", "refactor: extract helper", bigDiff, false},
		{"formatting excluded", "style: run gofmt", bigDiff, false},
		{"bugfix included", "fix: null pointer in parser", buildDiff("internal/parser/parser.go", 11), true},
		{"feature included", "feat: add retry budget to client", bigDiff, true},
		{"breaking included", "breaking: drop legacy v1 endpoints", bigDiff, true},
		{"perf included", "improve latency of cache lookups", bigDiff, true},
		{"streaming included", "stream deltas over sse", bigDiff, true},
		{"exclusion beats inclusion", "docs: document the new streaming api", bigDiff, false},
		{"neutral title large source diff included", "rework session bookkeeping internals", bigDiff, true},
		{"neutral title tiny diff excluded", "tidy session bookkeeping", buildDiff("internal/session/session.go", 3), false},
		{"tiny diff rescued by fix wording", "fixed flaky retry handling", buildDiff("internal/retry/retry.go", 3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := notes.ChangeRecord{ID: "1", Description: tt.title, DiffText: tt.diff}
			got := IsRelevant(rec)
			if got.Include != tt.wantInclude {
				t.Errorf("IsRelevant(%q).Include = %v, want %v (reason %q)",
					tt.title, got.Include, tt.wantInclude, got.Reason)
			}
			if got.Reason == "" {
				t.Errorf("IsRelevant(%q) returned an empty reason", tt.title)
			}
		})
	}
}

func TestIsRelevantFileImpact(t *testing.T) {
	// Neutral title, diff dominated by docs and config paths.
	diff := strings.Join([]string{
		"--- a/README.md",
		"+++ b/README.md",
		"+one",
		"--- a/docs/guide.md",
		"+++ b/docs/guide.md",
		"+two",
		"--- a/.github/workflows/release.yml",
		"+++ b/.github/workflows/release.yml",
		"+three",
		"--- a/internal/app/app.go",
		"+++ b/internal/app/app.go",
		"+four",
		"+five",
		"+six",
		"+seven",
		"+eight",
		"+nine",
		"+ten",
		"+eleven",
		"+twelve",
		"+thirteen",
	}, "\n")

	rec := notes.ChangeRecord{ID: "2", Description: "assorted housekeeping", DiffText: diff}
	got := IsRelevant(rec)
	if got.Include {
		t.Errorf("expected exclusion when irrelevant paths outnumber relevant ones, got include (reason %q)", got.Reason)
	}
}

func TestScoreOrdering(t *testing.T) {
	breaking := notes.ChangeRecord{ID: "a", Description: "breaking change to auth"}
	update := notes.ChangeRecord{ID: "b", Description: "update retry logic"}

	if Score(breaking) <= Score(update) {
		t.Errorf("breaking score %d must rank strictly above update score %d",
			Score(breaking), Score(update))
	}
}

func TestScoreAdditive(t *testing.T) {
	single := notes.ChangeRecord{ID: "a", Description: "stream results"}
	stacked := notes.ChangeRecord{ID: "b", Description: "breaking: stream results over new api"}

	if Score(stacked) <= Score(single) {
		t.Errorf("stacked categories should accumulate: %d vs %d", Score(stacked), Score(single))
	}
}

func TestFilterAndRank(t *testing.T) {
	diff := buildDiff("internal/core/core.go", 30)
	recs := []notes.ChangeRecord{
		{ID: "low", Description: "update retry logic", DiffText: diff},
		{ID: "docs", Description: "docs: update readme", DiffText: diff},
		{ID: "high", Description: "breaking: new streaming api", DiffText: diff},
	}

	ranked := FilterAndRank(recs)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked records, got %d", len(ranked))
	}
	if ranked[0].Record.ID != "high" {
		t.Errorf("expected %q first, got %q", "high", ranked[0].Record.ID)
	}
	if ranked[1].Record.ID != "low" {
		t.Errorf("expected %q second, got %q", "low", ranked[1].Record.ID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("ranking not ordered by score: %d then %d", ranked[0].Score, ranked[1].Score)
	}
}

func TestShouldInclude(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"docs excluded", "docs: fix readme links", false},
		{"dependency bump excluded", "chore(deps): bump actions/checkout", false},
		{"gofmt excluded", "style: apply gofmt", false},
		{"fix included", "fix: race in channel close", true},
		{"feature included", "feat: expose ranked listing", true},
		{"neutral defaults to include", "adjust worker pool sizing", true},
		{"no file heuristics on fast path", "rename internal helpers", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := notes.ChangeRecord{ID: "x", Description: tt.title}
			if got := ShouldInclude(rec); got != tt.want {
				t.Errorf("ShouldInclude(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}
