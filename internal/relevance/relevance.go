// Package relevance decides whether a change is worth summarizing and ranks
// candidates for release-note generation. All functions are pure: they operate
// on the record's title and diff text only, with no I/O and no shared state.
//
// Two strictness tiers exist on purpose. ShouldInclude is the cheap fast path
// applied at submission time and checks only high-confidence keywords.
// IsRelevant is the thorough filter used when ranking many candidates; it adds
// file-impact and change-size heuristics. The tiers can disagree for the same
// record and are not meant to be reconciled.
package relevance

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/relnotesd/internal/notes"
)

// DefaultMinChangedLines is the change-size floor below which a record is
// excluded unless its title signals a bugfix.
const DefaultMinChangedLines = 10

// Decision is the outcome of a relevance evaluation. Reason is human-readable
// and suitable for the rejection notice sent to callers.
type Decision struct {
	Include bool
	Reason  string
}

// Ranked pairs a record with its ranking score.
type Ranked struct {
	Record notes.ChangeRecord `json:"record"`
	Score  int                `json:"score"`
	Reason string             `json:"reason"`
}

// rule is one (predicate, verdict) row of an ordered decision table. The
// first matching row wins.
type rule struct {
	name   string
	reason string
	re     *regexp.Regexp
}

// weightedRule is one (predicate, weight) row of the scoring table. All
// matching rows contribute to the sum.
type weightedRule struct {
	name   string
	weight int
	re     *regexp.Regexp
}

// Exclusions take precedence over inclusions. Checked against the title.
var excludeRules = []rule{
	{"docs", "documentation-only change", regexp.MustCompile(`(?i)^docs?[:(\s]|documentation|\breadme\b|\bchangelog\b|\btypo\b`)},
	{"deps", "dependency update", regexp.MustCompile(`(?i)^(chore\()?deps?\b|\bdependenc\w+\b|\bbump(ed|ing)?\b|dependabot|renovate`)},
	{"ci", "CI or tooling change", regexp.MustCompile(`(?i)^ci[:(\s]|github actions|\bworkflows?\b|\bpipeline\b|\btooling\b`)},
	{"tests", "test-only change", regexp.MustCompile(`(?i)^tests?[:(\s]|\btest coverage\b|\bunit tests?\b|\be2e tests?\b|\bflaky test`)},
	{"refactor", "pure refactor", regexp.MustCompile(`(?i)^refactor[:(\s]|\bcode cleanup\b|\bcleanup only\b`)},
	{"format", "formatting-only change", regexp.MustCompile(`(?i)^(style|format)[:(\s]|\bformatting\b|\bprettier\b|\bgofmt\b|\blint(ing)? fix`)},
}

// Checked only when no exclusion fired.
var includeRules = []rule{
	{"breaking", "breaking change", regexp.MustCompile(`(?i)\bbreaking\b|!:`)},
	{"perf", "performance improvement", regexp.MustCompile(`(?i)\bperf(ormance)?\b|\bfaster\b|\boptimi[sz]\w*\b|\bspeed(s|ed)?.?up\b|\blatency\b`)},
	{"feature", "new feature", regexp.MustCompile(`(?i)^feat(ure)?[:(!\s]|\badd(s|ed)? support\b|\bnew\b|\bimplement(s|ed)?\b|\bintroduc(e|es|ed)\b`)},
	{"bugfix", "bug fix", regexp.MustCompile(`(?i)^(bug|hot)?fix[:(!\s]|\bfixes? #\d+|\bcrash\b|\bregression\b|\bnull pointer\b`)},
	{"dx", "developer-experience improvement", regexp.MustCompile(`(?i)\bdx\b|\bdeveloper experience\b|\bergonomic\w*\b|\bdebug(ging|ger)?\b`)},
	{"api", "API change", regexp.MustCompile(`(?i)\bapi\b|\bendpoint\b|\broutes?\b|\bsdk\b`)},
	{"streaming", "streaming or real-time change", regexp.MustCompile(`(?i)\bstream(ing|s)?\b|\breal.?time\b|\bsse\b|\bwebsocket\b`)},
}

// Ranking weights. Additive: every matching category contributes. Used only
// for ordering, never for the include decision.
var scoreRules = []weightedRule{
	{"breaking", 10, regexp.MustCompile(`(?i)\bbreaking\b|!:`)},
	{"security", 9, regexp.MustCompile(`(?i)\bsecurity\b|\bcve\b|\bvulnerab\w+\b`)},
	{"feature", 8, regexp.MustCompile(`(?i)^feat(ure)?[:(!\s]|\bfeature\b|\badd(s|ed)?\b|\bnew\b`)},
	{"fix", 7, regexp.MustCompile(`(?i)\bfix(es|ed)?\b|\bbug\b|\bcrash\b`)},
	{"perf", 6, regexp.MustCompile(`(?i)\bperf(ormance)?\b|\bfaster\b|\boptimi[sz]\w*\b`)},
	{"api", 5, regexp.MustCompile(`(?i)\bapi\b|\bendpoint\b`)},
	{"stream", 4, regexp.MustCompile(`(?i)\bstream(ing|s)?\b|\bsse\b`)},
	{"refactor", 3, regexp.MustCompile(`(?i)\brefactor\w*\b`)},
	{"update", 2, regexp.MustCompile(`(?i)\bupdate[sd]?\b|\bupgrade[sd]?\b`)},
}

// Fast-path tables: only the highest-confidence keywords, no heuristics.
var (
	fastExcludeRules = []rule{
		{"docs", "documentation-only change", regexp.MustCompile(`(?i)^docs?[:(\s]|\breadme\b|\btypo\b`)},
		{"deps", "dependency update", regexp.MustCompile(`(?i)^(chore\()?deps?\b|\bbump(ed|ing)?\b|dependabot`)},
		{"format", "formatting-only change", regexp.MustCompile(`(?i)^(style|format)[:(\s]|\bgofmt\b`)},
	}
	fastIncludeRules = []rule{
		{"breaking", "breaking change", regexp.MustCompile(`(?i)\bbreaking\b|!:`)},
		{"feature", "new feature", regexp.MustCompile(`(?i)^feat(ure)?[:(!\s]`)},
		{"bugfix", "bug fix", regexp.MustCompile(`(?i)^(bug|hot)?fix[:(!\s]|\bfix(es|ed)?\b`)},
	}
)

// bugfixTitleRe rescues small changes from the size heuristic. Broader than
// the inclusion keyword: a small diff with any fix-ish wording still ships.
var bugfixTitleRe = regexp.MustCompile(`(?i)\bfix\w*\b|\bbug\b|\bcrash\b|\bresolv\w+\b|\bpatch\w*\b`)

// Path classification for the file-impact heuristic.
var (
	irrelevantPathRe = regexp.MustCompile(`(?i)\.(md|rst|txt)$|^docs?/|/docs?/|\.(ya?ml|toml|ini|cfg|lock)$|^\.github/|_test\.go$|\.(test|spec)\.[jt]sx?$|(^|/)tests?/|(^|/)__tests__/|package-lock\.json$|^vendor/`)
	diffPathRe       = regexp.MustCompile(`(?m)^(?:\+\+\+|---) (?:[ab]/)?(.+)$`)
)

// Filter is the thorough relevance filter. The zero threshold means
// DefaultMinChangedLines.
type Filter struct {
	minChangedLines int
}

// NewFilter creates a thorough filter with the given change-size floor.
func NewFilter(minChangedLines int) *Filter {
	if minChangedLines <= 0 {
		minChangedLines = DefaultMinChangedLines
	}
	return &Filter{minChangedLines: minChangedLines}
}

// IsRelevant applies the full decision cascade to one record: exclusion
// keywords, inclusion keywords, file-impact heuristic, size heuristic, then
// include by default.
func (f *Filter) IsRelevant(rec notes.ChangeRecord) Decision {
	if r := firstMatch(excludeRules, rec.Description); r != nil {
		return Decision{Include: false, Reason: r.reason}
	}
	if r := firstMatch(includeRules, rec.Description); r != nil {
		return Decision{Include: true, Reason: r.reason}
	}

	if relevant, irrelevant := classifyPaths(rec.DiffText); irrelevant > relevant {
		return Decision{Include: false, Reason: "mostly touches docs, config, or tests"}
	}

	if countChangedLines(rec.DiffText) < f.minChangedLines {
		if bugfixTitleRe.MatchString(rec.Description) {
			return Decision{Include: true, Reason: "small bug fix"}
		}
		return Decision{Include: false, Reason: "change too small to summarize"}
	}

	return Decision{Include: true, Reason: "included by default"}
}

// FilterAndRank keeps the relevant records and orders them highest score
// first. Ordering is stable for equal scores.
func (f *Filter) FilterAndRank(recs []notes.ChangeRecord) []Ranked {
	ranked := make([]Ranked, 0, len(recs))
	for _, rec := range recs {
		d := f.IsRelevant(rec)
		if !d.Include {
			continue
		}
		ranked = append(ranked, Ranked{
			Record: rec,
			Score:  Score(rec),
			Reason: d.Reason,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// defaultFilter backs the package-level convenience functions.
var defaultFilter = NewFilter(0)

// IsRelevant applies the thorough filter with default thresholds.
func IsRelevant(rec notes.ChangeRecord) Decision {
	return defaultFilter.IsRelevant(rec)
}

// FilterAndRank applies the thorough filter and ranking with default
// thresholds.
func FilterAndRank(recs []notes.ChangeRecord) []Ranked {
	return defaultFilter.FilterAndRank(recs)
}

// Score sums the weights of every scoring category the title matches.
func Score(rec notes.ChangeRecord) int {
	total := 0
	for _, r := range scoreRules {
		if r.re.MatchString(rec.Description) {
			total += r.weight
		}
	}
	return total
}

// ShouldInclude is the low-latency gate applied at submission time. It checks
// only the highest-confidence keywords and includes by default; the file and
// size heuristics are deliberately absent here.
func ShouldInclude(rec notes.ChangeRecord) bool {
	if firstMatch(fastExcludeRules, rec.Description) != nil {
		return false
	}
	if firstMatch(fastIncludeRules, rec.Description) != nil {
		return true
	}
	return true
}

// firstMatch evaluates an ordered rule table, first match wins.
func firstMatch(rules []rule, title string) *rule {
	for i := range rules {
		if rules[i].re.MatchString(title) {
			return &rules[i]
		}
	}
	return nil
}

// classifyPaths parses the +++/--- path lines of a unified diff and counts
// relevant (source) versus irrelevant (docs, config, test) paths.
func classifyPaths(diff string) (relevant, irrelevant int) {
	for _, m := range diffPathRe.FindAllStringSubmatch(diff, -1) {
		path := strings.TrimSpace(m[1])
		if path == "" || path == "/dev/null" {
			continue
		}
		if irrelevantPathRe.MatchString(path) {
			irrelevant++
		} else {
			relevant++
		}
	}
	return relevant, irrelevant
}

// countChangedLines counts added and removed lines, ignoring the +++/---
// file headers.
func countChangedLines(diff string) int {
	count := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			count++
		}
	}
	return count
}
