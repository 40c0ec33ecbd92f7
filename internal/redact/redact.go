// Package redact removes secrets from diff text and descriptions before they
// are sent to the generation backend. Detection uses the Gitleaks ruleset;
// matches are replaced with markers that keep enough context for the model to
// summarize around them.
package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is one detected secret.
type Finding struct {
	RuleID   string
	RuleDesc string
	Line     int
	Secret   string
}

// Result holds redacted content and what was found.
type Result struct {
	Content  string
	Findings []Finding
}

// Redactor removes secrets from content.
type Redactor interface {
	// Redact replaces detected secrets with [REDACTED:rule:preview] markers.
	Redact(content string) (*Result, error)

	// IsEnabled reports whether redaction is active.
	IsEnabled() bool
}

// Config configures redaction.
type Config struct {
	// Enabled turns detection on. When false, New returns a NoopRedactor.
	Enabled bool

	// AllowlistPath optionally points at a TOML allowlist of patterns to
	// ignore. Empty means no allowlist; a missing file is ignored.
	AllowlistPath string
}

// redactor is the Gitleaks-backed implementation.
type redactor struct {
	allowlist *Allowlist
}

// New creates a Redactor for the given configuration.
func New(cfg Config) (Redactor, error) {
	if !cfg.Enabled {
		return &NoopRedactor{}, nil
	}

	allowlist, err := LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}

	return &redactor{allowlist: allowlist}, nil
}

// Redact detects and replaces secrets in content.
func (r *redactor) Redact(content string) (*Result, error) {
	// A fresh detector per call: the Gitleaks detector accumulates findings
	// internally and is not safe to share across concurrent sessions.
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}
	if r.allowlist != nil {
		applyAllowlist(&detector.Config, r.allowlist)
	}

	raw := detector.DetectString(content)

	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
			Secret:   f.Secret,
		})
	}

	if len(findings) == 0 {
		return &Result{Content: content, Findings: findings}, nil
	}

	return &Result{
		Content:  replaceFindings(content, findings),
		Findings: findings,
	}, nil
}

// IsEnabled reports true.
func (r *redactor) IsEnabled() bool { return true }

// replaceFindings substitutes markers for secrets, working from the last
// line backwards so earlier replacements cannot shift later positions.
func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Line > sorted[j].Line
	})

	lines := strings.Split(content, "\n")
	for _, f := range sorted {
		if f.Line < 1 || f.Line > len(lines) || f.Secret == "" {
			continue
		}
		marker := fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, preview(f.Secret, 4))
		lines[f.Line-1] = strings.Replace(lines[f.Line-1], f.Secret, marker, 1)
	}
	return strings.Join(lines, "\n")
}

// preview returns the first n characters of a secret for the marker.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// applyAllowlist merges allowlist patterns into the Gitleaks config.
// Patterns are pre-validated at load time.
func applyAllowlist(cfg *gitleaksconfig.Config, allowlist *Allowlist) {
	global := &gitleaksconfig.Allowlist{
		Description: "relnotesd allowlist",
	}
	for _, pattern := range allowlist.Regexes {
		re := regexp.MustCompile(pattern)
		global.Regexes = append(global.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	global.StopWords = append(global.StopWords, allowlist.StopWords...)
	cfg.Allowlists = append(cfg.Allowlists, global)
}

// NoopRedactor passes content through unchanged.
type NoopRedactor struct{}

// Redact returns the content as-is.
func (n *NoopRedactor) Redact(content string) (*Result, error) {
	return &Result{Content: content, Findings: []Finding{}}, nil
}

// IsEnabled reports false.
func (n *NoopRedactor) IsEnabled() bool { return false }

var _ Redactor = (*redactor)(nil)
var _ Redactor = (*NoopRedactor)(nil)
