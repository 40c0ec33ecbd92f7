// Package prompt renders bounded-size instruction prompts for the
// release-note generation backend.
package prompt

import "strings"

// DefaultMaxDiffChars bounds the diff section of a rendered prompt.
const DefaultMaxDiffChars = 12000

// TruncationMarker joins the head and tail of an oversized diff.
const TruncationMarker = "[content truncated]"

// headRatio is the share of the budget spent on the diff's opening context.
// The opening carries the what/where of a change; the tail often carries
// summary and test impact.
const headRatio = 0.7

// instructionTemplate is the fixed instruction block. The worked examples
// bias the model toward emitting the strict JSON shape.
const instructionTemplate = `You are a release-notes writer for a software project.

Given a pull-request description and its code diff, produce two release notes:
1. A developer-facing note: one concrete sentence (at most 30 words) for the technical changelog, naming what changed and where.
2. A marketing-facing note: one plain-language sentence (at most 20 words) for end users, focused on the benefit.

Respond with a JSON object containing exactly the keys "developer" and "marketing".

Examples of the required output:
{"developer":"Reused a scratch buffer in the streaming JSON decoder, cutting parse allocations by roughly half.","marketing":"Live updates now arrive faster and use less memory."}
{"developer":"Fixed a nil-map panic in webhook handling when the payload omits the sender field.","marketing":"Webhook deliveries are more reliable, so fewer events get dropped."}

Respond ONLY with the JSON object, no additional text.`

// Builder renders prompts with a configurable diff budget. The zero budget
// means DefaultMaxDiffChars.
type Builder struct {
	maxDiffChars int
}

// NewBuilder creates a Builder with the given diff budget in characters.
func NewBuilder(maxDiffChars int) *Builder {
	if maxDiffChars <= 0 {
		maxDiffChars = DefaultMaxDiffChars
	}
	return &Builder{maxDiffChars: maxDiffChars}
}

// Build renders the full prompt for one change. Output is deterministic for
// a given input pair.
func (b *Builder) Build(diffText, description string) string {
	var sb strings.Builder
	sb.WriteString(instructionTemplate)
	sb.WriteString("\n\nDescription:\n")
	sb.WriteString(strings.TrimSpace(description))
	sb.WriteString("\n\nDiff:\n")
	sb.WriteString(b.truncateDiff(diffText))
	return sb.String()
}

// truncateDiff bounds the diff to the budget. Oversized diffs keep their
// opening and closing context joined by a single truncation marker; the
// returned section never exceeds the budget, marker included.
func (b *Builder) truncateDiff(diff string) string {
	if len(diff) <= b.maxDiffChars {
		return diff
	}

	marker := "\n" + TruncationMarker + "\n"
	headLen := int(headRatio * float64(b.maxDiffChars))
	tailLen := b.maxDiffChars - headLen - len(marker)
	if tailLen <= 0 {
		return diff[:b.maxDiffChars]
	}

	return diff[:headLen] + marker + diff[len(diff)-tailLen:]
}
