package notes

import (
	"encoding/json"
	"regexp"
	"strings"
)

// minFragmentChars is the shortest sentence fragment the final fallback keeps.
const minFragmentChars = 10

// jsonCandidateRe matches brace-delimited candidates with at most one level of
// nested braces. The expected shape is flat, so deeper nesting never occurs in
// compliant output.
var jsonCandidateRe = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// Alternate key names some models emit instead of the requested ones.
var (
	developerKeys = []string{"developer", "developerNotes", "devNotes"}
	marketingKeys = []string{"marketing", "marketingNotes", "userNotes"}
)

// TryExtract scans an accumulating buffer for the first valid notes object.
// It only attempts a parse when the buffer looks plausibly complete: the count
// of opening and closing braces must match and at least one pair must exist.
// Partial buffers return ok=false and are retried as more output arrives.
func TryExtract(buffer string) (StructuredNotes, bool) {
	opens := strings.Count(buffer, "{")
	if opens == 0 || opens != strings.Count(buffer, "}") {
		return StructuredNotes{}, false
	}
	return scanCandidates(buffer)
}

// Finalize runs the full fallback cascade over the complete buffer. Called
// exactly once, at stream end, when no notes were extracted incrementally.
// It always returns a usable result; fields that cannot be recovered are
// filled with placeholders.
func Finalize(buffer string) StructuredNotes {
	cleaned := stripFences(buffer)

	// Strict parse over the whole buffer first.
	if n, ok := parseObject(cleaned); ok {
		return n.fillPlaceholders()
	}

	// Candidate scan without the brace-balance gate: a truncated stream can
	// still contain one complete object.
	if n, ok := scanCandidates(cleaned); ok {
		return n.fillPlaceholders()
	}

	return sentenceFallback(cleaned).fillPlaceholders()
}

// scanCandidates strict-parses brace candidates left to right and returns the
// first that yields at least one resolvable field.
func scanCandidates(buffer string) (StructuredNotes, bool) {
	for _, cand := range jsonCandidateRe.FindAllString(buffer, -1) {
		if n, ok := parseObject(cand); ok {
			return n.fillPlaceholders(), true
		}
	}
	return StructuredNotes{}, false
}

// parseObject attempts a strict parse of a single JSON object and resolves
// the two target fields permissively. ok is false when the input is not an
// object or neither field resolves to usable text.
func parseObject(s string) (StructuredNotes, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return StructuredNotes{}, false
	}

	n := StructuredNotes{
		Developer: resolveField(obj, developerKeys),
		Marketing: resolveField(obj, marketingKeys),
	}
	if n.Developer == "" && n.Marketing == "" {
		return StructuredNotes{}, false
	}
	return n, true
}

// resolveField looks up the first usable value under the given keys. Strings
// are preferred; arrays of strings are joined with spaces.
func resolveField(obj map[string]any, keys []string) string {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if s := strings.TrimSpace(val); s != "" {
				return s
			}
		case []any:
			var parts []string
			for _, item := range val {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					parts = append(parts, strings.TrimSpace(s))
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, " ")
			}
		}
	}
	return ""
}

// sentenceFallback splits the buffer on sentence-terminating punctuation and
// assigns the first usable fragment as the developer note and the second as
// the marketing note, each re-terminated with a period. Best-effort output is
// preferred over an empty result when the model never emitted valid JSON.
func sentenceFallback(buffer string) StructuredNotes {
	raw := strings.FieldsFunc(buffer, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var fragments []string
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if len(f) > minFragmentChars {
			fragments = append(fragments, f+".")
		}
	}

	var n StructuredNotes
	if len(fragments) > 0 {
		n.Developer = fragments[0]
	}
	if len(fragments) > 1 {
		n.Marketing = fragments[1]
	}
	return n
}

// stripFences removes a markdown code fence wrapper - models sometimes wrap
// JSON output in ```json blocks despite instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
