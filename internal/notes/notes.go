// Package notes defines the release-note data model and the incremental
// extractor that parses structured notes out of streamed model output.
package notes

// Placeholders substituted when a field is still empty after every fallback.
// A notes result always carries two non-empty strings.
const (
	PlaceholderDeveloper = "No developer notes generated."
	PlaceholderMarketing = "No marketing notes generated."
)

// ChangeRecord is one unit of work submitted for analysis. Immutable once
// created; its lifetime is a single request.
type ChangeRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	DiffText    string `json:"diff_text"`
	SourceURL   string `json:"source_url"`
}

// StructuredNotes is the target parse shape: one developer-facing and one
// marketing-facing sentence.
type StructuredNotes struct {
	Developer string `json:"developer"`
	Marketing string `json:"marketing"`
}

// fillPlaceholders substitutes the fixed placeholders for empty fields.
func (n StructuredNotes) fillPlaceholders() StructuredNotes {
	if n.Developer == "" {
		n.Developer = PlaceholderDeveloper
	}
	if n.Marketing == "" {
		n.Marketing = PlaceholderMarketing
	}
	return n
}
