// Package http provides the HTTP API for relnotesd.
package http

import "strings"

// PullsResponse is the response body for GET /api/v1/pulls.
type PullsResponse struct {
	Pulls []PullSummary `json:"pulls"`
	Total int           `json:"total"`
}

// PullSummary is one ranked merged change in the pulls listing. The diff
// itself is deliberately omitted; listings stay small.
type PullSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url,omitempty"`
	Score     int    `json:"score"`
	Reason    string `json:"reason"`
}

// titleLine returns the first line of a change description.
func titleLine(desc string) string {
	line, _, _ := strings.Cut(desc, "\n")
	return strings.TrimSpace(line)
}
