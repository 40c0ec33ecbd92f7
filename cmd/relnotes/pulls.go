package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// pullsLimit caps how many ranked pull requests to list
var pullsLimit int

// pullsCmd lists merged pull requests ranked by relevance
var pullsCmd = &cobra.Command{
	Use:   "pulls",
	Short: "List merged pull requests ranked by release-note relevance",
	Long: `List recently merged pull requests from the repository the server is
configured for, ranked by how likely each is to deserve a release note.
Documentation-only and dependency-bump changes are excluded.

Examples:
  # List with the server default limit
  relnotes pulls

  # List up to 50
  relnotes pulls --limit 50`,
	RunE: runPulls,
}

func init() {
	pullsCmd.Flags().IntVar(&pullsLimit, "limit", 0, "maximum pull requests to list (0 = server default)")
}

// PullsResponse matches internal/http/types.go PullsResponse
type PullsResponse struct {
	Pulls []PullSummary `json:"pulls"`
	Total int           `json:"total"`
}

// PullSummary matches internal/http/types.go PullSummary
type PullSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"source_url,omitempty"`
	Score     int    `json:"score"`
	Reason    string `json:"reason"`
}

// runPulls handles the pulls command
func runPulls(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/pulls", serverURL)
	if pullsLimit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, pullsLimit)
	}

	// The server fetches one diff per pull request from GitHub before it can
	// rank anything, so the listing needs a generous timeout.
	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var pullsResp PullsResponse
	if err := json.NewDecoder(resp.Body).Decode(&pullsResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	formatPulls(os.Stdout, pullsResp)
	return nil
}

// formatPulls renders the ranked listing.
func formatPulls(w io.Writer, resp PullsResponse) {
	if len(resp.Pulls) == 0 {
		fmt.Fprintln(w, "No release-note-worthy pull requests found.")
		return
	}

	for _, p := range resp.Pulls {
		fmt.Fprintf(w, "#%s  %s\n", p.ID, p.Title)
		fmt.Fprintf(w, "    score %d  %s\n", p.Score, p.Reason)
		if p.SourceURL != "" {
			fmt.Fprintf(w, "    %s\n", p.SourceURL)
		}
	}
	fmt.Fprintf(w, "\n%d pull request(s)\n", resp.Total)
}
