package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/relnotesd/internal/stream"
	"github.com/fyrsmithlabs/relnotesd/pkg/sse"
)

var (
	// analyzeDescription is sent with the diff; title keywords drive the
	// server-side relevance check
	analyzeDescription string
	// analyzeID optionally names the session
	analyzeID string
)

// analyzeCmd submits a diff and streams the generated notes
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Generate release notes for a diff from a file or stdin",
	Long: `Submit a diff to the relnotesd server and stream the generated release notes.

Raw generation output streams to stderr as it arrives; the final developer and
marketing notes land on stdout. Changes that do not affect user-facing behavior
come back as a short message instead of notes.

Examples:
  # Analyze a diff file
  git diff main..HEAD > change.diff
  relnotes analyze --description "feat: add dark mode" change.diff

  # Analyze from stdin
  git show HEAD | relnotes analyze --description "fix: crash on empty diff" -

  # Use a different server
  relnotes analyze --server http://localhost:8080 change.diff`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeDescription, "description", "d", "", "change description (commit message or PR title and body)")
	analyzeCmd.Flags().StringVar(&analyzeID, "id", "", "session identifier echoed back in the stream")
}

// AnalyzeRequest matches internal/http/server.go AnalyzeRequest
type AnalyzeRequest struct {
	DiffID      string `json:"diffId,omitempty"`
	Description string `json:"description,omitempty"`
	DiffContent string `json:"diffContent"`
}

// runAnalyze handles the analyze command
func runAnalyze(cmd *cobra.Command, args []string) error {
	content, err := readDiffInput(args)
	if err != nil {
		return err
	}

	if len(content) == 0 {
		return fmt.Errorf("no diff content to analyze")
	}

	reqBody := AnalyzeRequest{
		DiffID:      analyzeID,
		Description: analyzeDescription,
		DiffContent: string(content),
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/analyze", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// No client timeout: the stream stays open for the whole generation.
	// The server enforces its own idle timeout.
	client := &http.Client{}

	resp, err := client.Do(httpReq)
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

	return consumeStream(resp.Body, os.Stdout, os.Stderr)
}

// readDiffInput reads the diff from the named file, or from stdin when the
// argument is missing or "-".
func readDiffInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return content, nil
}

// consumeStream renders SSE frames until the stream ends. Raw generation
// output goes to progress; the final notes or the rejection message go to
// out. A stream that ends without a complete event is reported as an error,
// so a dropped connection never looks like a clean rejection.
func consumeStream(r io.Reader, out, progress io.Writer) error {
	reader := sse.NewReader(r)

	var streamed, completed bool
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read stream: %w", err)
		}

		event, err := stream.Decode(frame)
		if err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}

		switch event.Type {
		case stream.EventStart:
			fmt.Fprintf(progress, "[relnotes] session %s\n", event.ID)
		case stream.EventProgress:
			fmt.Fprint(progress, event.Text)
			streamed = true
		case stream.EventNotes:
			if streamed {
				fmt.Fprintln(progress)
				streamed = false
			}
			fmt.Fprintf(out, "Developer: %s\n", event.Notes.Developer)
			fmt.Fprintf(out, "Marketing: %s\n", event.Notes.Marketing)
		case stream.EventMessage:
			if streamed {
				fmt.Fprintln(progress)
				streamed = false
			}
			fmt.Fprintln(out, event.Text)
		case stream.EventError:
			if streamed {
				fmt.Fprintln(progress)
			}
			return errors.New(event.Message)
		case stream.EventComplete:
			completed = true
		}
	}

	if streamed {
		fmt.Fprintln(progress)
	}
	if !completed {
		return fmt.Errorf("stream ended before completion")
	}
	return nil
}
