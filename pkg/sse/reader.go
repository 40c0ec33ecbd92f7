package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Reader reassembles SSE frames from a stream. It understands only what the
// writer half produces: data lines separated by blank lines. Comment lines
// and non-data fields are skipped.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps a raw event stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next returns the data payload of the next complete frame. Multiple data
// lines within one frame are rejoined with newlines. It returns io.EOF when
// the stream ends cleanly. A stream truncated mid-frame yields the partial
// frame once, then io.EOF.
func (r *Reader) Next() ([]byte, error) {
	var data [][]byte
	for {
		line, readErr := r.br.ReadString('\n')

		if line != "" {
			trimmed := strings.TrimSuffix(line, "\n")
			trimmed = strings.TrimSuffix(trimmed, "\r")

			switch {
			case trimmed == "":
				if len(data) > 0 {
					return bytes.Join(data, []byte("\n")), nil
				}
			case strings.HasPrefix(trimmed, ":"):
				// comment line
			default:
				field, value, found := strings.Cut(trimmed, ":")
				if found && field == "data" {
					data = append(data, []byte(strings.TrimPrefix(value, " ")))
				}
			}
		}

		if readErr != nil {
			if readErr == io.EOF && len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, readErr
		}
	}
}
