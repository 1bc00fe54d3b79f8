// ABOUTME: Wire frame for streamed assistant responses
// ABOUTME: Each "data: " line carries the full assistant text accumulated so far

package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DataPrefix marks a line that carries a JSON frame
const DataPrefix = "data: "

// ErrNotFrame is returned by ParseLine for lines that carry no frame
var ErrNotFrame = errors.New("not a data line")

// Frame is one parsed unit of the response stream. Content is cumulative,
// not a delta: a later frame replaces the text of an earlier one.
type Frame struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

// ParseLine parses a single line (without its trailing newline).
// Blank lines and lines without the data prefix return ErrNotFrame;
// a data line with invalid JSON returns a decoding error.
func ParseLine(line []byte) (Frame, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return Frame{}, ErrNotFrame
	}
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return Frame{}, ErrNotFrame
	}

	var f Frame
	if err := json.Unmarshal(line[len(DataPrefix):], &f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	return f, nil
}

// Encode renders f as a complete data line followed by a blank line
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	out := make([]byte, 0, len(DataPrefix)+len(data)+2)
	out = append(out, DataPrefix...)
	out = append(out, data...)
	out = append(out, '\n', '\n')
	return out, nil
}
