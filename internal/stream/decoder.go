// ABOUTME: Incremental decoder for the assistant response stream
// ABOUTME: Buffers partial lines across reads and skips malformed frames without aborting

package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
)

// Decoder reads frames from a byte stream. Lines are only cut at '\n'
// bytes, which never occur inside a multi-byte UTF-8 sequence, so a
// character split across two reads is reassembled before it is decoded.
type Decoder struct {
	r         *bufio.Reader
	logger    *slog.Logger
	malformed int
}

// NewDecoder creates a decoder over r. Pass nil logger for default.
func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		r:      bufio.NewReader(r),
		logger: logger.With("component", "stream"),
	}
}

// Next returns the next frame. It returns io.EOF once the stream ends;
// any other error comes from the underlying reader. A final line without a
// trailing newline is still decoded before io.EOF is reported.
func (d *Decoder) Next() (Frame, error) {
	for {
		line, readErr := d.r.ReadBytes('\n')
		if len(line) > 0 {
			f, err := ParseLine(line)
			switch {
			case err == nil:
				return f, nil
			case errors.Is(err, ErrNotFrame):
				// blank line or non-data field
			default:
				d.malformed++
				d.logger.Warn("skipping malformed frame", "error", err)
			}
		}
		if readErr != nil {
			return Frame{}, readErr
		}
	}
}

// Malformed returns how many data lines failed to decode so far
func (d *Decoder) Malformed() int {
	return d.malformed
}

// Consume decodes frames from r and calls fn for each one in receipt order.
// It returns nil when the stream ends normally. A frame with Done set does
// not stop consumption; only the end of the stream does.
func Consume(ctx context.Context, r io.Reader, logger *slog.Logger, fn func(Frame)) error {
	dec := NewDecoder(r, logger)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		fn(f)
	}
}
