// Package stream decodes the assistant response stream.
//
// # Wire Format
//
// The endpoint writes one frame per event:
//
//	data: {"id":"msg_1","role":"assistant","content":"Hello","done":false}
//
//	data: {"id":"msg_1","role":"assistant","content":"Hello there","done":true}
//
// Content is cumulative. Clients overwrite the assistant message with each
// frame rather than appending, so replaying frames never duplicates text.
//
// # Robustness
//
//   - Partial lines are buffered across reads
//   - Blank lines and non-data lines are ignored
//   - A data line with invalid JSON is logged and skipped
//   - done:true is informational; the stream ends when the body closes
package stream
