// Package ingest reads raw device byte streams and turns them into queued
// scan lines.
package ingest

import "bytes"

// LineDecoder buffers an unbounded byte stream and extracts newline
// terminated lines. A trailing carriage return is stripped; everything after
// the last newline stays buffered until more bytes arrive. Each source owns
// its decoder; buffers are never shared.
type LineDecoder struct {
	buf []byte
}

// Write appends a chunk and returns every complete line it unlocked, in
// order. Content is not interpreted; blank lines are returned as empty
// strings and filtered by the consumer.
func (d *LineDecoder) Write(p []byte) []string {
	d.buf = append(d.buf, p...)

	var lines []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			return lines
		}
		line := d.buf[:idx]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, string(line))
		d.buf = d.buf[idx+1:]
	}
}

// Pending returns the number of buffered bytes of the current partial line.
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}
