package proto

import "bytes"

// FrameBuffer reassembles newline-terminated frames from a byte stream.
// Reads from a socket are fed in as they arrive; complete frames are taken
// out one at a time. A partial frame stays buffered until the read that
// completes it, and bytes after the first newline of a read remain buffered
// for the next Next call.
//
// The zero value is ready to use. Not safe for concurrent use; each session
// owns its buffer.
type FrameBuffer struct {
	buf []byte
}

// Feed appends raw bytes from the stream.
func (b *FrameBuffer) Feed(p []byte) {
	b.buf = append(b.buf, p...)
}

// Next extracts the next complete frame, without its trailing newline.
// It returns false when no full frame is buffered. Empty lines are skipped.
func (b *FrameBuffer) Next() ([]byte, bool) {
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			return nil, false
		}

		frame := b.buf[:i]
		b.buf = b.buf[i+1:]
		if len(frame) == 0 {
			continue
		}
		return frame, true
	}
}

// Buffered returns the number of bytes waiting for a terminating newline.
func (b *FrameBuffer) Buffered() int {
	return len(b.buf)
}
