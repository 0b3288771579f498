// Package adapter implements the byte-accumulator abstraction the J2K
// depayloader uses to gather PU, tile and frame fragments: an ordered
// FIFO of byte buffers that can be queried by total size, appended to,
// peeked into without consuming, and taken from either as one
// contiguous buffer or as the original list of buffers.
//
// It plays the same role here that pkg/frame and pkg/obu play for the
// AV1 codec: reassembly logic factored out of the depacketizer that
// owns it, grounded on the GstAdapter semantics the original RTP J2K
// GStreamer element builds on.
package adapter

import "encoding/binary"

// Buffer is a byte window that may alias memory the caller still holds
// a reference to. Buffers obtained from a wire payload are shared;
// MakeWritable must be called before mutating one in place.
type Buffer struct {
	bytes  []byte
	shared bool
}

// NewShared wraps b as a Buffer that may still be referenced elsewhere;
// mutating its bytes requires MakeWritable first.
func NewShared(b []byte) Buffer {
	return Buffer{bytes: b, shared: true}
}

// NewOwned wraps b as a Buffer this package is free to mutate in place.
func NewOwned(b []byte) Buffer {
	return Buffer{bytes: b, shared: false}
}

// Len returns the number of bytes in the buffer.
func (b Buffer) Len() int {
	return len(b.bytes)
}

// Bytes returns the buffer's contents. The caller must not mutate it
// unless the Buffer came from MakeWritable or NewOwned.
func (b Buffer) Bytes() []byte {
	return b.bytes
}

func (b Buffer) slice(start, end int) Buffer {
	return Buffer{bytes: b.bytes[start:end], shared: b.shared}
}

// MakeWritable returns a Buffer safe to mutate in place, copying the
// backing array first if it might be shared with the caller.
func (b Buffer) MakeWritable() Buffer {
	if !b.shared {
		return b
	}
	cp := make([]byte, len(b.bytes))
	copy(cp, b.bytes)

	return NewOwned(cp)
}

// PutUint32BE overwrites 4 bytes at offset with v, big-endian. The
// buffer must have been through MakeWritable first.
func (b Buffer) PutUint32BE(offset int, v uint32) {
	binary.BigEndian.PutUint32(b.bytes[offset:offset+4], v)
}

// List is a FIFO of Buffers supporting byte-count-addressed push, take
// and peek, the way a PU, tile or frame is gathered from successive RTP
// payload fragments.
type List struct {
	buffers []Buffer
	total   int
}

// Total returns the number of bytes currently held.
func (l *List) Total() int {
	return l.total
}

// Push appends b to the end of the list.
func (l *List) Push(b Buffer) {
	if b.Len() == 0 {
		return
	}
	l.buffers = append(l.buffers, b)
	l.total += b.Len()
}

// Clear drops all buffers.
func (l *List) Clear() {
	l.buffers = nil
	l.total = 0
}

// consume removes the first n bytes from the list, splitting the buffer
// that straddles the boundary if necessary, and returns them as the
// ordered list of (possibly trimmed) original buffers.
func (l *List) consume(n int) []Buffer {
	if n <= 0 {
		return nil
	}
	if n > l.total {
		n = l.total
	}

	out := make([]Buffer, 0, len(l.buffers))
	remaining := n
	i := 0
	for remaining > 0 {
		buf := l.buffers[i]
		if buf.Len() <= remaining {
			out = append(out, buf)
			remaining -= buf.Len()
			i++

			continue
		}
		out = append(out, buf.slice(0, remaining))
		l.buffers[i] = buf.slice(remaining, buf.Len())
		remaining = 0
	}
	l.buffers = l.buffers[i:]
	l.total -= n

	return out
}

// Take returns n bytes as a single contiguous buffer, flushed from the
// list. The bytes are copied only if the window spans more than one
// internal buffer.
func (l *List) Take(n int) Buffer {
	parts := l.consume(n)
	if len(parts) == 0 {
		return NewOwned(nil)
	}
	if len(parts) == 1 {
		return parts[0]
	}

	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p.Bytes()...)
	}

	return NewOwned(out)
}

// TakeList returns n bytes worth of the original internal buffers
// (trimmed at either end as needed), flushed from the list.
func (l *List) TakeList(n int) []Buffer {
	return l.consume(n)
}

// Peek copies n bytes starting at offset into out without consuming
// them. out must have length >= n.
func (l *List) Peek(offset, n int, out []byte) {
	pos := 0
	filled := 0
	for _, buf := range l.buffers {
		if filled >= n {
			break
		}
		bl := buf.Len()
		if pos+bl <= offset {
			pos += bl

			continue
		}
		start := 0
		if pos < offset {
			start = offset - pos
		}
		avail := bl - start
		toCopy := n - filled
		if toCopy > avail {
			toCopy = avail
		}
		copy(out[filled:filled+toCopy], buf.Bytes()[start:start+toCopy])
		filled += toCopy
		pos += bl
	}
}
