/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package pipebuf is a fixed-capacity FIFO byte buffer, the sock_buf/ssl_buf
// of the data-pump transfer engine: bytes read from one side sit here until
// they are written to the other, front-compacted as they drain so the fill
// level never exceeds capacity and the two directions never alias a buffer.
package pipebuf

// Buffer is a strict FIFO: Produced appends at the tail, Consumed removes
// from the head. It is not safe for concurrent use; each directional pump goroutine
// owns exactly one.
type Buffer struct {
	buf  []byte
	fill int
}

// New returns a Buffer with the given fixed capacity.
func New(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// Len returns the current fill level.
func (b *Buffer) Len() int {
	return b.fill
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Free returns the remaining capacity.
func (b *Buffer) Free() int {
	return len(b.buf) - b.fill
}

// Full reports whether the buffer is at capacity.
func (b *Buffer) Full() bool {
	return b.fill == len(b.buf)
}

// Empty reports whether the buffer holds no bytes.
func (b *Buffer) Empty() bool {
	return b.fill == 0
}

// WritableSlice returns the tail region available for a single read call to
// fill; the caller must follow a successful read with Produced(n).
func (b *Buffer) WritableSlice() []byte {
	return b.buf[b.fill:]
}

// Produced records that n bytes were written into the slice returned by
// WritableSlice, advancing the fill level.
func (b *Buffer) Produced(n int) {
	b.fill += n
}

// ReadableSlice returns the head region available for a single write call
// to drain; the caller must follow a successful write with Consumed(n).
func (b *Buffer) ReadableSlice() []byte {
	return b.buf[:b.fill]
}

// Consumed removes the first n bytes, compacting the remainder to the
// front. An n of Len or more empties the buffer.
func (b *Buffer) Consumed(n int) {
	if n <= 0 {
		return
	}
	if n >= b.fill {
		b.fill = 0
		return
	}
	copy(b.buf, b.buf[n:b.fill])
	b.fill -= n
}

// Reset discards all buffered bytes without releasing the backing array.
func (b *Buffer) Reset() {
	b.fill = 0
}
