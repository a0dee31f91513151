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

// Package poll is a uniform readiness-polling facade over a descriptor-array
// poll(2) call, used by dial (non-blocking connect-with-timeout) and the
// SMTP server's RFC 2487-vs-raw-TLS probe, where no net.Conn deadline
// applies.
package poll

import "time"

// MaxDescriptors caps the number of distinct fds a Set can track; add
// beyond this logs and ignores the overflow rather than growing unbounded.
const MaxDescriptors = 1024

// Set is a readiness-polling registration set. A Set returned by New starts
// with no registrations; obtain one from New, as a nil Set has no methods
// to call.
type Set interface {
	// Zero discards all registrations.
	Zero()

	// Add registers interest in fd for the directions requested. Re-adding
	// the same fd unions the interests with whatever was already set.
	// Overflow past MaxDescriptors is logged and ignored, never fatal.
	Add(fd int, wantRead, wantWrite bool)

	// Wait blocks up to timeout (negative = infinite) for any registered
	// fd to become ready. Returns the number ready (>0), 0 on timeout, or
	// a negative count on error. EINTR is retried internally and never
	// surfaces to the caller.
	Wait(timeout time.Duration) (int, error)

	// CanRead reports whether fd was readable after the most recent Wait.
	CanRead(fd int) bool

	// CanWrite reports whether fd was writable after the most recent Wait.
	CanWrite(fd int) bool
}

// New returns a Set backed by the platform's poll(2) syscall.
func New() Set {
	return newPollSet()
}
