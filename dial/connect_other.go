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

//go:build !linux

package dial

import (
	"net"
	"time"
)

// dialOne falls back to net.Dialer's own non-blocking-connect-with-timeout
// on platforms other than the Linux target connect_linux.go assumes; the
// poll-driven SO_ERROR confirmation is a Linux-specific optimization, not
// a behavior difference a caller can observe.
func dialOne(addr, localAddr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	if localAddr != "" {
		if la, e := net.ResolveTCPAddr("tcp", localAddr); e == nil {
			d.LocalAddr = la
		}
	}
	return d.Dial("tcp", addr)
}

// ForceReset is a no-op fallback; SO_LINGER tuning only matters on the
// Linux target this repo assumes.
func ForceReset(conn net.Conn) error {
	return nil
}
