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

// Package dial implements connection establishment (spec §4.4): resolving
// and connecting to a remote address list with a round-robin starting
// position, source-address binding for explicit or transparent-proxy
// modes, and (server mode) spawning a local child process whose standard
// streams become the plaintext endpoint.
package dial

import (
	"net"
	"time"

	"github.com/sabouaram/tlstunnel/errors"
)

const floor errors.CodeError = 9300

const (
	// ErrNoAddresses is returned by AddressList.Next when the list is empty.
	ErrNoAddresses errors.CodeError = floor + iota
	// ErrExhausted is returned when every candidate address in the list
	// failed to connect.
	ErrExhausted
	// ErrConnectTimeout is returned when a non-blocking connect did not
	// complete within the connect timeout.
	ErrConnectTimeout
)

func init() {
	errors.Register(floor, func(c errors.CodeError) string {
		switch c {
		case ErrNoAddresses:
			return "dial: address list is empty"
		case ErrExhausted:
			return "dial: every candidate address failed"
		case ErrConnectTimeout:
			return "dial: connect timed out"
		default:
			return ""
		}
	})
}

// AddressList is a pre-resolved destination pool with a round-robin cursor
// advanced by Next. Per spec §9 Open Question 3 / SPEC_FULL.md §5, the
// cursor lives on the shared list (not per-session) and advances with a
// plain, deliberately unlocked increment — a benign race under concurrent
// sessions, preserved rather than fixed.
type AddressList struct {
	Addrs []string
	cur   int
}

// Next returns the address list starting at the current round-robin
// cursor, advancing the cursor by one for the following call.
func (l *AddressList) Next() ([]string, error) {
	n := len(l.Addrs)
	if n == 0 {
		return nil, ErrNoAddresses.Error(nil)
	}

	start := l.cur % n
	l.cur = (l.cur + 1) % n // unlocked on purpose; see type doc

	ordered := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ordered = append(ordered, l.Addrs[(start+i)%n])
	}
	return ordered, nil
}

// BindMode selects the source address chosen for the outbound connect.
type BindMode int

const (
	// BindNone leaves the outbound socket unbound.
	BindNone BindMode = iota
	// BindExplicit binds to a configured local source address.
	BindExplicit
	// BindTransparent binds to the local peer's own address (transparent
	// proxy mode), as recorded by ConnectOptions.LocalPeerAddr.
	BindTransparent
)

// ConnectOptions configures Connect.
type ConnectOptions struct {
	Addresses      *AddressList
	ConnectTimeout time.Duration
	BindMode       BindMode
	ExplicitSource string
	// LocalPeerAddr is the address connect_remote would read from the
	// local socket's own getsockname() in transparent mode; resolved by
	// the caller since only it has the local endpoint available. Falls
	// back silently to unbound when the local side is not a socket
	// (src/network.c / SPEC_FULL.md §5 supplemented behavior).
	LocalPeerAddr string
}

// Connect resolves opts.Addresses starting at the round-robin cursor and
// connects to the first address that succeeds, per spec §4.4. Each
// candidate gets a fresh, non-blocking connect bounded by ConnectTimeout;
// an EINPROGRESS result is resolved with a combined read+write readiness
// wait, then confirmed via SO_ERROR.
func Connect(opts ConnectOptions) (net.Conn, error) {
	addrs, e := opts.Addresses.Next()
	if e != nil {
		return nil, e
	}

	var localAddr string
	switch opts.BindMode {
	case BindExplicit:
		localAddr = opts.ExplicitSource
	case BindTransparent:
		localAddr = opts.LocalPeerAddr
	}

	var lastErr error
	for _, addr := range addrs {
		conn, e := dialOne(addr, localAddr, opts.ConnectTimeout)
		if e == nil {
			return conn, nil
		}
		lastErr = e
	}

	if lastErr == nil {
		lastErr = ErrExhausted.Error(nil)
	} else {
		lastErr = ErrExhausted.Error(lastErr)
	}
	return nil, lastErr
}
