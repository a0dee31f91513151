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

// Package tlsdriver drives the non-blocking TLS handshake (spec §4.5) over
// an already-connected net.Conn, using a certificates.TLSConfig as the
// shared context a Driver is built from. It binds every handshake to a
// busy-timeout-bearing context in place of the original's WANT_READ/
// WANT_WRITE poll loop (SPEC_FULL.md §4 REDESIGN), and logs the negotiated
// cipher once the handshake completes.
package tlsdriver

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/sabouaram/tlstunnel/certificates"
	"github.com/sabouaram/tlstunnel/errors"
	"github.com/sabouaram/tlstunnel/logger"
)

const floor errors.CodeError = 9400

const (
	// ErrHandshakeTimeout is returned when the handshake does not complete
	// within the busy timeout.
	ErrHandshakeTimeout errors.CodeError = floor + iota
	// ErrHandshakeFailed wraps a permanent (non-timeout) handshake failure,
	// e.g. a certificate verification failure or protocol mismatch.
	ErrHandshakeFailed
)

func init() {
	errors.Register(floor, func(c errors.CodeError) string {
		switch c {
		case ErrHandshakeTimeout:
			return "tlsdriver: handshake did not complete within the busy timeout"
		case ErrHandshakeFailed:
			return "tlsdriver: handshake failed"
		default:
			return ""
		}
	})
}

// Mode selects which side of the handshake Handshake drives.
type Mode int

const (
	// Client drives an outbound (dialer-side) handshake.
	Client Mode = iota
	// Server drives an inbound (acceptor-side) handshake.
	Server
)

// Driver binds a certificates.TLSConfig to a server name and wraps plain
// connections into TLS connections on demand.
type Driver struct {
	TLSConfig  certificates.TLSConfig
	ServerName string
	Logger     logger.Logger
}

// New returns a Driver around cfg, logging handshake outcomes via log (or
// logger.Default() if log is nil).
func New(cfg certificates.TLSConfig, serverName string, log logger.Logger) *Driver {
	if log == nil {
		log = logger.Default()
	}
	return &Driver{TLSConfig: cfg, ServerName: serverName, Logger: log}
}

// Handshake wraps conn in a *tls.Conn for the given mode and drives the
// handshake to completion, bounded by busyTimeout. A sessionID, when
// non-empty, is added to the handshake's log fields only; it is not bound
// to the TLS connection or to any cache key. Client-side resumption goes
// through certificates' clientSessionCache (consumed through
// TLSConfig.TLS), which crypto/tls keys by server name.
func (d *Driver) Handshake(ctx context.Context, conn net.Conn, mode Mode, busyTimeout time.Duration, sessionID string) (*tls.Conn, error) {
	cnf := d.TLSConfig.TLS(d.ServerName)

	var tconn *tls.Conn
	switch mode {
	case Client:
		tconn = tls.Client(conn, cnf)
	case Server:
		tconn = tls.Server(conn, cnf)
	}

	hctx := ctx
	var cancel context.CancelFunc
	if busyTimeout > 0 {
		hctx, cancel = context.WithTimeout(ctx, busyTimeout)
		defer cancel()
	}

	fields := logger.Fields{"mode": modeString(mode), "server_name": d.ServerName}
	if sessionID != "" {
		fields["session_id"] = sessionID
	}

	if e := tconn.HandshakeContext(hctx); e != nil {
		if hctx.Err() != nil {
			d.Logger.Warning("tls handshake timed out", fields)
			return nil, ErrHandshakeTimeout.Error(e)
		}
		d.Logger.Error("tls handshake failed", logger.Fields{"mode": modeString(mode), "error": e.Error()})
		return nil, ErrHandshakeFailed.Error(e)
	}

	state := tconn.ConnectionState()
	fields["cipher"] = tls.CipherSuiteName(state.CipherSuite)
	fields["resumed"] = state.DidResume
	if desc := d.TLSConfig.CipherDescription(); desc != "" {
		fields["ciphers_configured"] = desc
	}
	d.Logger.Debug("tls handshake complete", fields)

	return tconn, nil
}

func modeString(m Mode) string {
	if m == Server {
		return "server"
	}
	return "client"
}
