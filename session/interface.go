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

// Package session is the per-connection data-pump transfer engine (spec
// §4.6, "the heart") and its lifecycle (§4.7/§7): once a plaintext
// endpoint and a TLS endpoint are both connected, Run copies bytes
// bidirectionally between them until both sides are drained or a fatal
// error occurs; on the error path only, Run forces an RST on both
// endpoints before returning.
//
// See doc.go for the mapping from the original poll-driven state machine
// to this goroutine-pair shape.
package session

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sabouaram/tlstunnel/dial"
	"github.com/sabouaram/tlstunnel/errors"
	"github.com/sabouaram/tlstunnel/ioutils/pipebuf"
	"github.com/sabouaram/tlstunnel/logger"
)

const floor errors.CodeError = 9500

const (
	// ErrIdleTimeout is returned when no bytes moved in either direction
	// for the idle timeout while a read side was still open.
	ErrIdleTimeout errors.CodeError = floor + iota
	// ErrIOFailure wraps a terminal, non-timeout I/O error on either
	// endpoint.
	ErrIOFailure
	// ErrWatchdog is returned when an iteration budget was exhausted
	// without any progress — a compiler/library bug guard, not expected
	// in normal operation.
	ErrWatchdog
)

func init() {
	errors.Register(floor, func(c errors.CodeError) string {
		switch c {
		case ErrIdleTimeout:
			return "session: idle timeout with a read side still open"
		case ErrIOFailure:
			return "session: terminal I/O failure"
		case ErrWatchdog:
			return "session: watchdog exceeded with no progress"
		default:
			return ""
		}
	})
}

// maxWatchdogIterations bounds a pump loop spinning without progress
// (spec §4.6 phase 8, §8 property 7).
const maxWatchdogIterations = 1000

// defaultBufferSize is the pipebuf capacity used when Options.BufferSize
// is left at zero.
const defaultBufferSize = 16 * 1024

// Options configures a Session's timeouts and buffer sizing, sourced from
// the tunnel's shared config/options document (spec §6 "Config/options").
type Options struct {
	// BufferSize is the fixed capacity of each directional FIFO buffer.
	BufferSize int
	// IdleTimeout bounds data-plane inactivity while a read side is open.
	IdleTimeout time.Duration
	// CloseTimeout bounds the final drain once a direction is only
	// waiting for the peer's close-notify.
	CloseTimeout time.Duration
	// BusyTimeout bounds an individual write call.
	BusyTimeout time.Duration
}

func (o Options) bufferSize() int {
	if o.BufferSize <= 0 {
		return defaultBufferSize
	}
	return o.BufferSize
}

// Stats reports the bytes conserved in each direction for a completed
// session (spec §8 property 1).
type Stats struct {
	PlainToSecureBytes int64
	SecureToPlainBytes int64
}

// Session pairs a plaintext endpoint with its TLS endpoint and pumps
// bytes between them until both sides are drained.
type Session struct {
	Plain  net.Conn
	Secure net.Conn
	Opts   Options
	Logger logger.Logger
}

// New returns a Session ready to Run. log defaults to logger.Default()
// when nil.
func New(plain, secure net.Conn, opts Options, log logger.Logger) *Session {
	if log == nil {
		log = logger.Default()
	}
	return &Session{Plain: plain, Secure: secure, Opts: opts, Logger: log}
}

// Run drives both directional pumps to completion and returns the
// conserved byte counts. On any error it forces an RST on both endpoints
// before returning (§7 "force RST on error-exit"); a clean return never
// touches SO_LINGER.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	var state pumpState

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pump(gctx, s.Plain, s.Secure, &stats.PlainToSecureBytes, &state, s.Opts, s.Logger, "plain->secure")
	})
	g.Go(func() error {
		return pump(gctx, s.Secure, s.Plain, &stats.SecureToPlainBytes, &state, s.Opts, s.Logger, "secure->plain")
	})

	if e := g.Wait(); e != nil {
		s.Logger.Error("session terminated with error", logger.Fields{"error": e.Error()})
		_ = dial.ForceReset(s.Plain)
		_ = dial.ForceReset(s.Secure)
		return stats, e
	}

	return stats, nil
}

// pumpBuffer returns a fresh pipebuf.Buffer sized per opts, split out so
// tests can exercise pump's internals at a smaller capacity.
func pumpBuffer(opts Options) *pipebuf.Buffer {
	return pipebuf.New(opts.bufferSize())
}
