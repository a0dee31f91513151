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

package session

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/sabouaram/tlstunnel/logger"
)

// pumpState is the shared flag that lets each directional pump tell
// whether the *session as a whole* has begun its final drain — i.e.
// whether either direction has already seen its read side close and
// propagated a half-close. While clear, a pump blocks its reads on the
// idle timeout; once set, both pumps switch to the close timeout, the
// goroutine-pump translation of spec §4.6 phase 2's idle-vs-close choice.
type pumpState struct {
	closing atomic.Bool
}

func (p *pumpState) markClosing() {
	p.closing.Store(true)
}

func (p *pumpState) isClosing() bool {
	return p.closing.Load()
}

// halfCloser is satisfied by *net.TCPConn, *tls.Conn and similar
// connections that can shut down their write side without closing reads.
type halfCloser interface {
	CloseWrite() error
}

// closeWrite half-closes dst's write side if it supports it, best effort;
// connections that don't (e.g. a net.Pipe side in tests) are left for the
// caller's own Close.
func closeWrite(dst net.Conn) {
	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
}

func isTimeoutErr(e error) bool {
	ne, ok := e.(net.Error)
	return ok && ne.Timeout()
}

// pump copies bytes from src to dst through a fixed-capacity FIFO buffer
// until src's read side reaches EOF and the buffer is drained, at which
// point it propagates exactly one half-close onto dst (spec §8 property
// 3). It is the re-expression of phases 4-8 of the original single-loop
// engine as one direction's half of the pair.
func pump(ctx context.Context, src, dst net.Conn, counter *int64, state *pumpState, opts Options, log logger.Logger, label string) error {
	buf := pumpBuffer(opts)
	srcEOF := false
	watchdog := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		progressed := false

		if !srcEOF && !buf.Full() {
			deadline := opts.IdleTimeout
			if state.isClosing() {
				deadline = opts.CloseTimeout
			}
			if deadline > 0 {
				_ = src.SetReadDeadline(time.Now().Add(deadline))
			}

			n, e := src.Read(buf.WritableSlice())
			if n > 0 {
				buf.Produced(n)
				progressed = true
			}
			if e != nil {
				switch {
				case isTimeoutErr(e):
					if buf.Empty() {
						if state.isClosing() {
							// Only waiting for the peer's close-notify;
							// spec §4.6 phase 2 treats this as success.
							return nil
						}
						log.Warning("session idle timeout", logger.Fields{"direction": label})
						return ErrIdleTimeout.Error(e)
					}
					// Buffered bytes remain; keep draining them below
					// instead of failing on this read's timeout.
				case e == io.EOF || e == io.ErrClosedPipe:
					srcEOF = true
					state.markClosing()
					progressed = true
				default:
					log.Error("session read failed", logger.Fields{"direction": label, "error": e.Error()})
					return ErrIOFailure.Error(e)
				}
			}
		}

		if !buf.Empty() {
			if opts.BusyTimeout > 0 {
				_ = dst.SetWriteDeadline(time.Now().Add(opts.BusyTimeout))
			}
			n, e := dst.Write(buf.ReadableSlice())
			if n > 0 {
				buf.Consumed(n)
				atomic.AddInt64(counter, int64(n))
				progressed = true
			}
			if e != nil {
				log.Error("session write failed", logger.Fields{"direction": label, "error": e.Error()})
				return ErrIOFailure.Error(e)
			}
		}

		if srcEOF && buf.Empty() {
			closeWrite(dst)
			return nil
		}

		if !progressed {
			watchdog++
			if watchdog > maxWatchdogIterations {
				log.Error("session watchdog exceeded", logger.Fields{"direction": label})
				return ErrWatchdog.Error(nil)
			}
		} else {
			watchdog = 0
		}
	}
}
