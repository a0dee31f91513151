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

// Package lineio provides blocking-style helpers over a deadline-capable
// net.Conn: write_all/read_exact and a CRLF line writer/scanner, each
// bounded by a busy timeout. The negotiation routines in negotiation/ are
// text-line-oriented and run over connections the session engine otherwise
// drives non-blocking, so a minimal scanf/printf pair keeps them
// declarative the way spec §4.2 describes.
package lineio

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/sabouaram/tlstunnel/errors"
	"github.com/sabouaram/tlstunnel/logger"
)

// MaxLineLength bounds a single negotiated protocol line; a longer line is
// a protocol violation, not a buffer to grow.
const MaxLineLength = 4096

const floor errors.CodeError = 9100

const (
	// ErrTimeout is returned when a helper could not complete within its
	// busy timeout.
	ErrTimeout errors.CodeError = floor + iota
	// ErrClosed is returned on EOF before the requested length was read.
	ErrClosed
	// ErrLineTooLong is returned when a line scan exceeds MaxLineLength
	// without finding LF.
	ErrLineTooLong
)

func init() {
	errors.Register(floor, func(c errors.CodeError) string {
		switch c {
		case ErrTimeout:
			return "lineio: busy timeout exceeded"
		case ErrClosed:
			return "lineio: connection closed before length satisfied"
		case ErrLineTooLong:
			return "lineio: line exceeds maximum length"
		default:
			return ""
		}
	})
}

// WriteAll writes the whole of p to conn, looping over short writes, under
// a write deadline of busyTimeout. The first write error ends the call; a
// deadline expiry is returned as ErrTimeout.
func WriteAll(conn net.Conn, p []byte, busyTimeout time.Duration) error {
	if e := conn.SetWriteDeadline(time.Now().Add(busyTimeout)); e != nil {
		return e
	}
	defer conn.SetWriteDeadline(time.Time{})

	for len(p) > 0 {
		n, e := conn.Write(p)
		if n > 0 {
			p = p[n:]
		}
		if e == nil {
			continue
		}
		if ne, ok := e.(net.Error); ok && ne.Timeout() {
			return ErrTimeout.Error(e)
		}
		return e
	}
	return nil
}

// ReadExact reads exactly len(p) bytes into p, failing on EOF before the
// requested length or on busyTimeout elapsing.
func ReadExact(conn net.Conn, p []byte, busyTimeout time.Duration) error {
	if e := conn.SetReadDeadline(time.Now().Add(busyTimeout)); e != nil {
		return e
	}
	defer conn.SetReadDeadline(time.Time{})

	_, e := io.ReadFull(conn, p)
	if e == nil {
		return nil
	}
	if e == io.EOF || e == io.ErrUnexpectedEOF {
		return ErrClosed.Error(e)
	}
	if ne, ok := e.(net.Error); ok && ne.Timeout() {
		return ErrTimeout.Error(e)
	}
	return e
}

// WriteLine formats line (bounded to MaxLineLength), appends CRLF, writes
// it with WriteAll, and logs the emitted line at debug level.
func WriteLine(conn net.Conn, busyTimeout time.Duration, log logger.Logger, line string) error {
	if len(line) > MaxLineLength {
		return ErrLineTooLong.Error(nil)
	}
	if log != nil {
		log.Debug("lineio: >> "+line, nil)
	}
	return WriteAll(conn, []byte(line+"\r\n"), busyTimeout)
}

// Printf is WriteLine with fmt.Sprintf formatting.
func Printf(conn net.Conn, busyTimeout time.Duration, log logger.Logger, format string, args ...interface{}) error {
	return WriteLine(conn, busyTimeout, log, fmt.Sprintf(format, args...))
}

// Scanner reads CRLF/LF-terminated lines from conn, one byte at a time
// (CR is skipped, not delivered), bounded by a busy timeout per line.
type Scanner struct {
	conn    net.Conn
	timeout time.Duration
	log     logger.Logger
	r       *bufio.Reader
}

// NewScanner returns a Scanner reading lines from conn.
func NewScanner(conn net.Conn, busyTimeout time.Duration, log logger.Logger) *Scanner {
	return &Scanner{conn: conn, timeout: busyTimeout, log: log, r: bufio.NewReader(conn)}
}

// ReadLine reads one line (CR and LF stripped), bounded by the busy
// timeout. Returns ErrLineTooLong if MaxLineLength is exceeded without LF.
func (s *Scanner) ReadLine() (string, error) {
	if e := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); e != nil {
		return "", e
	}
	defer s.conn.SetReadDeadline(time.Time{})

	var b strings.Builder
	var one [1]byte
	for {
		_, e := io.ReadFull(s.conn, one[:])
		c := one[0]
		if e != nil {
			if ne, ok := e.(net.Error); ok && ne.Timeout() {
				return "", ErrTimeout.Error(e)
			}
			if e == io.EOF {
				return "", ErrClosed.Error(e)
			}
			return "", e
		}
		if c == '\n' {
			break
		}
		if c == '\r' {
			continue
		}
		if b.Len() >= MaxLineLength {
			return "", ErrLineTooLong.Error(nil)
		}
		b.WriteByte(c)
	}

	line := b.String()
	if s.log != nil {
		s.log.Debug("lineio: << "+line, nil)
	}
	return line, nil
}

// Scanf reads one line and parses it with fmt.Sscanf against format. If
// the parse fails, both format and the line are lowercased and the parse
// is retried exactly once, tolerating servers that lowercase verbs. It
// returns the number of fields successfully bound.
func (s *Scanner) Scanf(format string, args ...interface{}) (int, string, error) {
	line, e := s.ReadLine()
	if e != nil {
		return 0, "", e
	}

	n, e := fmt.Sscanf(line, format, args...)
	if e == nil {
		return n, line, nil
	}

	n2, e2 := fmt.Sscanf(strings.ToLower(line), strings.ToLower(format), args...)
	if e2 == nil {
		return n2, line, nil
	}
	return n, line, e
}
