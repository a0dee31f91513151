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

package negotiation

import (
	"net"
	"strings"
	"syscall"

	"github.com/sabouaram/tlstunnel/ioutils/lineio"
	"github.com/sabouaram/tlstunnel/poll"
)

// smtpClient implements spec §4.3's SMTP client flow and §8 scenario S1.
func smtpClient(sess *Session) error {
	sc := lineio.NewScanner(sess.Remote, sess.BusyTimeout, sess.Logger)

	for {
		line, e := sc.ReadLine()
		if e != nil {
			return e
		}
		if e = lineio.WriteLine(sess.Local, sess.BusyTimeout, sess.Logger, line); e != nil {
			return e
		}
		if !strings.HasPrefix(line, "220-") {
			break
		}
	}

	if e := lineio.WriteLine(sess.Remote, sess.BusyTimeout, sess.Logger, "EHLO localhost"); e != nil {
		return e
	}

	var last string
	for {
		line, e := sc.ReadLine()
		if e != nil {
			return e
		}
		last = line
		if !strings.HasPrefix(line, "250-") {
			break
		}
	}
	if !strings.HasPrefix(last, "250 ") {
		logErr(sess, "remote not RFC 1425")
		return ErrProtocol.Error(nil)
	}

	if e := lineio.WriteLine(sess.Remote, sess.BusyTimeout, sess.Logger, "STARTTLS"); e != nil {
		return e
	}

	for {
		line, e := sc.ReadLine()
		if e != nil {
			return e
		}
		last = line
		if !strings.HasPrefix(line, "220-") {
			break
		}
	}
	if !strings.HasPrefix(last, "220 ") {
		logErr(sess, "remote not RFC 2487")
		return ErrProtocol.Errorf("negotiation: remote not RFC 2487")
	}

	return nil
}

// smtpServer implements spec §4.3's SMTP server flow, including the
// zero-timeout RFC 2487-vs-raw-TLS probe of §8 scenario S4 and §9 Open
// Question 2 (a deliberately racy heuristic against a slow client).
func smtpServer(sess *Session) error {
	raw, e := ProbeRawTLS(sess.Local)
	if e != nil {
		return e
	}
	if raw {
		if sess.Logger != nil {
			sess.Logger.Debug("negotiation: RFC 2487 not detected, raw TLS", nil)
		}
		return nil
	}

	remote := lineio.NewScanner(sess.Remote, sess.BusyTimeout, sess.Logger)
	greeting, e := remote.ReadLine()
	if e != nil {
		logErr(sess, "unknown server welcome")
		return e
	}
	if !strings.HasPrefix(greeting, "220") {
		logErr(sess, "unknown server welcome")
		return ErrProtocol.Error(nil)
	}

	if e = lineio.Printf(sess.Local, sess.BusyTimeout, sess.Logger, "%s + %s", greeting, sess.ServiceTag); e != nil {
		return e
	}

	local := lineio.NewScanner(sess.Local, sess.BusyTimeout, sess.Logger)
	helo, e := local.ReadLine()
	if e != nil {
		logErr(sess, "unknown client EHLO")
		return e
	}
	domain := strings.TrimPrefix(helo, "EHLO ")
	if domain == helo {
		logErr(sess, "unknown client EHLO")
		return ErrProtocol.Error(nil)
	}

	if e = lineio.Printf(sess.Local, sess.BusyTimeout, sess.Logger, "250-%s Welcome", domain); e != nil {
		return e
	}
	if e = lineio.WriteLine(sess.Local, sess.BusyTimeout, sess.Logger, "250 STARTTLS"); e != nil {
		return e
	}

	cmd, e := local.ReadLine()
	if e != nil || cmd != "STARTTLS" {
		logErr(sess, "STARTTLS expected")
		if e != nil {
			return e
		}
		return ErrProtocol.Error(nil)
	}

	return lineio.WriteLine(sess.Local, sess.BusyTimeout, sess.Logger, "220 Go ahead")
}

func logErr(sess *Session, msg string) {
	if sess.Logger != nil {
		sess.Logger.Error("negotiation: "+msg, nil)
	}
}

// ProbeRawTLS answers "is data already pending on conn's read side?" with a
// zero-timeout readiness poll, per spec §4.3 S4 and §9 Open Question 2:
// not ready means the client is following RFC 2487 (STARTTLS-inside-SMTP);
// ready (bytes already present) means raw TLS, and negotiation is skipped.
// This is a deliberately racy heuristic against a slow RFC 2487 client,
// preserved as documented behavior rather than fixed.
func ProbeRawTLS(conn net.Conn) (bool, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		// No raw descriptor available (e.g. a test net.Pipe): assume
		// RFC 2487, the common case, rather than fail outright.
		return false, nil
	}

	rc, e := sc.SyscallConn()
	if e != nil {
		return false, e
	}

	var ready bool
	var ctrlErr error
	e = rc.Control(func(fd uintptr) {
		set := poll.New()
		set.Add(int(fd), true, false)
		n, werr := set.Wait(0)
		if werr != nil {
			ctrlErr = werr
			return
		}
		ready = n > 0 && set.CanRead(int(fd))
	})
	if e != nil {
		return false, e
	}
	if ctrlErr != nil {
		return false, ctrlErr
	}

	return ready, nil
}
