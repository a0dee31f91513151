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
	"strings"

	"github.com/sabouaram/tlstunnel/ioutils/lineio"
)

// nntpClient implements spec §4.3's NNTP client flow and §8 scenario S3.
func nntpClient(sess *Session) error {
	sc := lineio.NewScanner(sess.Remote, sess.BusyTimeout, sess.Logger)

	greeting, e := sc.ReadLine()
	if e != nil {
		return e
	}
	if !strings.HasPrefix(greeting, "200 ") && !strings.HasPrefix(greeting, "201 ") {
		logErr(sess, "unknown server welcome")
		return ErrProtocol.Error(nil)
	}
	if e = lineio.WriteLine(sess.Local, sess.BusyTimeout, sess.Logger, greeting); e != nil {
		return e
	}

	if e = lineio.WriteLine(sess.Remote, sess.BusyTimeout, sess.Logger, "STARTTLS"); e != nil {
		return e
	}

	reply, e := sc.ReadLine()
	if e != nil {
		return e
	}
	if !strings.HasPrefix(reply, "382 ") {
		logErr(sess, "server does not support TLS")
		return ErrProtocol.Error(nil)
	}

	return nil
}

// nntpServer is unsupported: spec §4.3 lists NNTP server negotiation as
// unimplemented.
func nntpServer(sess *Session) error {
	return unsupported(sess)
}
