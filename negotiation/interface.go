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

// Package negotiation implements the STARTTLS-style application-protocol
// pre-phase (spec §4.3): one pair of {client, server} routines per
// supported protocol, run strictly before TLS establishment on whichever
// descriptor the mode dictates. Unknown protocol names and unsupported
// role/protocol pairs fail with a diagnostic rather than silently
// continuing to TLS.
package negotiation

import (
	"net"
	"time"

	"github.com/sabouaram/tlstunnel/errors"
	"github.com/sabouaram/tlstunnel/logger"
)

// Role is which side of the negotiation this session plays.
type Role int

const (
	Client Role = iota
	Server
)

func (r Role) String() string {
	if r == Client {
		return "client"
	}
	return "server"
}

const floor errors.CodeError = 9200

const (
	// ErrUnknownProtocol is returned for a protocol name with no dispatch
	// entry at all.
	ErrUnknownProtocol errors.CodeError = floor + iota
	// ErrUnsupported is returned for a known protocol with no routine for
	// the requested role (e.g. POP3 server, SMB either side).
	ErrUnsupported
	// ErrProtocol is returned when the peer's wire response doesn't match
	// what the protocol's RFC requires (wrong greeting, STARTTLS refused).
	ErrProtocol
)

func init() {
	errors.Register(floor, func(c errors.CodeError) string {
		switch c {
		case ErrUnknownProtocol:
			return "negotiation: unknown protocol"
		case ErrUnsupported:
			return "negotiation: unsupported role for this protocol"
		case ErrProtocol:
			return "negotiation: peer violated protocol"
		default:
			return ""
		}
	})
}

// Session is the subset of session state the negotiation routines touch:
// the local plaintext endpoint they relay to/from, the remote endpoint
// they speak the application protocol over, and the service tag appended
// to the server-mode greeting relay.
type Session struct {
	// Local is the plaintext endpoint (e.g. the client mailer in server
	// mode, or the proxied application in client mode).
	Local net.Conn
	// Remote is the socket the application protocol is actually spoken
	// over; always a socket per spec §3 Data Model.
	Remote net.Conn

	BusyTimeout time.Duration
	ServiceTag  string
	Logger      logger.Logger
}

type routine func(*Session) error

var dispatch = map[string]struct {
	client routine
	server routine
}{
	"smtp":   {client: smtpClient, server: smtpServer},
	"pop3":   {client: pop3Client, server: pop3Server},
	"nntp":   {client: nntpClient, server: nntpServer},
	"smb":    {client: unsupported, server: unsupported},
	"telnet": {client: unsupported, server: unsupported},
}

// Negotiate runs the client or server routine for protocol. An empty
// protocol name is not routed here; callers skip negotiation entirely in
// that case (spec §4.3 "Unknown names fail" applies only once a name is
// actually supplied).
func Negotiate(protocol string, role Role, sess *Session) error {
	d, ok := dispatch[protocol]
	if !ok {
		if sess.Logger != nil {
			sess.Logger.Error("negotiation: unknown protocol", logger.Fields{"protocol": protocol})
		}
		return ErrUnknownProtocol.Error(nil)
	}

	if sess.Logger != nil {
		sess.Logger.Debug("negotiation: started", logger.Fields{"protocol": protocol, "role": role.String()})
	}

	if role == Client {
		return d.client(sess)
	}
	return d.server(sess)
}

func unsupported(sess *Session) error {
	if sess.Logger != nil {
		sess.Logger.Error("negotiation: protocol not supported for this role", nil)
	}
	return ErrUnsupported.Error(nil)
}
