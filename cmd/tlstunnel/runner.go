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

package main

import (
	"context"
	"net"

	"github.com/google/uuid"

	tlsaut "github.com/sabouaram/tlstunnel/certificates/auth"

	"github.com/sabouaram/tlstunnel/certificates"
	"github.com/sabouaram/tlstunnel/config"
	"github.com/sabouaram/tlstunnel/dial"
	"github.com/sabouaram/tlstunnel/logger"
	"github.com/sabouaram/tlstunnel/negotiation"
	"github.com/sabouaram/tlstunnel/session"
	"github.com/sabouaram/tlstunnel/tlsdriver"
)

// Tunnel runs one configured tlstunnel instance: a listener, the shared
// destination pool (round-robin cursor lives here, spec §5/§9 Open
// Question 3), and the TLS credential set every session's driver shares.
type Tunnel struct {
	Opts   config.Options
	Certs  certificates.TLSConfig
	Dest   *dial.AddressList
	Logger logger.Logger
}

// NewTunnel builds the shared, process-wide state a Tunnel's sessions
// draw from: one TLSConfig loaded once (spec §9 "process-wide state"),
// one AddressList per destination pool.
func NewTunnel(opts config.Options) *Tunnel {
	log := logger.Default()

	cfg := certificates.New()
	if opts.CertFile != "" || opts.KeyFile != "" {
		if e := cfg.AddCertificatePairFile(opts.KeyFile, opts.CertFile); e != nil {
			log.Error("failed to load certificate pair", logger.Fields{"error": e.Error()})
		}
	}
	if opts.CAFile != "" {
		if e := cfg.AddRootCAFile(opts.CAFile); e != nil {
			log.Error("failed to load root CA", logger.Fields{"error": e.Error()})
		}
	}
	if opts.ClientCAFile != "" {
		if e := cfg.AddClientCAFile(opts.ClientCAFile); e != nil {
			log.Error("failed to load client CA", logger.Fields{"error": e.Error()})
		}
		if opts.RequireClientCert {
			cfg.SetClientAuth(tlsaut.RequireAndVerifyClientCert)
		}
	}

	return &Tunnel{
		Opts:   opts,
		Certs:  cfg,
		Dest:   &dial.AddressList{Addrs: opts.Connect},
		Logger: log,
	}
}

// ListenAndServe accepts connections on Opts.Accept, handing each to
// handleClient or handleServer depending on Opts.Mode, until the listener
// errors out.
func (t *Tunnel) ListenAndServe() error {
	ln, e := net.Listen("tcp", t.Opts.Accept)
	if e != nil {
		return e
	}
	defer ln.Close()

	t.Logger.Info("tlstunnel listening", logger.Fields{"accept": t.Opts.Accept, "mode": string(t.Opts.Mode)})

	for {
		conn, e := ln.Accept()
		if e != nil {
			return e
		}
		go t.handle(conn)
	}
}

func (t *Tunnel) handle(conn net.Conn) {
	id := uuid.NewString()
	log := t.Logger.WithFields(logger.Fields{"session_id": id, "peer": conn.RemoteAddr().String()})

	var e error
	switch t.Opts.Mode {
	case config.ModeClient:
		e = t.handleClient(conn, id, log)
	case config.ModeServer:
		e = t.handleServer(conn, id, log)
	}
	if e != nil {
		log.Warning("session ended with error", logger.Fields{"error": e.Error()})
	}
}

func (t *Tunnel) sessionOpts() session.Options {
	return session.Options{
		BufferSize:   t.Opts.BufferSize,
		IdleTimeout:  t.Opts.IdleTimeout,
		CloseTimeout: t.Opts.CloseTimeout,
		BusyTimeout:  t.Opts.BusyTimeout,
	}
}

// handleClient dials the remote destination pool, runs any STARTTLS
// client negotiation on the plaintext connection, upgrades it to TLS, and
// pumps bytes against the locally accepted plaintext connection.
func (t *Tunnel) handleClient(local net.Conn, sessionID string, log logger.Logger) error {
	defer local.Close()

	remote, e := dial.Connect(dial.ConnectOptions{
		Addresses:      t.Dest,
		ConnectTimeout: t.Opts.ConnectTimeout,
	})
	if e != nil {
		return e
	}
	defer remote.Close()

	if t.Opts.Protocol != "" {
		nsess := &negotiation.Session{
			Local:       local,
			Remote:      remote,
			BusyTimeout: t.Opts.BusyTimeout,
			ServiceTag:  t.Opts.ServiceName,
			Logger:      log,
		}
		if e = negotiation.Negotiate(t.Opts.Protocol, negotiation.Client, nsess); e != nil {
			return e
		}
	}

	drv := tlsdriver.New(t.Certs, t.Opts.ServerName, log)
	secure, e := drv.Handshake(context.Background(), remote, tlsdriver.Client, t.Opts.BusyTimeout, sessionID)
	if e != nil {
		return e
	}

	_, e = session.New(local, secure, t.sessionOpts(), log).Run(context.Background())
	return e
}

// handleServer runs any STARTTLS server negotiation and the TLS accept
// handshake on the locally accepted connection, dials (or spawns) the
// plaintext destination, and pumps bytes between the two.
func (t *Tunnel) handleServer(local net.Conn, sessionID string, log logger.Logger) error {
	defer local.Close()

	var plain net.Conn
	var e error
	if t.Opts.LocalProgram != "" {
		plain, _, e = dial.SpawnProgram(dial.SpawnOptions{
			Name:             t.Opts.LocalProgram,
			Args:             t.Opts.LocalProgramArgs,
			AcceptingAddress: t.Opts.Accept,
		})
	} else {
		plain, e = dial.Connect(dial.ConnectOptions{
			Addresses:      t.Dest,
			ConnectTimeout: t.Opts.ConnectTimeout,
		})
	}
	if e != nil {
		return e
	}
	defer plain.Close()

	if t.Opts.Protocol != "" {
		nsess := &negotiation.Session{
			Local:       local,
			Remote:      plain,
			BusyTimeout: t.Opts.BusyTimeout,
			ServiceTag:  t.Opts.ServiceName,
			Logger:      log,
		}
		if e = negotiation.Negotiate(t.Opts.Protocol, negotiation.Server, nsess); e != nil {
			return e
		}
	}

	drv := tlsdriver.New(t.Certs, t.Opts.ServerName, log)
	secure, e := drv.Handshake(context.Background(), local, tlsdriver.Server, t.Opts.BusyTimeout, sessionID)
	if e != nil {
		return e
	}

	_, e = session.New(plain, secure, t.sessionOpts(), log).Run(context.Background())
	return e
}
