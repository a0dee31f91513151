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

package dial

import (
	"net"
	"os"
	"os/exec"
	"strings"
)

// PeerCertDN carries the subject/issuer distinguished names of the remote
// peer's TLS certificate, when one was presented, for SpawnProgram to
// export as SSL_CLIENT_DN / SSL_CLIENT_I_DN (SPEC_FULL.md §5 supplemented
// feature, from client.c's connect_local child-setup path).
type PeerCertDN struct {
	Subject string
	Issuer  string
}

// SpawnOptions configures SpawnProgram.
type SpawnOptions struct {
	// Name and Args are the program and arguments to execvp, equivalent
	// to c->opt->execname / execargs in client.c.
	Name string
	Args []string
	// AcceptingAddress is the textual address the plaintext endpoint was
	// accepted on; its host part (port stripped) becomes REMOTE_HOST.
	AcceptingAddress string
	// PreloadLibrary mirrors client.c's LD_PRELOAD injection for address
	// impersonation in transparent mode; left empty to skip it.
	PreloadLibrary string
	// PeerCert is nil when the session has no TLS peer certificate yet
	// (e.g. client mode, or a server mode session with no client-cert
	// requirement).
	PeerCert *PeerCertDN
	Foreground bool
}

// SpawnProgram starts Name/Args as a child process connected to this
// process over a socket pair, the parent side becoming the caller's
// plaintext endpoint (spec §4.4 "Local program spawning"). The child's
// stdin/stdout (and stderr unless Foreground) are dup'd onto the
// child-side socket, REMOTE_HOST (and optionally SSL_CLIENT_DN/
// SSL_CLIENT_I_DN) are exported, and the parent-side descriptor is marked
// close-on-exec so it is never leaked into further children.
func SpawnProgram(opts SpawnOptions) (net.Conn, *os.Process, error) {
	parentConn, childConn, e := socketpair()
	if e != nil {
		return nil, nil, e
	}

	childFile, e := childConn.File()
	if e != nil {
		_ = parentConn.Close()
		_ = childConn.Close()
		return nil, nil, e
	}
	defer childFile.Close()
	_ = childConn.Close()

	cmd := exec.Command(opts.Name, opts.Args...)
	cmd.Stdin = childFile
	cmd.Stdout = childFile
	if !opts.Foreground {
		cmd.Stderr = childFile
	}

	cmd.Env = append(os.Environ(), "REMOTE_HOST="+stripPort(opts.AcceptingAddress))
	if opts.PreloadLibrary != "" {
		cmd.Env = append(cmd.Env, "LD_PRELOAD="+opts.PreloadLibrary)
	}
	if opts.PeerCert != nil {
		cmd.Env = append(cmd.Env,
			"SSL_CLIENT_DN="+opts.PeerCert.Subject,
			"SSL_CLIENT_I_DN="+opts.PeerCert.Issuer,
		)
	}

	if e = cmd.Start(); e != nil {
		_ = parentConn.Close()
		return nil, nil, e
	}

	return parentConn, cmd.Process, nil
}

func stripPort(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}

// socketpair returns a connected pair of *net.UnixConn, the portable
// equivalent of make_sockets() in client.c (a UNIX socketpair rather than
// the loopback-TCP fallback the original uses on platforms lacking one).
func socketpair() (parent, child *net.UnixConn, err error) {
	fds, e := newSocketpair()
	if e != nil {
		return nil, nil, e
	}

	pf := os.NewFile(uintptr(fds[0]), "dial-parent")
	cf := os.NewFile(uintptr(fds[1]), "dial-child")
	defer pf.Close()
	defer cf.Close()

	pc, e := net.FileConn(pf)
	if e != nil {
		return nil, nil, e
	}
	cc, e := net.FileConn(cf)
	if e != nil {
		_ = pc.Close()
		return nil, nil, e
	}

	return pc.(*net.UnixConn), cc.(*net.UnixConn), nil
}
