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

//go:build linux

package dial

import (
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/tlstunnel/poll"
)

// dialOne connects to addr with a raw non-blocking socket, mirroring
// connect_remote/connect_wait in src/network.c: create the socket, bind if
// a source address was chosen, issue a non-blocking connect, and if it
// returns EINPROGRESS wait on combined read+write readiness with the
// connect timeout before confirming success via SO_ERROR.
func dialOne(addr, localAddr string, timeout time.Duration) (net.Conn, error) {
	raddr, e := net.ResolveTCPAddr("tcp4", addr)
	if e != nil {
		return nil, e
	}

	fd, e := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if e != nil {
		return nil, os.NewSyscallError("socket", e)
	}
	closeOnErr := true
	defer func() {
		if closeOnErr {
			_ = unix.Close(fd)
		}
	}()

	if e = unix.SetNonblock(fd, true); e != nil {
		return nil, os.NewSyscallError("setnonblock", e)
	}

	if localAddr != "" {
		if laddr, e := net.ResolveTCPAddr("tcp4", localAddr); e == nil && laddr.IP != nil {
			sa := &unix.SockaddrInet4{}
			copy(sa.Addr[:], laddr.IP.To4())
			sa.Port = laddr.Port
			if e = unix.Bind(fd, sa); e != nil {
				return nil, os.NewSyscallError("bind", e)
			}
		}
	}

	sa := &unix.SockaddrInet4{Port: raddr.Port}
	copy(sa.Addr[:], raddr.IP.To4())

	e = unix.Connect(fd, sa)
	if e == nil {
		closeOnErr = false
		return fdToConn(fd)
	}
	if e != unix.EINPROGRESS && e != unix.EAGAIN {
		return nil, os.NewSyscallError("connect", e)
	}

	set := poll.New()
	set.Add(fd, true, true)
	n, werr := set.Wait(timeout)
	if werr != nil {
		return nil, werr
	}
	if n == 0 {
		return nil, ErrConnectTimeout.Error(nil)
	}

	errno, e := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if e != nil {
		return nil, os.NewSyscallError("getsockopt", e)
	}
	if errno != 0 {
		return nil, os.NewSyscallError("connect", unix.Errno(errno))
	}

	closeOnErr = false
	return fdToConn(fd)
}

func fdToConn(fd int) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), "dial")
	conn, e := net.FileConn(f)
	_ = f.Close() // FileConn dup'd the descriptor; release our copy
	if e != nil {
		_ = unix.Close(fd)
		return nil, e
	}
	return conn, nil
}

// ForceReset sets SO_LINGER(onoff=1, linger=0) on conn so the peer observes
// a TCP reset rather than a half-complete FIN, per spec §9 "Forced RST vs
// graceful FIN". Per SPEC_FULL.md §5, this is called only from the
// session's error-path cleanup, never on a successful close.
func ForceReset(conn net.Conn) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, e := sc.SyscallConn()
	if e != nil {
		return e
	}

	var setErr error
	e = rc.Control(func(fd uintptr) {
		setErr = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0})
	})
	if e != nil {
		return e
	}
	return setErr
}
