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

package poll

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/tlstunnel/logger"
)

// pollSet is the descriptor-array poll(2) implementation of Set. It is not
// safe for concurrent use by multiple goroutines; each session/dial/probe
// caller owns its own Set.
type pollSet struct {
	fds    []unix.PollFd
	index  map[int]int
	logger logger.Logger
}

func newPollSet() *pollSet {
	return &pollSet{index: make(map[int]int)}
}

func (p *pollSet) log() logger.Logger {
	if p.logger != nil {
		return p.logger
	}
	return logger.Default()
}

func (p *pollSet) Zero() {
	p.fds = p.fds[:0]
	for k := range p.index {
		delete(p.index, k)
	}
}

func (p *pollSet) Add(fd int, wantRead, wantWrite bool) {
	var events int16
	if wantRead {
		events |= unix.POLLIN
	}
	if wantWrite {
		events |= unix.POLLOUT
	}

	if i, ok := p.index[fd]; ok {
		p.fds[i].Events |= events
		return
	}

	if len(p.fds) >= MaxDescriptors {
		p.log().Warning("poll: descriptor overflow, ignoring registration", logger.Fields{"fd": fd, "max": MaxDescriptors})
		return
	}

	p.index[fd] = len(p.fds)
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: events})
}

func (p *pollSet) Wait(timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	for {
		n, err := unix.Poll(p.fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, err
		}
		return n, nil
	}
}

func (p *pollSet) CanRead(fd int) bool {
	i, ok := p.index[fd]
	if !ok {
		return false
	}
	return p.fds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
}

func (p *pollSet) CanWrite(fd int) bool {
	i, ok := p.index[fd]
	if !ok {
		return false
	}
	return p.fds[i].Revents&(unix.POLLOUT|unix.POLLERR) != 0
}
