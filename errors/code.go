/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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
 *
 */

// Package errors gives every failure mode of the tunnel a small numeric
// code instead of a bare error string, so a switch over a CodeError range
// is exhaustive at review time the way a closed sum type would be.
package errors

import (
	"sort"
)

// CodeError is a small numeric error classifier, grouped by range per
// package: each package that registers messages owns a contiguous band so
// codes never collide by accident.
type CodeError uint16

const (
	// UnknownError is returned by Message for any code nobody registered.
	UnknownError CodeError = 0

	UnknownMessage = "unknown error"
)

var registry = make(map[CodeError]func(CodeError) string)

// Register associates every code from floor upward with fct, until the
// next registered floor. Called once per package init.
func Register(floor CodeError, fct func(CodeError) string) {
	registry[floor] = fct
}

// Message returns the human-readable message for c, or UnknownMessage.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	floor := CodeError(0)
	for _, k := range sortedFloors() {
		if k <= c {
			floor = k
		}
	}

	if fct, ok := registry[floor]; ok {
		if m := fct(c); m != "" {
			return m
		}
	}

	return UnknownMessage
}

// Error builds an Error from this code, optionally wrapping parents.
func (c CodeError) Error(parents ...error) Error {
	return New(c, c.Message(), parents...)
}

// Errorf builds an Error from this code with a formatted message.
func (c CodeError) Errorf(format string, args ...interface{}) Error {
	return Newf(c, format, args...)
}

func sortedFloors() []CodeError {
	res := make([]CodeError, 0, len(registry))
	for k := range registry {
		res = append(res, k)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
