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

package errors

import (
	"fmt"
	"strings"
)

// Error is a CodeError carrying a message and optional parent errors, so a
// caller can test "is this a timeout" (HasCode) without string matching.
type Error interface {
	error

	Code() CodeError
	HasCode(code CodeError) bool
	Add(parents ...error)
	Parents() []error
	Unwrap() error
}

type ers struct {
	code CodeError
	msg  string
	p    []error
}

// New builds an Error with an explicit message, bypassing the registry.
func New(code CodeError, msg string, parents ...error) Error {
	e := &ers{code: code, msg: msg}
	e.Add(parents...)
	return e
}

// Newf builds an Error with a formatted message.
func Newf(code CodeError, format string, args ...interface{}) Error {
	return New(code, fmt.Sprintf(format, args...))
}

// IfError returns nil if every parent is nil, else an Error wrapping the
// non-nil ones. Convenient at call sites that only sometimes fail.
func IfError(code CodeError, msg string, parents ...error) Error {
	var clean []error
	for _, p := range parents {
		if p != nil {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return New(code, msg, clean...)
}

func (e *ers) Error() string {
	if len(e.p) == 0 {
		return e.msg
	}

	parts := make([]string, 0, len(e.p)+1)
	if e.msg != "" {
		parts = append(parts, e.msg)
	}
	for _, p := range e.p {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ers) Code() CodeError {
	return e.code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.p {
		if ce, ok := p.(Error); ok && ce.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *ers) Add(parents ...error) {
	for _, p := range parents {
		if p != nil {
			e.p = append(e.p, p)
		}
	}
}

func (e *ers) Parents() []error {
	return e.p
}

// Unwrap exposes the first parent so errors.Is/errors.As can walk the
// chain; HasCode should be preferred for code-based checks since a single
// Unwrap loses siblings when an Error has more than one parent.
func (e *ers) Unwrap() error {
	if len(e.p) == 0 {
		return nil
	}
	return e.p[0]
}
