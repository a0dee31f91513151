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

// Package logger wraps logrus behind a small interface so the rest of the
// tunnel logs structured fields without depending on logrus types directly.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging surface every package in this module
// depends on instead of reaching for logrus directly.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level
	SetOutput(w io.Writer)

	WithFields(f Fields) Logger

	Debug(message string, f Fields)
	Info(message string, f Fields)
	Warning(message string, f Fields)
	Error(message string, f Fields)
	Fatal(message string, f Fields)
}

// New returns a Logger backed by a fresh logrus instance at InfoLevel.
func New() Logger {
	l := logrus.New()
	l.SetLevel(InfoLevel.Logrus())
	return &logger{entry: logrus.NewEntry(l)}
}

var std = New()

// Default returns the process-wide Logger instance used where no
// request-scoped Logger has been threaded through.
func Default() Logger {
	return std
}

// SetDefault replaces the process-wide Logger instance returned by Default.
func SetDefault(l Logger) {
	std = l
}
