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

package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

type logger struct {
	entry *logrus.Entry
}

func (l *logger) SetLevel(lvl Level) {
	l.entry.Logger.SetLevel(lvl.Logrus())
}

func (l *logger) GetLevel() Level {
	switch l.entry.Logger.GetLevel() {
	case logrus.DebugLevel:
		return DebugLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	case logrus.FatalLevel:
		return FatalLevel
	case logrus.PanicLevel:
		return PanicLevel
	default:
		return InfoLevel
	}
}

func (l *logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

func (l *logger) WithFields(f Fields) Logger {
	return &logger{entry: l.entry.WithFields(logrus.Fields(f))}
}

func (l *logger) Debug(message string, f Fields) {
	l.fieldsEntry(f).Debug(message)
}

func (l *logger) Info(message string, f Fields) {
	l.fieldsEntry(f).Info(message)
}

func (l *logger) Warning(message string, f Fields) {
	l.fieldsEntry(f).Warn(message)
}

func (l *logger) Error(message string, f Fields) {
	l.fieldsEntry(f).Error(message)
}

func (l *logger) Fatal(message string, f Fields) {
	l.fieldsEntry(f).Fatal(message)
}

func (l *logger) fieldsEntry(f Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(f))
}
