/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package cobra is a small instance-based wrapper around spf13/cobra,
// trimmed to the root-command and --config flag wiring cmd/tlstunnel
// needs: no shell completion, no generated config file, no TUI — this
// tunnel has exactly one external command surface (spec §6).
package cobra

import (
	spfcbr "github.com/spf13/cobra"
)

// App is the root command of a tlstunnel binary.
type App interface {
	// SetVersion sets the string printed by --version.
	SetVersion(v string) App
	// ConfigFlag returns the value bound to --config (-c), read once
	// Execute has parsed flags.
	ConfigFlag() string
	// SetRun installs the function invoked when the root command runs.
	SetRun(fct func(configFile string) error) App
	// Execute parses os.Args and runs the installed function.
	Execute() error
	// Command exposes the underlying spf13/cobra command for callers
	// that need to add subcommands or additional flags.
	Command() *spfcbr.Command
}

type app struct {
	cmd        *spfcbr.Command
	configFile string
	run        func(configFile string) error
}

// New returns an App named use, with short/long help text.
func New(use, short, long string) App {
	a := &app{}
	a.cmd = &spfcbr.Command{
		Use:   use,
		Short: short,
		Long:  long,
		RunE: func(cmd *spfcbr.Command, args []string) error {
			if a.run == nil {
				return nil
			}
			return a.run(a.configFile)
		},
	}
	a.cmd.Flags().StringVarP(&a.configFile, "config", "c", "", "path to the configuration file")
	_ = a.cmd.MarkFlagRequired("config")
	return a
}

func (a *app) SetVersion(v string) App {
	a.cmd.Version = v
	return a
}

func (a *app) ConfigFlag() string {
	return a.configFile
}

func (a *app) SetRun(fct func(configFile string) error) App {
	a.run = fct
	return a
}

func (a *app) Execute() error {
	return a.cmd.Execute()
}

func (a *app) Command() *spfcbr.Command {
	return a.cmd
}
