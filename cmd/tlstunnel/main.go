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

// Command tlstunnel is the thin binary wiring config, certificates,
// negotiation, dial, tlsdriver and session together. Deliberately thin:
// no daemon lifecycle beyond accepting connections and handing each to a
// session (spec §6 Non-goals).
package main

import (
	"fmt"
	"os"

	libcbr "github.com/sabouaram/tlstunnel/cobra"
	"github.com/sabouaram/tlstunnel/config"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	app := libcbr.New("tlstunnel", "universal TLS tunnel",
		"tlstunnel converts a plaintext connection to TLS (client mode) or a TLS connection to plaintext (server mode), with optional STARTTLS negotiation.").
		SetVersion(version).
		SetRun(func(configFile string) error {
			opts, e := config.Load(configFile)
			if e != nil {
				return e
			}
			t := NewTunnel(opts)
			return t.ListenAndServe()
		})

	if e := app.Execute(); e != nil {
		fmt.Fprintln(os.Stderr, e)
		os.Exit(1)
	}
}
