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

// Package config loads the single Options document a tunnel instance runs
// from (spec §6 "Config/options" collaborator): timeouts, address lists,
// mode flags, credential paths, and the negotiation protocol, sourced from
// file/env/flags via spf13/viper and validated with go-playground/
// validator struct tags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sabouaram/tlstunnel/errors"
)

const floor errors.CodeError = 9600

const (
	// ErrLoad wraps a viper read/unmarshal failure.
	ErrLoad errors.CodeError = floor + iota
	// ErrValidate wraps a struct-tag validation failure.
	ErrValidate
)

func init() {
	errors.Register(floor, func(c errors.CodeError) string {
		switch c {
		case ErrLoad:
			return "config: failed to load options"
		case ErrValidate:
			return "config: options failed validation"
		default:
			return ""
		}
	})
}

// Mode selects how the tunnel's local (plaintext) side is obtained.
type Mode string

const (
	// ModeClient dials a remote TLS service and exposes a local plaintext
	// listener (stunnel "client" mode).
	ModeClient Mode = "client"
	// ModeServer accepts remote TLS connections and forwards plaintext to
	// a local destination (stunnel "server" mode).
	ModeServer Mode = "server"
)

// Options is the single configuration document a tlstunnel instance runs
// from (spec §3 Data Model "Options", §6 "Config/options" collaborator).
type Options struct {
	// ServiceName labels log lines and the STARTTLS server-mode greeting.
	ServiceName string `mapstructure:"service_name" validate:"required"`

	// Mode selects client or server tunnel direction.
	Mode Mode `mapstructure:"mode" validate:"required,oneof=client server"`

	// Protocol selects STARTTLS negotiation, or empty for raw TLS.
	Protocol string `mapstructure:"protocol" validate:"omitempty,oneof=smtp pop3 nntp smb telnet"`

	// Accept is the local address this instance listens on.
	Accept string `mapstructure:"accept" validate:"required"`

	// Connect is the round-robin destination pool dialed once the local
	// side is accepted.
	Connect []string `mapstructure:"connect" validate:"required,min=1,dive,required"`

	// LocalProgram, when set, spawns this program instead of dialing
	// Connect for the plaintext side (spec §4.4, SpawnProgram).
	LocalProgram string `mapstructure:"exec"`
	// LocalProgramArgs are the spawned program's arguments.
	LocalProgramArgs []string `mapstructure:"exec_args"`

	// Transparent selects binding the outbound connect's source address to
	// the original client's address. It is read into Options, but the
	// tunnel does not pass it to dial.Connect: outbound connects are made
	// without a bound source address.
	Transparent bool `mapstructure:"transparent"`
	// ExplicitSource is a fixed local source address for the outbound
	// connect. Like Transparent, it is read into Options but not passed to
	// dial.Connect, so it does not bind anything.
	ExplicitSource string `mapstructure:"local_source"`

	// CertFile/KeyFile/CAFile/ClientCAFile locate the PEM credentials
	// certificates.TLSConfig loads; ServerName overrides the SNI / peer
	// verification name when it differs from Accept/Connect's host.
	CertFile     string `mapstructure:"cert_file"`
	KeyFile      string `mapstructure:"key_file"`
	CAFile       string `mapstructure:"ca_file"`
	ClientCAFile string `mapstructure:"client_ca_file"`
	ServerName   string `mapstructure:"server_name"`
	RequireClientCert bool `mapstructure:"require_client_cert"`

	// Username is presented to the peer's IDENT service, when configured.
	Username string `mapstructure:"username"`

	// Timeouts, spec §3 Data Model.
	BusyTimeout    time.Duration `mapstructure:"busy_timeout" validate:"required"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" validate:"required"`
	CloseTimeout   time.Duration `mapstructure:"close_timeout" validate:"required"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required"`

	// BufferSize is the fixed capacity of each directional pump buffer.
	BufferSize int `mapstructure:"buffer_size"`
}

// DefaultOptions returns an Options pre-filled with the timeouts and
// buffer size this repo ships as sane defaults, seeded before a viper
// unmarshal overlays it.
func DefaultOptions() Options {
	return Options{
		Mode:           ModeClient,
		BusyTimeout:    10 * time.Second,
		IdleTimeout:    60 * time.Second,
		CloseTimeout:   10 * time.Second,
		ConnectTimeout: 10 * time.Second,
		BufferSize:     16 * 1024,
	}
}

// Load reads file, then overlays environment variables prefixed
// "TLSTUNNEL_", into a copy of DefaultOptions, and validates the result.
func Load(file string) (Options, error) {
	opts := DefaultOptions()

	v := viper.New()
	v.SetConfigFile(file)
	v.SetEnvPrefix("tlstunnel")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if e := v.ReadInConfig(); e != nil {
		return opts, ErrLoad.Error(e)
	}
	if e := v.Unmarshal(&opts); e != nil {
		return opts, ErrLoad.Error(e)
	}

	if e := Validate(opts); e != nil {
		return opts, e
	}
	return opts, nil
}

// Validate runs struct-tag validation over opts.
func Validate(opts Options) error {
	if e := validator.New().Struct(opts); e != nil {
		return ErrValidate.Error(e)
	}
	return nil
}

// WatchCredentials invokes onChange whenever the credential files
// (CertFile/KeyFile/CAFile/ClientCAFile) referenced by opts are rewritten
// on disk, the supplemented "credential rotation" behavior named in
// SPEC_FULL.md §3's domain-stack table (fsnotify entry). The returned
// *fsnotify.Watcher must be closed by the caller.
func WatchCredentials(opts Options, onChange func(path string)) (*fsnotify.Watcher, error) {
	w, e := fsnotify.NewWatcher()
	if e != nil {
		return nil, ErrLoad.Error(e)
	}

	for _, f := range []string{opts.CertFile, opts.KeyFile, opts.CAFile, opts.ClientCAFile} {
		if f == "" {
			continue
		}
		if e := w.Add(f); e != nil {
			_ = w.Close()
			return nil, ErrLoad.Error(fmt.Errorf("watch %s: %w", f, e))
		}
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange(ev.Name)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return w, nil
}
