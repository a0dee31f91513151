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

package certificates

import (
	"crypto/tls"
	"io"
	"strings"

	tlsaut "github.com/sabouaram/tlstunnel/certificates/auth"
	tlscas "github.com/sabouaram/tlstunnel/certificates/ca"
	tlscrt "github.com/sabouaram/tlstunnel/certificates/certs"
	tlscpr "github.com/sabouaram/tlstunnel/certificates/cipher"
	tlscrv "github.com/sabouaram/tlstunnel/certificates/curves"
	tlsvrs "github.com/sabouaram/tlstunnel/certificates/tlsversion"
)

// sessionCacheCapacity is the number of client TLS sessions kept for resumption
// when a config acts as a dialer towards a fixed destination pool.
const sessionCacheCapacity = 64

type config struct {
	rand                  io.Reader
	cert                  []tlscrt.Cert
	cipherList            []tlscpr.Cipher
	curveList             []tlscrv.Curves
	caRoot                []tlscas.Cert
	clientAuth            tlsaut.ClientAuth
	clientCA              []tlscas.Cert
	tlsMinVersion         tlsvrs.Version
	tlsMaxVersion         tlsvrs.Version
	dynSizingDisabled     bool
	ticketSessionDisabled bool
	sessionCache          tls.ClientSessionCache
}

func (o *config) RegisterRand(rand io.Reader) {
	o.rand = rand
}

func (o *config) SetVersionMin(v tlsvrs.Version) {
	o.tlsMinVersion = v
}

func (o *config) GetVersionMin() tlsvrs.Version {
	return o.tlsMinVersion
}

func (o *config) SetVersionMax(v tlsvrs.Version) {
	o.tlsMaxVersion = v
}

func (o *config) GetVersionMax() tlsvrs.Version {
	return o.tlsMaxVersion
}

func (o *config) SetCipherList(c []tlscpr.Cipher) {
	o.cipherList = make([]tlscpr.Cipher, 0, len(c))
	o.AddCiphers(c...)
}

func (o *config) AddCiphers(c ...tlscpr.Cipher) {
	o.cipherList = append(o.cipherList, c...)
}

func (o *config) GetCiphers() []tlscpr.Cipher {
	var res = make([]tlscpr.Cipher, 0, len(o.cipherList))

	for _, i := range o.cipherList {
		if tlscpr.Check(i.Uint16()) {
			res = append(res, i)
		}
	}

	return res
}

// CipherDescription returns a human-readable summary of every cipher
// suite currently configured, one line per suite, ordered as configured.
func (o *config) CipherDescription() string {
	var b strings.Builder

	for i, c := range o.cipherList {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(c.String())
		b.WriteString(" (")
		b.WriteString(c.Code())
		b.WriteByte(')')
	}

	return b.String()
}

func (o *config) SetDynamicSizingDisabled(flag bool) {
	o.dynSizingDisabled = flag
}

func (o *config) SetSessionTicketDisabled(flag bool) {
	o.ticketSessionDisabled = flag
}

func (o *config) uint16Ciphers() []uint16 {
	if len(o.cipherList) == 0 {
		return nil
	}

	res := make([]uint16, 0, len(o.cipherList))
	for _, c := range o.cipherList {
		res = append(res, c.Uint16())
	}

	return res
}

func (o *config) tlsCurves() []tls.CurveID {
	if len(o.curveList) == 0 {
		return nil
	}

	res := make([]tls.CurveID, 0, len(o.curveList))
	for _, c := range o.curveList {
		res = append(res, c.TLS())
	}

	return res
}

// clientSessionCache lazily builds and returns the resumption cache shared by
// every outgoing TLS connection built from this config, so a dialer reusing
// the same config across connections to the same destination resumes
// sessions instead of renegotiating a full handshake each time.
func (o *config) clientSessionCache() tls.ClientSessionCache {
	if o.ticketSessionDisabled {
		return nil
	}

	if o.sessionCache == nil {
		o.sessionCache = tls.NewLRUClientSessionCache(sessionCacheCapacity)
	}

	return o.sessionCache
}

func (o *config) TLS(serverName string) *tls.Config {
	return o.TlsConfig(serverName)
}

func (o *config) TlsConfig(serverName string) *tls.Config {
	/* #nosec */
	cnf := &tls.Config{
		InsecureSkipVerify: false,
		Rand:               o.rand,
		ClientSessionCache: o.clientSessionCache(),
	}

	if serverName != "" {
		cnf.ServerName = serverName
	}

	if o.ticketSessionDisabled {
		cnf.SessionTicketsDisabled = true
	}

	if o.dynSizingDisabled {
		cnf.DynamicRecordSizingDisabled = true
	}

	if o.tlsMinVersion != tlsvrs.VersionUnknown {
		cnf.MinVersion = o.tlsMinVersion.TLS()
	}

	if o.tlsMaxVersion != tlsvrs.VersionUnknown {
		cnf.MaxVersion = o.tlsMaxVersion.TLS()
	}

	if cs := o.uint16Ciphers(); len(cs) > 0 {
		cnf.PreferServerCipherSuites = true
		cnf.CipherSuites = cs
	}

	if cv := o.tlsCurves(); len(cv) > 0 {
		cnf.CurvePreferences = cv
	}

	if len(o.caRoot) > 0 {
		cnf.RootCAs = o.GetRootCAPool()
	}

	if len(o.cert) > 0 {
		cnf.Certificates = o.GetCertificatePair()
	}

	if o.clientAuth != tlsaut.NoClientCert {
		cnf.ClientAuth = o.clientAuth.TLS()
		if len(o.clientCA) > 0 {
			cnf.ClientCAs = o.GetClientCAPool()
		}
	}

	return cnf
}

func (o *config) Config() *Config {
	return &Config{
		CurveList:            o.GetCurves(),
		CipherList:           o.GetCiphers(),
		RootCA:               o.GetRootCA(),
		ClientCA:             o.GetClientCA(),
		Certs:                o.certModels(),
		VersionMin:           o.tlsMinVersion,
		VersionMax:           o.tlsMaxVersion,
		AuthClient:           o.clientAuth,
		DynamicSizingDisable: o.dynSizingDisabled,
		SessionTicketDisable: o.ticketSessionDisabled,
	}
}

func (o *config) certModels() []tlscrt.Certif {
	res := make([]tlscrt.Certif, 0, len(o.cert))

	for _, c := range o.cert {
		res = append(res, c.Model())
	}

	return res
}

func (o *config) Clone() TLSConfig {
	return &config{
		rand:                  o.rand,
		cert:                  append(make([]tlscrt.Cert, 0, len(o.cert)), o.cert...),
		cipherList:            append(make([]tlscpr.Cipher, 0, len(o.cipherList)), o.cipherList...),
		curveList:             append(make([]tlscrv.Curves, 0, len(o.curveList)), o.curveList...),
		caRoot:                append(make([]tlscas.Cert, 0, len(o.caRoot)), o.caRoot...),
		clientAuth:            o.clientAuth,
		clientCA:              append(make([]tlscas.Cert, 0, len(o.clientCA)), o.clientCA...),
		tlsMinVersion:         o.tlsMinVersion,
		tlsMaxVersion:         o.tlsMaxVersion,
		dynSizingDisabled:     o.dynSizingDisabled,
		ticketSessionDisabled: o.ticketSessionDisabled,
	}
}
