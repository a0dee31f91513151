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

package session

// This file maps the original single-threaded poll-driven engine's state
// onto this package's two-goroutine shape. Nothing here is executable;
// it exists so the translation is traceable next to the code it governs.
//
//	sock_read_open / sock_write_open   -> plain->secure pump's srcEOF / the
//	                                       CloseWrite propagated onto Plain
//	                                       by the secure->plain pump
//	ssl_read_open / ssl_write_open     -> secure->plain pump's srcEOF / the
//	                                       CloseWrite propagated onto Secure
//	                                       by the plain->secure pump
//	sock_ptr / ssl_ptr                 -> pipebuf.Buffer.Len() of each
//	                                       pump's own buffer
//	ssl_closing (0..3)                 -> pumpState.closing: false until
//	                                       either pump's srcEOF fires, true
//	                                       from then on; TLS shutdown itself
//	                                       is one CloseWrite call instead of
//	                                       a retried SSL_shutdown state
//	                                       machine, since tls.Conn owns the
//	                                       retry internally
//	watchdog                           -> per-pump local iteration counter,
//	                                       reset on any Produced/Consumed
//	                                       call, independent per direction
//	                                       rather than shared across both
//	idle timeout vs close timeout      -> pumpState.isClosing() selects
//	                                       which deadline a pump's next
//	                                       Read call uses
//
// The single shared readiness-wait of phase 2 has no equivalent: each
// goroutine blocks in its own Read/Write call instead of a combined poll,
// which is the entire point of the redesign (see SPEC_FULL.md §4).
