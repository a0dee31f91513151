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
 *
 */

package atomic

import "sync"

type ma[K comparable] struct {
	m sync.Map
}

func (a *ma[K]) Load(key K) (value any, ok bool) {
	return a.m.Load(key)
}

func (a *ma[K]) Store(key K, value any) {
	a.m.Store(key, value)
}

func (a *ma[K]) LoadOrStore(key K, value any) (actual any, loaded bool) {
	return a.m.LoadOrStore(key, value)
}

func (a *ma[K]) LoadAndDelete(key K) (value any, loaded bool) {
	return a.m.LoadAndDelete(key)
}

func (a *ma[K]) Delete(key K) {
	a.m.Delete(key)
}

func (a *ma[K]) Range(f func(key K, value any) bool) {
	a.m.Range(func(k, v any) bool {
		return f(k.(K), v)
	})
}
