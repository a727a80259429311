/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package unsafex holds small pointer helpers shared by the allocator.
package unsafex

import "unsafe"

// Bytes views n bytes starting at p as a slice without copying.
// It returns nil if p is nil or n is 0.
func Bytes(p unsafe.Pointer, n uintptr) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// Copy copies n bytes from src to dst. The regions may overlap.
func Copy(dst, src unsafe.Pointer, n uintptr) {
	copy(Bytes(dst, n), Bytes(src, n))
}

// Zero clears n bytes starting at p.
func Zero(p unsafe.Pointer, n uintptr) {
	clear(Bytes(p, n))
}

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
// ok is false if the result does not fit in a uintptr.
func AlignUp(n, align uintptr) (r uintptr, ok bool) {
	r = (n + align - 1) &^ (align - 1)
	return r, r >= n
}

// Add returns a+b, and false if the sum overflows.
func Add(a, b uintptr) (uintptr, bool) {
	s := a + b
	return s, s >= a
}
