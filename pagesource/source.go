/*
 * Copyright 2025 CloudWeGo Authors
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

// Package pagesource supplies raw memory extents to the allocator.
//
// A Source hands out page-aligned regions that stay valid and at a fixed
// address for the lifetime of the process. There is no release primitive:
// the heap built on top of a Source only grows.
package pagesource

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when a Source cannot supply more memory.
var ErrExhausted = errors.New("pagesource: exhausted")

// Source supplies memory extents.
type Source interface {
	// Acquire returns a writable region of at least size bytes whose length is
	// a multiple of PageSize and whose first byte is page-aligned.
	// Content is unspecified.
	Acquire(size uintptr) ([]byte, error)

	// PageSize returns the granularity of Acquire.
	PageSize() uintptr
}

// Default returns the preferred Source for this platform:
// anonymous mappings where mmap is available, the Go heap elsewhere.
func Default() Source {
	if s, err := NewMmap(); err == nil {
		return s
	}
	return NewHeap()
}

// roundPages rounds n up to a multiple of page, reporting overflow.
func roundPages(n, page uintptr) (uintptr, error) {
	if n == 0 {
		n = 1
	}
	r := (n + page - 1) &^ (page - 1)
	if r < n {
		return 0, fmt.Errorf("%w: %d bytes overflows page rounding", ErrExhausted, n)
	}
	return r, nil
}
