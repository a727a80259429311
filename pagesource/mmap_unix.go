//go:build unix

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

package pagesource

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// Mmap acquires extents as anonymous private mappings.
// Mapped memory lives outside the Go heap, so pointers into it may be handed
// to C code.
type Mmap struct {
	page uintptr
}

// NewMmap returns a Source backed by anonymous mappings.
func NewMmap() (*Mmap, error) {
	page := unix.Getpagesize()
	if page <= 0 || page&(page-1) != 0 {
		return nil, fmt.Errorf("pagesource: unexpected page size %d", page)
	}
	return &Mmap{page: uintptr(page)}, nil
}

// PageSize implements Source.
func (m *Mmap) PageSize() uintptr { return m.page }

// Acquire implements Source. Fresh mappings are zero-filled by the kernel.
func (m *Mmap) Acquire(size uintptr) ([]byte, error) {
	n, err := roundPages(size, m.page)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes exceeds mappable size", ErrExhausted, n)
	}
	data, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrExhausted, n, err)
	}
	return data, nil
}
