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
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

const heapPageSize = 4096

// Heap carves extents out of the Go heap. Each extent is over-allocated by
// one page and trimmed to a page boundary. The backing slices are kept
// referenced by the Heap so the GC never reclaims an extent.
//
// Memory from a Heap must not be passed to C: it is Go memory.
type Heap struct {
	mu     sync.Mutex
	pinned [][]byte
}

// NewHeap returns a Source backed by the Go heap.
func NewHeap() *Heap {
	return &Heap{}
}

// PageSize implements Source.
func (h *Heap) PageSize() uintptr { return heapPageSize }

// Acquire implements Source. Content is not zeroed.
func (h *Heap) Acquire(size uintptr) ([]byte, error) {
	n, err := roundPages(size, heapPageSize)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt-heapPageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds heap extent size", ErrExhausted, n)
	}
	raw := dirtmake.Bytes(int(n)+heapPageSize, int(n)+heapPageSize)

	base := uintptr(unsafe.Pointer(&raw[0]))
	skip := int(((base + heapPageSize - 1) &^ (heapPageSize - 1)) - base)

	h.mu.Lock()
	h.pinned = append(h.pinned, raw)
	h.mu.Unlock()
	return raw[skip : skip+int(n) : skip+int(n)], nil
}
