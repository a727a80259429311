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

package malloc

import (
	"math/bits"
	"sync"
	"unsafe"

	"github.com/cloudwego/xmalloc/errno"
	"github.com/cloudwego/xmalloc/unsafex"
)

// Heap is a thread-safe allocator. All operations on a Heap are serialized
// by one mutex.
type Heap struct {
	mu  sync.Mutex
	eng *engine
}

// New creates a Heap. A nil opt means DefaultOption(). No memory is acquired
// until the first allocation.
func New(opt *Option) (*Heap, error) {
	if opt == nil {
		opt = DefaultOption()
	} else {
		o := *opt
		opt = &o
	}
	table, err := opt.normalize()
	if err != nil {
		return nil, err
	}
	return &Heap{eng: newEngine(opt, table)}, nil
}

// NewThread returns a handle with its own error cell.
func (h *Heap) NewThread() Thread {
	return Thread{h: h, cell: new(errno.Cell)}
}

// Bind returns a handle that reports errors through cell.
func (h *Heap) Bind(cell *errno.Cell) Thread {
	return Thread{h: h, cell: cell}
}

// Stats returns a snapshot of the heap accounting.
func (h *Heap) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.stats()
}

// Check walks the whole heap and returns an error wrapping ErrCorrupt if any
// structural invariant is broken.
func (h *Heap) Check() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.check()
}

func (h *Heap) malloc(size uintptr) (unsafe.Pointer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.malloc(size)
}

func (h *Heap) memalign(align, size uintptr) (unsafe.Pointer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.memalign(align, size)
}

func (h *Heap) realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.realloc(p, size)
}

func (h *Heap) free(p unsafe.Pointer, size, align uintptr, sized bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sized {
		h.eng.freeSized(p, size, align)
	} else {
		h.eng.free(p)
	}
}

func (h *Heap) usableSize(p unsafe.Pointer) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng.usableSize(p)
}

// Thread is a Heap seen from one thread of execution: it carries the error
// cell that failed calls write to. A Thread must not be shared between
// goroutines that inspect Errno; the Heap behind it may be.
type Thread struct {
	h    *Heap
	cell *errno.Cell
}

func (t Thread) fail(err error) {
	t.cell.Set(errnoOf(err))
}

// Malloc returns a pointer to at least size bytes aligned to Alignment, or
// nil with ENOMEM. Malloc(0) returns a unique pointer that must be freed.
func (t Thread) Malloc(size uintptr) unsafe.Pointer {
	p, err := t.h.malloc(size)
	if err != nil {
		t.fail(err)
		return nil
	}
	return p
}

// Calloc allocates n elements of size bytes each, zeroed. It fails with
// ENOMEM if n*size overflows.
func (t Thread) Calloc(n, size uintptr) unsafe.Pointer {
	hi, lo := bits.Mul64(uint64(n), uint64(size))
	if hi != 0 || lo > maxRequest {
		t.fail(ErrOutOfMemory)
		return nil
	}
	p := t.Malloc(uintptr(lo))
	if p != nil {
		unsafex.Zero(p, uintptr(lo))
	}
	return p
}

// Realloc resizes the allocation at p to size bytes, preserving the first
// min(old, size) bytes. The result may differ from p. On failure it returns
// nil with ENOMEM and p remains valid. A nil p behaves like Malloc.
// Realloc(p, 0) shrinks p to the smallest block and returns p.
func (t Thread) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	if p == nil {
		return t.Malloc(size)
	}
	q, err := t.h.realloc(p, size)
	if err != nil {
		t.fail(err)
		return nil
	}
	return q
}

// Free releases p. Free(nil) does nothing.
func (t Thread) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	t.h.free(p, 0, 0, false)
}

// FreeSized releases p, which was allocated with size bytes.
func (t Thread) FreeSized(p unsafe.Pointer, size uintptr) {
	if p == nil {
		return
	}
	t.h.free(p, size, 0, true)
}

// FreeAlignedSized releases p, which was allocated with size bytes aligned
// to align.
func (t Thread) FreeAlignedSized(p unsafe.Pointer, align, size uintptr) {
	if p == nil {
		return
	}
	if align == 0 {
		// zero would read as "no hint" below
		align = ^uintptr(0)
	}
	t.h.free(p, size, align, true)
}

// PosixMemalign stores in *out a pointer to size bytes aligned to align.
// align must be a power of two no smaller than a pointer; otherwise EINVAL is
// returned and *out is left alone. Errors are also recorded in the cell.
func (t Thread) PosixMemalign(out *unsafe.Pointer, align, size uintptr) errno.Errno {
	if err := checkMemalign(out, align); err != nil {
		t.fail(err)
		return errno.EINVAL
	}
	p, err := t.h.memalign(align, size)
	if err != nil {
		t.fail(err)
		return errnoOf(err)
	}
	*out = p
	return errno.Success
}

func checkMemalign(out *unsafe.Pointer, align uintptr) error {
	if out == nil {
		return errNilOut
	}
	if !unsafex.IsPowerOfTwo(align) || align < unsafe.Sizeof(uintptr(0)) {
		return errBadAlignment(align)
	}
	return nil
}

// AlignedAlloc returns size bytes aligned to align, which must be a power of
// two. Alignments below Alignment are rounded up.
func (t Thread) AlignedAlloc(align, size uintptr) unsafe.Pointer {
	if !unsafex.IsPowerOfTwo(align) {
		t.fail(errBadAlignment(align))
		return nil
	}
	p, err := t.h.memalign(align, size)
	if err != nil {
		t.fail(err)
		return nil
	}
	return p
}

// UsableSize returns the number of bytes usable at p, at least the size it
// was allocated with. UsableSize(nil) is 0.
func (t Thread) UsableSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	return t.h.usableSize(p)
}

// Errno returns the last error recorded for this thread.
// Successful calls do not clear it.
func (t Thread) Errno() errno.Errno { return t.cell.Get() }

// SetErrno overwrites the thread's error indicator.
func (t Thread) SetErrno(e errno.Errno) { t.cell.Set(e) }
