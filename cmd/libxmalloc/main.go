//go:build cgo

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

// Command libxmalloc exports the allocator to C.
//
//	go build -buildmode=c-shared -o libxmalloc.so ./cmd/libxmalloc
//
// All entry points share malloc.Default(). The error indicator lives in C
// thread-local storage, so xmalloc_get_errno observes only failures of calls
// made on the same thread, on every platform.
package main

// #include <stddef.h>
//
// extern int xmalloc_tls_get_errno(void);
// extern void xmalloc_tls_set_errno(int e);
import "C"

import (
	"unsafe"

	"github.com/cloudwego/xmalloc/errno"
	"github.com/cloudwego/xmalloc/unsafex/malloc"
)

// thread binds the default heap to a fresh cell. The caller defers
// record(cell) to publish a failure to the calling C thread.
func thread() (malloc.Thread, *errno.Cell) {
	cell := new(errno.Cell)
	return malloc.Default().Bind(cell), cell
}

func record(cell *errno.Cell) {
	if e := cell.Get(); e != errno.Success {
		setLastErrno(e)
	}
}

func lastErrno() errno.Errno {
	return errno.Errno(C.xmalloc_tls_get_errno())
}

func setLastErrno(e errno.Errno) {
	C.xmalloc_tls_set_errno(C.int(e))
}

//export xmalloc_malloc
func xmalloc_malloc(size C.size_t) unsafe.Pointer {
	th, cell := thread()
	defer record(cell)
	return th.Malloc(uintptr(size))
}

//export xmalloc_calloc
func xmalloc_calloc(n, size C.size_t) unsafe.Pointer {
	th, cell := thread()
	defer record(cell)
	return th.Calloc(uintptr(n), uintptr(size))
}

//export xmalloc_realloc
func xmalloc_realloc(p unsafe.Pointer, size C.size_t) unsafe.Pointer {
	th, cell := thread()
	defer record(cell)
	return th.Realloc(p, uintptr(size))
}

//export xmalloc_free
func xmalloc_free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	th, _ := thread()
	th.Free(p)
}

//export xmalloc_free_sized
func xmalloc_free_sized(p unsafe.Pointer, size C.size_t) {
	if p == nil {
		return
	}
	th, _ := thread()
	th.FreeSized(p, uintptr(size))
}

//export xmalloc_free_aligned_sized
func xmalloc_free_aligned_sized(p unsafe.Pointer, align, size C.size_t) {
	if p == nil {
		return
	}
	th, _ := thread()
	th.FreeAlignedSized(p, uintptr(align), uintptr(size))
}

//export xmalloc_posix_memalign
func xmalloc_posix_memalign(out *unsafe.Pointer, align, size C.size_t) C.int {
	th, cell := thread()
	defer record(cell)
	return C.int(th.PosixMemalign(out, uintptr(align), uintptr(size)))
}

//export xmalloc_aligned_alloc
func xmalloc_aligned_alloc(align, size C.size_t) unsafe.Pointer {
	th, cell := thread()
	defer record(cell)
	return th.AlignedAlloc(uintptr(align), uintptr(size))
}

//export xmalloc_malloc_usable_size
func xmalloc_malloc_usable_size(p unsafe.Pointer) C.size_t {
	if p == nil {
		return 0
	}
	th, _ := thread()
	return C.size_t(th.UsableSize(p))
}

//export xmalloc_get_errno
func xmalloc_get_errno() C.int {
	return C.int(lastErrno())
}

//export xmalloc_set_errno
func xmalloc_set_errno(e C.int) {
	setLastErrno(errno.Errno(e))
}

func main() {}
