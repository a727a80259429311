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
	"fmt"
	"unsafe"
)

// extent is one region handed out by the page source.
type extent struct {
	mem  []byte
	ptr  unsafe.Pointer
	base uintptr
	size uintptr // multiple of Alignment
}

func newExtent(mem []byte) *extent {
	ptr := unsafe.Pointer(unsafe.SliceData(mem))
	return &extent{
		mem:  mem,
		ptr:  ptr,
		base: uintptr(ptr),
		size: uintptr(len(mem)) &^ (Alignment - 1),
	}
}

func (e *extent) contains(addr uintptr) bool {
	return addr >= e.base && addr-e.base < e.size
}

func (e *extent) words(off uintptr) *[2]uint64 {
	return (*[2]uint64)(unsafe.Add(e.ptr, off))
}

// blockRef names a block by its extent and offset.
type blockRef struct {
	ext *extent
	off uintptr
}

func (r blockRef) addr() uintptr { return r.ext.base + r.off }

// payload returns the first usable byte of the block.
func (r blockRef) payload() unsafe.Pointer {
	return unsafe.Add(r.ext.ptr, r.off+headerSize)
}

// block is a decoded header.
type block struct {
	blockRef
	size uintptr
	prev uintptr // size of the physically preceding block, 0 if first
	used bool
}

func (b block) usable() uintptr { return b.size - headerSize }

func (b block) end() uintptr { return b.off + b.size }

// load decodes the header at off. ok is false when the header is not one
// this heap wrote or does not fit inside the extent.
func (e *extent) load(off uintptr) (b block, ok bool) {
	if off%Alignment != 0 || off > e.size-minBlockSize {
		return block{}, false
	}
	w := e.words(off)
	if w[1]>>magicShift != blockMagic {
		return block{}, false
	}
	b = block{
		blockRef: blockRef{ext: e, off: off},
		size:     uintptr(w[0] &^ usedBit),
		prev:     uintptr(w[1] & prevMask),
		used:     w[0]&usedBit != 0,
	}
	if b.size < minBlockSize || b.size%Alignment != 0 || b.size > e.size-off {
		return block{}, false
	}
	return b, true
}

// store writes the header of b.
func (b block) store() {
	w := b.ext.words(b.off)
	w[0] = uint64(b.size)
	if b.used {
		w[0] |= usedBit
	}
	w[1] = blockMagic<<magicShift | uint64(b.prev)
}

// scrub invalidates a header that no longer starts a block, so a stale
// pointer to it is rejected instead of trusted.
func (r blockRef) scrub() {
	r.ext.words(r.off)[1] = 0
}

// linkNext records b's size in its physical successor, if any.
func (b block) linkNext() {
	if next := b.end(); next < b.ext.size {
		w := b.ext.words(next)
		w[1] = blockMagic<<magicShift | uint64(b.size)
	}
}

// next returns the physical successor of b inside its extent. ok is false
// when b ends the extent; a successor that should exist but does not decode,
// or does not point back at b, is reported as an error wrapping ErrCorrupt.
func (b block) next() (n block, ok bool, err error) {
	if b.end() >= b.ext.size {
		return block{}, false, nil
	}
	n, ok = b.ext.load(b.end())
	if !ok {
		return block{}, false, fmt.Errorf("%w: bad header at %#x after block %#x", ErrCorrupt, b.addr()+b.size, b.addr())
	}
	if n.prev != b.size {
		return block{}, false, fmt.Errorf("%w: block at %#x records prev size %d, want %d", ErrCorrupt, n.addr(), n.prev, b.size)
	}
	return n, true, nil
}

// before returns the physical predecessor of b inside its extent, with the
// same error rules as next.
func (b block) before() (p block, ok bool, err error) {
	if b.prev == 0 {
		if b.off != 0 {
			return block{}, false, fmt.Errorf("%w: block at %#x has no predecessor", ErrCorrupt, b.addr())
		}
		return block{}, false, nil
	}
	if b.prev > b.off {
		return block{}, false, fmt.Errorf("%w: block at %#x records prev size %d past extent start", ErrCorrupt, b.addr(), b.prev)
	}
	p, ok = b.ext.load(b.off - b.prev)
	if !ok {
		return block{}, false, fmt.Errorf("%w: bad header at %#x before block %#x", ErrCorrupt, b.addr()-b.prev, b.addr())
	}
	if p.size != b.prev {
		return block{}, false, fmt.Errorf("%w: block at %#x has size %d, successor records %d", ErrCorrupt, p.addr(), p.size, b.prev)
	}
	return p, true, nil
}

// split cuts b into a head of n bytes and the remaining tail.
// Both halves inherit b's used flag; nothing is written.
func split(b block, n uintptr) (head, tail block) {
	head = b
	head.size = n
	tail = block{
		blockRef: blockRef{ext: b.ext, off: b.off + n},
		size:     b.size - n,
		prev:     n,
		used:     b.used,
	}
	return head, tail
}

// merge joins lo with its physical successor hi. Nothing is written.
func merge(lo, hi block) block {
	lo.size += hi.size
	return lo
}
