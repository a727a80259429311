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
	"log/slog"
	"unsafe"

	"github.com/cloudwego/xmalloc/unsafex"
)

// engine is the unsynchronized core of a Heap. Every method must be called
// with the heap lock held.
type engine struct {
	arena    arena
	reg      *registry
	paranoid bool
	log      *slog.Logger

	usedBlocks int
	counters   counters
}

type counters struct {
	mallocs, frees       uint64
	grows, splits        uint64
	coalesces            uint64
	inPlace, relocations uint64
}

func newEngine(opt *Option, table *sizeClassTable) *engine {
	return &engine{
		arena: arena{
			src:        opt.Source,
			extentSize: opt.ExtentSize,
			budget:     opt.MaxArenaBytes,
			log:        opt.Logger,
		},
		reg:      newRegistry(table),
		paranoid: opt.Paranoid,
		log:      opt.Logger,
	}
}

// corrupt reports a fatal inconsistency. It never returns.
func (e *engine) corrupt(format string, args ...any) {
	e.fatal(fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...))
}

func (e *engine) fatal(err error) {
	e.log.Error("malloc: fatal", "err", err)
	panic(err)
}

// verify runs the invariant walk after a mutation in paranoid mode.
func (e *engine) verify() {
	if !e.paranoid {
		return
	}
	if err := e.check(); err != nil {
		e.fatal(err)
	}
}

// lookup returns the live block whose payload starts at p.
func (e *engine) lookup(p unsafe.Pointer) block {
	addr := uintptr(p)
	ext := e.arena.find(addr)
	if ext == nil {
		e.corrupt("pointer %#x not owned by this heap", addr)
	}
	off := addr - ext.base
	if off < headerSize || off%Alignment != 0 {
		e.corrupt("pointer %#x is not a block payload", addr)
	}
	b, ok := ext.load(off - headerSize)
	if !ok {
		e.corrupt("invalid pointer %#x: bad block header", addr)
	}
	if !b.used {
		e.corrupt("double free or invalid pointer %#x", addr)
	}
	return b
}

// obtain returns an unregistered free block of at least need bytes,
// growing the arena when the registry has none.
func (e *engine) obtain(need uintptr) (block, error) {
	if ref, ok := e.reg.take(need); ok {
		b, ok := ref.ext.load(ref.off)
		if !ok || b.used || b.size < need {
			e.corrupt("registered block at %#x is not a free block of %d bytes", ref.addr(), need)
		}
		return b, nil
	}
	ext, err := e.arena.grow(need)
	if err != nil {
		return block{}, err
	}
	e.counters.grows++
	b := block{blockRef: blockRef{ext: ext}, size: ext.size}
	b.store()
	return b, nil
}

// carve marks the first need bytes of the free block b used and registers
// the remainder when it can stand alone.
func (e *engine) carve(b block, need uintptr) block {
	b.used = true
	if b.size-need < minBlockSize {
		b.store()
		return b
	}
	head, tail := split(b, need)
	tail.used = false
	head.store()
	tail.store()
	tail.linkNext()
	e.reg.insert(tail)
	e.counters.splits++
	return head
}

func (e *engine) allocBlock(need uintptr) (block, error) {
	b, err := e.obtain(need)
	if err != nil {
		return block{}, err
	}
	b = e.carve(b, need)
	e.usedBlocks++
	return b, nil
}

func (e *engine) malloc(size uintptr) (unsafe.Pointer, error) {
	need, err := blockSizeFor(size)
	if err != nil {
		return nil, err
	}
	b, err := e.allocBlock(need)
	if err != nil {
		return nil, err
	}
	e.counters.mallocs++
	e.verify()
	return b.payload(), nil
}

// memalign serves alignments above Alignment by over-allocating and
// returning the leading slack to the registry.
func (e *engine) memalign(align, size uintptr) (unsafe.Pointer, error) {
	if !unsafex.IsPowerOfTwo(align) {
		return nil, errBadAlignment(align)
	}
	if align <= Alignment {
		return e.malloc(size)
	}
	need, err := blockSizeFor(size)
	if err != nil {
		return nil, err
	}
	total, ok := unsafex.Add(need, align)
	if ok {
		total, ok = unsafex.Add(total, minBlockSize)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes aligned to %d overflows", ErrOutOfMemory, size, align)
	}

	b, err := e.obtain(total)
	if err != nil {
		return nil, err
	}
	payload := b.addr() + headerSize
	aligned, _ := unsafex.AlignUp(payload, align)
	lead := aligned - payload
	if lead != 0 && lead < minBlockSize {
		lead += align
	}
	if lead != 0 {
		slack, rest := split(b, lead)
		slack.store()
		rest.store()
		rest.linkNext()
		e.reg.insert(slack)
		e.counters.splits++
		b = rest
	}
	b = e.carve(b, need)
	e.usedBlocks++
	e.counters.mallocs++
	e.verify()
	return b.payload(), nil
}

// release frees b, merging it with free physical neighbours in its extent.
func (e *engine) release(b block) {
	b.used = false
	next, ok, err := b.next()
	if err != nil {
		e.fatal(err)
	}
	if ok && !next.used {
		if !e.reg.remove(next.blockRef) {
			e.corrupt("free block at %#x missing from registry", next.addr())
		}
		b = merge(b, next)
		next.scrub()
		e.counters.coalesces++
	}
	prev, ok, err := b.before()
	if err != nil {
		e.fatal(err)
	}
	if ok && !prev.used {
		if !e.reg.remove(prev.blockRef) {
			e.corrupt("free block at %#x missing from registry", prev.addr())
		}
		b.blockRef.scrub()
		b = merge(prev, b)
		e.counters.coalesces++
	}
	b.store()
	b.linkNext()
	e.reg.insert(b)
}

func (e *engine) free(p unsafe.Pointer) {
	b := e.lookup(p)
	e.release(b)
	e.usedBlocks--
	e.counters.frees++
	e.verify()
}

// freeSized frees p after checking the caller's size and alignment hints.
// align 0 means no alignment hint.
func (e *engine) freeSized(p unsafe.Pointer, size, align uintptr) {
	b := e.lookup(p)
	if size > b.usable() {
		e.corrupt("size hint %d exceeds block of %d usable bytes at %#x", size, b.usable(), uintptr(p))
	}
	if align != 0 && (!unsafex.IsPowerOfTwo(align) || uintptr(p)%align != 0) {
		e.corrupt("alignment hint %d does not match pointer %#x", align, uintptr(p))
	}
	e.release(b)
	e.usedBlocks--
	e.counters.frees++
	e.verify()
}

// shrink cuts b down to need bytes, releasing a tail large enough to stand
// alone.
func (e *engine) shrink(b block, need uintptr) {
	if b.size-need < minBlockSize {
		return
	}
	head, tail := split(b, need)
	head.store()
	tail.store()
	tail.linkNext()
	e.counters.splits++
	e.release(tail)
}

// realloc resizes the block at p. On failure the block is left untouched.
func (e *engine) realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	b := e.lookup(p)
	need, err := blockSizeFor(size)
	if err != nil {
		return nil, err
	}

	if need <= b.size {
		e.shrink(b, need)
		e.counters.inPlace++
		e.verify()
		return p, nil
	}

	next, ok, err := b.next()
	if err != nil {
		e.fatal(err)
	}
	if ok && !next.used && b.size+next.size >= need {
		if !e.reg.remove(next.blockRef) {
			e.corrupt("free block at %#x missing from registry", next.addr())
		}
		b = merge(b, next)
		next.scrub()
		b.store()
		b.linkNext()
		e.shrink(b, need)
		e.counters.inPlace++
		e.verify()
		return p, nil
	}

	nb, err := e.allocBlock(need)
	if err != nil {
		return nil, err
	}
	unsafex.Copy(nb.payload(), p, b.usable())
	e.release(b)
	e.usedBlocks--
	e.counters.relocations++
	e.verify()
	return nb.payload(), nil
}

func (e *engine) usableSize(p unsafe.Pointer) uintptr {
	return e.lookup(p).usable()
}
