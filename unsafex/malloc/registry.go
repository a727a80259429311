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
	"container/heap"

	"github.com/bits-and-blooms/bitset"
)

// freeEntry is a registered free block.
type freeEntry struct {
	ref   blockRef
	size  uintptr
	class int
	index int // position in its class heap
}

// freeHeap is a min-heap on size, ties broken by address so the choice
// between equal blocks is deterministic.
type freeHeap []*freeEntry

func (h freeHeap) Len() int { return len(h) }

func (h freeHeap) Less(i, j int) bool {
	if h[i].size != h[j].size {
		return h[i].size < h[j].size
	}
	return h[i].ref.addr() < h[j].ref.addr()
}

func (h freeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *freeHeap) Push(x any) {
	e := x.(*freeEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *freeHeap) Pop() any {
	old := *h
	n := len(old) - 1
	e := old[n]
	old[n] = nil
	e.index = -1
	*h = old[:n]
	return e
}

// registry indexes every free block of the heap.
type registry struct {
	table    *sizeClassTable
	lists    []freeHeap
	occupied *bitset.BitSet // bit i set iff lists[i] is non-empty
	byRef    map[blockRef]*freeEntry
	bytes    uintptr
}

func newRegistry(table *sizeClassTable) *registry {
	n := table.numClasses()
	return &registry{
		table:    table,
		lists:    make([]freeHeap, n),
		occupied: bitset.New(uint(n)),
		byRef:    make(map[blockRef]*freeEntry),
	}
}

func (r *registry) len() int { return len(r.byRef) }

// insert registers the free block b.
func (r *registry) insert(b block) {
	c := r.table.classOf(b.size)
	e := &freeEntry{ref: b.blockRef, size: b.size, class: c}
	heap.Push(&r.lists[c], e)
	r.occupied.Set(uint(c))
	r.byRef[b.blockRef] = e
	r.bytes += b.size
}

// remove unregisters ref, reporting whether it was registered.
func (r *registry) remove(ref blockRef) bool {
	e, ok := r.byRef[ref]
	if !ok {
		return false
	}
	heap.Remove(&r.lists[e.class], e.index)
	r.drop(e)
	return true
}

// lookup returns the registered size of ref.
func (r *registry) lookup(ref blockRef) (uintptr, bool) {
	e, ok := r.byRef[ref]
	if !ok {
		return 0, false
	}
	return e.size, true
}

func (r *registry) drop(e *freeEntry) {
	delete(r.byRef, e.ref)
	r.bytes -= e.size
	if len(r.lists[e.class]) == 0 {
		r.occupied.Clear(uint(e.class))
	}
}

// take removes and returns the smallest registered block of at least need
// bytes. Within need's own class blocks may be smaller than need, so that
// class is scanned; in any higher class the heap top always fits.
func (r *registry) take(need uintptr) (blockRef, bool) {
	c := r.table.classOf(need)
	if e := r.bestIn(c, need); e != nil {
		heap.Remove(&r.lists[c], e.index)
		r.drop(e)
		return e.ref, true
	}
	if next, ok := r.occupied.NextSet(uint(c + 1)); ok {
		e := heap.Pop(&r.lists[next]).(*freeEntry)
		r.drop(e)
		return e.ref, true
	}
	return blockRef{}, false
}

// bestIn returns the smallest entry of class c holding at least need bytes.
// A heap node orders before its whole subtree, so the walk stops at the first
// fitting node on each path: it visits only the entries smaller than need plus
// one frontier node each, never the rest of the class.
func (r *registry) bestIn(c int, need uintptr) *freeEntry {
	h := r.lists[c]
	var best *freeEntry
	var walk func(i int)
	walk = func(i int) {
		if i >= len(h) {
			return
		}
		e := h[i]
		if e.size >= need {
			if best == nil || h.Less(i, best.index) {
				best = e
			}
			return
		}
		walk(2*i + 1)
		walk(2*i + 2)
	}
	walk(0)
	return best
}
