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

// Package malloc implements a general purpose allocator over memory obtained
// from a pagesource.Source.
//
// The heap is a set of extents, each tiled by blocks carrying a 16-byte
// in-band header. Free blocks are kept in segregated size classes and served
// best fit; freed blocks merge with free physical neighbours. Extents are
// never returned to the source.
//
// The API follows the C allocation family: Malloc, Calloc, Realloc, Free,
// FreeSized, FreeAlignedSized, PosixMemalign and AlignedAlloc. Failures are
// reported through a per-thread error cell (see package errno) rather than
// Go errors, so a Thread handle is the unit of use:
//
//	t := malloc.Default().NewThread()
//	p := t.Malloc(128)
//	if p == nil {
//		println(t.Errno().String())
//	}
//	t.Free(p)
//
// Passing a pointer that did not come from the same Heap, or freeing a block
// twice, panics.
package malloc
