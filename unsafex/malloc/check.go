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

import "fmt"

// check walks every extent and verifies:
//   - headers tile the extent exactly and carry valid prev sizes,
//   - no two physically adjacent blocks are free,
//   - a block is registered iff it is free, with the registered size,
//   - extents do not overlap and the counters agree with the walk.
func (e *engine) check() error {
	var (
		free, used int
		freeBytes  uintptr
		total      uintptr
	)
	for i, ext := range e.arena.extents {
		if i > 0 {
			if prev := e.arena.extents[i-1]; prev.base+prev.size > ext.base {
				return fmt.Errorf("%w: extents at %#x and %#x overlap", ErrCorrupt, prev.base, ext.base)
			}
		}
		total += ext.size

		var prevSize uintptr
		prevFree := false
		off := uintptr(0)
		for off < ext.size {
			b, ok := ext.load(off)
			if !ok {
				return fmt.Errorf("%w: bad header at %#x", ErrCorrupt, ext.base+off)
			}
			if b.prev != prevSize {
				return fmt.Errorf("%w: block at %#x records prev size %d, want %d", ErrCorrupt, b.addr(), b.prev, prevSize)
			}
			size, registered := e.reg.lookup(b.blockRef)
			if b.used {
				if registered {
					return fmt.Errorf("%w: used block at %#x is registered free", ErrCorrupt, b.addr())
				}
				used++
			} else {
				if prevFree {
					return fmt.Errorf("%w: adjacent free blocks at %#x", ErrCorrupt, b.addr())
				}
				if !registered {
					return fmt.Errorf("%w: free block at %#x is not registered", ErrCorrupt, b.addr())
				}
				if size != b.size {
					return fmt.Errorf("%w: free block at %#x registered with size %d, header says %d", ErrCorrupt, b.addr(), size, b.size)
				}
				free++
				freeBytes += b.size
			}
			prevFree = !b.used
			prevSize = b.size
			off += b.size
		}
		if off != ext.size {
			return fmt.Errorf("%w: blocks of extent %#x cover %d of %d bytes", ErrCorrupt, ext.base, off, ext.size)
		}
	}

	switch {
	case total != e.arena.total:
		return fmt.Errorf("%w: extents hold %d bytes, arena accounts %d", ErrCorrupt, total, e.arena.total)
	case free != e.reg.len():
		return fmt.Errorf("%w: %d free blocks found, %d registered", ErrCorrupt, free, e.reg.len())
	case freeBytes != e.reg.bytes:
		return fmt.Errorf("%w: %d free bytes found, %d registered", ErrCorrupt, freeBytes, e.reg.bytes)
	case used != e.usedBlocks:
		return fmt.Errorf("%w: %d used blocks found, %d accounted", ErrCorrupt, used, e.usedBlocks)
	}
	return nil
}
