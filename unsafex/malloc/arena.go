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
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/cloudwego/xmalloc/pagesource"
	"github.com/cloudwego/xmalloc/unsafex"
)

// arena owns the extents of a heap, sorted by base address.
type arena struct {
	src        pagesource.Source
	extentSize uintptr
	budget     uintptr // 0 means unlimited
	total      uintptr
	extents    []*extent
	log        *slog.Logger
}

// grow acquires an extent able to hold a block of need bytes.
func (a *arena) grow(need uintptr) (*extent, error) {
	page := a.src.PageSize()
	if page < Alignment {
		page = Alignment
	}
	size := need
	if size < a.extentSize {
		size = a.extentSize
	}
	size, ok := unsafex.AlignUp(size, page)
	if !ok || size > maxExtentSize {
		return nil, fmt.Errorf("%w: extent for %d bytes too large", ErrOutOfMemory, need)
	}

	if a.budget != 0 {
		var left uintptr
		if a.total < a.budget {
			left = a.budget - a.total
		}
		if size > left {
			// settle for exactly what is needed
			size, _ = unsafex.AlignUp(need, page)
		}
		if size > left {
			a.log.Warn("malloc: arena budget exhausted",
				"need", humanize.IBytes(uint64(need)),
				"left", humanize.IBytes(uint64(left)),
				"budget", humanize.IBytes(uint64(a.budget)))
			return nil, fmt.Errorf("%w: arena budget of %d bytes exhausted", ErrOutOfMemory, a.budget)
		}
	}

	mem, err := a.src.Acquire(size)
	if err != nil {
		a.log.Warn("malloc: page source failed", "size", humanize.IBytes(uint64(size)), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	ext := newExtent(mem)
	if ext.base%Alignment != 0 || ext.size < need {
		a.log.Warn("malloc: page source returned unusable extent",
			"base", fmt.Sprintf("%#x", ext.base), "len", len(mem), "need", need)
		return nil, fmt.Errorf("%w: unusable extent of %d bytes at %#x", ErrOutOfMemory, len(mem), ext.base)
	}

	i := sort.Search(len(a.extents), func(i int) bool { return a.extents[i].base > ext.base })
	a.extents = append(a.extents, nil)
	copy(a.extents[i+1:], a.extents[i:])
	a.extents[i] = ext
	a.total += ext.size

	a.log.Debug("malloc: extent acquired",
		"base", fmt.Sprintf("%#x", ext.base),
		"size", humanize.IBytes(uint64(ext.size)),
		"extents", len(a.extents),
		"arena", humanize.IBytes(uint64(a.total)))
	return ext, nil
}

// find returns the extent containing addr, or nil.
func (a *arena) find(addr uintptr) *extent {
	i := sort.Search(len(a.extents), func(i int) bool { return a.extents[i].base > addr }) - 1
	if i < 0 {
		return nil
	}
	if ext := a.extents[i]; ext.contains(addr) {
		return ext
	}
	return nil
}
