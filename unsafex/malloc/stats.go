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

	"github.com/dustin/go-humanize"
)

// Stats is a snapshot of heap accounting. Byte counts include headers.
type Stats struct {
	Extents     int
	ArenaBytes  uint64
	InUseBytes  uint64
	FreeBytes   uint64
	InUseBlocks int
	FreeBlocks  int

	Mallocs        uint64
	Frees          uint64
	Grows          uint64
	Splits         uint64
	Coalesces      uint64
	InPlaceResizes uint64
	Relocations    uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("arena=%s in-use=%s (%d blocks) free=%s (%d blocks) extents=%d "+
		"mallocs=%d frees=%d grows=%d splits=%d coalesces=%d in-place=%d relocations=%d",
		humanize.IBytes(s.ArenaBytes), humanize.IBytes(s.InUseBytes), s.InUseBlocks,
		humanize.IBytes(s.FreeBytes), s.FreeBlocks, s.Extents,
		s.Mallocs, s.Frees, s.Grows, s.Splits, s.Coalesces, s.InPlaceResizes, s.Relocations)
}

func (e *engine) stats() Stats {
	return Stats{
		Extents:        len(e.arena.extents),
		ArenaBytes:     uint64(e.arena.total),
		InUseBytes:     uint64(e.arena.total - e.reg.bytes),
		FreeBytes:      uint64(e.reg.bytes),
		InUseBlocks:    e.usedBlocks,
		FreeBlocks:     e.reg.len(),
		Mallocs:        e.counters.mallocs,
		Frees:          e.counters.frees,
		Grows:          e.counters.grows,
		Splits:         e.counters.splits,
		Coalesces:      e.counters.coalesces,
		InPlaceResizes: e.counters.inPlace,
		Relocations:    e.counters.relocations,
	}
}
