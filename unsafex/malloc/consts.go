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

import "math/bits"

const (
	// Alignment is the alignment of every pointer returned by Malloc.
	Alignment = 16

	// headerSize is the size of the in-band block header.
	// word 0: block size | used bit
	// word 1: magic << 48 | size of the preceding block
	headerSize = 16

	// minBlockSize is the smallest block: a header plus one aligned unit.
	minBlockSize = headerSize + Alignment

	usedBit    = 1
	magicShift = 48
	prevMask   = 1<<magicShift - 1
	blockMagic = 0xA11C

	// maxRequest is the largest payload the heap attempts to satisfy:
	// 2^47-1 on 64-bit platforms, 2^31-1 on 32-bit ones.
	maxRequest = 1<<(bits.UintSize/2+15) - 1

	// maxExtentSize bounds a single extent so prev sizes fit in 48 bits.
	maxExtentSize = 1<<(bits.UintSize/2+16) - 1
)

// blockSizeFor returns the block size needed to serve a request of n bytes.
func blockSizeFor(n uintptr) (uintptr, error) {
	if n > maxRequest {
		return 0, errTooLarge(n)
	}
	need := (n + headerSize + Alignment - 1) &^ (Alignment - 1)
	if need < minBlockSize {
		need = minBlockSize
	}
	return need, nil
}
