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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/xmalloc/pagesource"
	"github.com/cloudwego/xmalloc/unsafex"
)

const testExtentSize = 64 << 10

func newTestHeap(t testing.TB, mods ...func(*Option)) *Heap {
	t.Helper()
	opt := DefaultOption()
	opt.Source = pagesource.NewHeap()
	opt.ExtentSize = testExtentSize
	opt.Paranoid = true
	for _, mod := range mods {
		mod(opt)
	}
	h, err := New(opt)
	require.NoError(t, err)
	return h
}

func fill(p unsafe.Pointer, n uintptr, v byte) {
	b := unsafex.Bytes(p, n)
	for i := range b {
		b[i] = v
	}
}

func assertFilled(t testing.TB, p unsafe.Pointer, n uintptr, v byte) bool {
	t.Helper()
	for i, c := range unsafex.Bytes(p, n) {
		if c != v {
			return assert.Failf(t, "content mismatch", "byte %d is %#x, want %#x", i, c, v)
		}
	}
	return true
}

func assertAligned(t testing.TB, p unsafe.Pointer, align uintptr) bool {
	t.Helper()
	return assert.Zero(t, uintptr(p)%align, "pointer %p not aligned to %d", p, align)
}
