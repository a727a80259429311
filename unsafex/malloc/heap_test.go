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
	"math/bits"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/xmalloc/errno"
	"github.com/cloudwego/xmalloc/pagesource"
)

const sizeMax = ^uintptr(0)

func TestNewLazyArena(t *testing.T) {
	h := newTestHeap(t)
	s := h.Stats()
	assert.Zero(t, s.Extents)
	assert.Zero(t, s.ArenaBytes)

	th := h.NewThread()
	p := th.Malloc(1)
	require.NotNil(t, p)
	s = h.Stats()
	assert.Equal(t, 1, s.Extents)
	assert.Equal(t, uint64(testExtentSize), s.ArenaBytes)
	assert.Equal(t, uint64(1), s.Grows)
	th.Free(p)
	assert.NoError(t, h.Check())
}

func TestNewInvalidOption(t *testing.T) {
	_, err := New(&Option{SizeClasses: &SizeClassConfig{SmallMin: 32, SmallMax: 64}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	if bits.UintSize == 64 {
		_, err = New(&Option{ExtentSize: sizeMax})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}

	opt := &Option{Source: pagesource.NewHeap()}
	h, err := New(opt)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Zero(t, opt.ExtentSize, "New must not modify the caller's Option")
}

func TestMallocZero(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	b1 := th.Malloc(0)
	b2 := th.Malloc(0)
	require.NotNil(t, b1)
	require.NotNil(t, b2)
	assert.NotEqual(t, b1, b2)
	assert.Equal(t, uintptr(Alignment), th.UsableSize(b1))
	th.Free(b1)
	th.Free(b2)
	assert.NoError(t, h.Check())
}

func TestMallocSimple(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(100)
	require.NotNil(t, p)
	assertAligned(t, p, Alignment)
	fill(p, 100, 0x5A)
	assertFilled(t, p, 100, 0x5A)
	assert.Equal(t, uintptr(112), th.UsableSize(p))
	th.Free(p)
}

func TestMallocOverflow(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	for _, n := range []uintptr{sizeMax, sizeMax - headerSize, maxRequest + 1} {
		th.SetErrno(errno.Success)
		assert.Nil(t, th.Malloc(n), "n=%d", n)
		assert.Equal(t, errno.ENOMEM, th.Errno(), "n=%d", n)
	}
	assert.Zero(t, h.Stats().Extents, "oversized requests must not reach the page source")
}

func TestMallocReallocLarger(t *testing.T) {
	th := newTestHeap(t).NewThread()
	p := th.Malloc(100)
	require.NotNil(t, p)
	fill(p, 100, 67)
	p = th.Realloc(p, 200)
	require.NotNil(t, p)
	assertFilled(t, p, 100, 67)
	th.Free(p)
}

func TestMallocReallocSmaller(t *testing.T) {
	th := newTestHeap(t).NewThread()
	p := th.Malloc(200)
	require.NotNil(t, p)
	fill(p, 200, 67)
	p = th.Realloc(p, 100)
	require.NotNil(t, p)
	assertFilled(t, p, 100, 67)
	th.Free(p)
}

func TestMallocMultipleRealloc(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(200)
	require.NotNil(t, p)
	fill(p, 200, 0x23)

	p = th.Realloc(p, 100)
	require.NotNil(t, p)
	assertFilled(t, p, 100, 0x23)

	p = th.Realloc(p, 50)
	require.NotNil(t, p)
	assertFilled(t, p, 50, 0x23)

	p = th.Realloc(p, 150)
	require.NotNil(t, p)
	assertFilled(t, p, 50, 0x23)
	fill(p, 150, 0x23)

	p = th.Realloc(p, 425)
	require.NotNil(t, p)
	assertFilled(t, p, 150, 0x23)
	th.Free(p)
	assert.NoError(t, h.Check())
}

func TestCallocRealloc(t *testing.T) {
	th := newTestHeap(t).NewThread()

	p := th.Calloc(1, 100)
	require.NotNil(t, p)
	p = th.Realloc(p, 200)
	require.NotNil(t, p)
	assertFilled(t, p, 100, 0)
	th.Free(p)

	p = th.Calloc(1, 200)
	require.NotNil(t, p)
	p = th.Realloc(p, 100)
	require.NotNil(t, p)
	assertFilled(t, p, 100, 0)
	th.Free(p)

	p = th.Calloc(1, 200)
	require.NotNil(t, p)
	for _, step := range []struct{ size, keep uintptr }{{100, 100}, {50, 50}, {150, 50}, {425, 50}} {
		p = th.Realloc(p, step.size)
		require.NotNil(t, p, "size=%d", step.size)
		assertFilled(t, p, step.keep, 0)
	}
	th.Free(p)
}

func TestReallocOverflow(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	assert.Nil(t, th.Realloc(nil, sizeMax))
	assert.Equal(t, errno.ENOMEM, th.Errno())

	p := th.Malloc(100)
	require.NotNil(t, p)
	fill(p, 100, 0x11)
	th.SetErrno(errno.Success)
	assert.Nil(t, th.Realloc(p, sizeMax))
	assert.Equal(t, errno.ENOMEM, th.Errno())
	assertFilled(t, p, 100, 0x11)
	th.Free(p)
	assert.NoError(t, h.Check())
}

func TestReallocExhaustedKeepsOriginal(t *testing.T) {
	h := newTestHeap(t, func(o *Option) {
		o.Source = pagesource.Limit(pagesource.NewHeap(), testExtentSize)
	})
	th := h.NewThread()
	p := th.Malloc(100)
	require.NotNil(t, p)
	fill(p, 100, 0x42)
	guard := th.Malloc(100)
	require.NotNil(t, guard)

	assert.Nil(t, th.Realloc(p, 1<<20))
	assert.Equal(t, errno.ENOMEM, th.Errno())
	assertFilled(t, p, 100, 0x42)
	assert.NoError(t, h.Check())

	th.Free(p)
	th.Free(guard)
	assert.NoError(t, h.Check())
}

func TestReallocNull(t *testing.T) {
	th := newTestHeap(t).NewThread()
	buf := th.Realloc(nil, 100)
	require.NotNil(t, buf)
	assert.GreaterOrEqual(t, th.UsableSize(buf), uintptr(100))
	th.Free(buf)
}

func TestReallocExample(t *testing.T) {
	th := newTestHeap(t).NewThread()
	buf := th.Malloc(64)
	require.NotNil(t, buf)
	fill(buf, 64, 'A')
	buf = th.Realloc(buf, 128)
	require.NotNil(t, buf)
	assertFilled(t, buf, 64, 'A')
	th.Free(buf)
}

func TestReallocZeroShrinksInPlace(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(1000)
	require.NotNil(t, p)
	q := th.Realloc(p, 0)
	assert.Equal(t, p, q)
	assert.Equal(t, uintptr(Alignment), th.UsableSize(q))
	th.Free(q)
	assert.NoError(t, h.Check())
}

func TestReallocGrowInPlace(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(100)
	require.NotNil(t, p)
	fill(p, 100, 0x7E)

	q := th.Realloc(p, 1000)
	assert.Equal(t, p, q, "free successor should be absorbed")
	assertFilled(t, q, 100, 0x7E)
	assert.GreaterOrEqual(t, th.UsableSize(q), uintptr(1000))

	s := h.Stats()
	assert.Equal(t, uint64(1), s.InPlaceResizes)
	assert.Zero(t, s.Relocations)
	th.Free(q)
}

func TestReallocShrinkReleasesTail(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(1000)
	guard := th.Malloc(10)
	require.NotNil(t, p)
	require.NotNil(t, guard)
	before := h.Stats()

	q := th.Realloc(p, 100)
	assert.Equal(t, p, q)
	after := h.Stats()
	assert.Equal(t, before.FreeBlocks+1, after.FreeBlocks)
	assert.Equal(t, before.FreeBytes+(1024-128), after.FreeBytes)

	th.Free(q)
	th.Free(guard)
	assert.NoError(t, h.Check())
}

func TestReallocRelocates(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(100)
	guard := th.Malloc(100)
	require.NotNil(t, p)
	require.NotNil(t, guard)
	fill(p, 100, 0x33)
	fill(guard, 100, 0x44)

	q := th.Realloc(p, 1000)
	require.NotNil(t, q)
	assert.NotEqual(t, p, q)
	assertFilled(t, q, 100, 0x33)
	assertFilled(t, guard, 100, 0x44)
	assert.Equal(t, uint64(1), h.Stats().Relocations)

	th.Free(q)
	th.Free(guard)
	assert.NoError(t, h.Check())
}

func TestCallocExample(t *testing.T) {
	th := newTestHeap(t).NewThread()
	p := th.Calloc(1, 100)
	require.NotNil(t, p)
	assertFilled(t, p, 100, 0)
	th.Free(p)
}

func TestCallocZeroesReusedMemory(t *testing.T) {
	th := newTestHeap(t).NewThread()
	p := th.Malloc(256)
	require.NotNil(t, p)
	fill(p, 256, 0xFF)
	th.Free(p)

	q := th.Calloc(16, 16)
	require.NotNil(t, q)
	assertFilled(t, q, 256, 0)
	th.Free(q)
}

func TestCallocOverflow(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	tests := []struct{ n, size uintptr }{
		{sizeMax, 100},
		{1, sizeMax},
		{sizeMax, sizeMax},
		{2, sizeMax},
		{sizeMax, 2},
		{maxRequest, 2},
	}
	for _, tt := range tests {
		th.SetErrno(errno.Success)
		assert.Nil(t, th.Calloc(tt.n, tt.size), "n=%d size=%d", tt.n, tt.size)
		assert.Equal(t, errno.ENOMEM, th.Errno(), "n=%d size=%d", tt.n, tt.size)
	}
	assert.Zero(t, h.Stats().Extents)
}

func TestPosixMemalignBad(t *testing.T) {
	th := newTestHeap(t).NewThread()
	for i := uintptr(0); i < unsafe.Sizeof(uintptr(0)); i++ {
		assert.Equal(t, errno.EINVAL, th.PosixMemalign(nil, i, 1), "align=%d", i)
	}

	sentinel := unsafe.Pointer(&struct{ x int }{})
	for _, align := range []uintptr{0, 1, 2, 24, 100} {
		out := sentinel
		th.SetErrno(errno.Success)
		assert.Equal(t, errno.EINVAL, th.PosixMemalign(&out, align, 1), "align=%d", align)
		assert.Equal(t, sentinel, out, "out must be untouched")
		assert.Equal(t, errno.EINVAL, th.Errno())
	}

	assert.Equal(t, errno.EINVAL, th.PosixMemalign(nil, 64, 1), "nil out")
}

func TestCheckMemalign(t *testing.T) {
	var out unsafe.Pointer
	assert.NoError(t, checkMemalign(&out, 64))

	err := checkMemalign(nil, 64)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorContains(t, err, "nil result pointer")
	assert.NotContains(t, err.Error(), "alignment")

	err = checkMemalign(&out, 24)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorContains(t, err, "alignment 24")

	// a nil out is reported before a bad alignment
	assert.ErrorIs(t, checkMemalign(nil, 3), errNilOut)
}

func TestPosixMemalignExample(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	for i := unsafe.Sizeof(uintptr(0)); i <= 4096; i *= 2 {
		var buf unsafe.Pointer
		require.Equal(t, errno.Success, th.PosixMemalign(&buf, i, 1), "align=%d", i)
		require.NotNil(t, buf)
		assertAligned(t, buf, i)
		th.Free(buf)
	}

	var buf unsafe.Pointer
	require.Equal(t, errno.Success, th.PosixMemalign(&buf, 1<<16, 100))
	assertAligned(t, buf, 1<<16)
	fill(buf, 100, 0x99)
	th.FreeAlignedSized(buf, 1<<16, 100)
	assert.NoError(t, h.Check())
}

func TestPosixMemalignMany(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	var ptrs []unsafe.Pointer
	for i := 0; i < 64; i++ {
		align := uintptr(32) << (i % 6)
		var p unsafe.Pointer
		require.Equal(t, errno.Success, th.PosixMemalign(&p, align, uintptr(i*7+1)))
		assertAligned(t, p, align)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		th.Free(p)
	}
	s := h.Stats()
	assert.Zero(t, s.InUseBlocks)
	assert.Equal(t, s.Extents, s.FreeBlocks, "everything should coalesce back")
}

func TestPosixMemalignOverflow(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	sentinel := unsafe.Pointer(&struct{ x int }{})
	out := sentinel
	assert.Equal(t, errno.ENOMEM, th.PosixMemalign(&out, 1<<(bits.UintSize-1), 1))
	assert.Equal(t, errno.ENOMEM, th.PosixMemalign(&out, 64, sizeMax))
	assert.Equal(t, errno.ENOMEM, th.Errno())
	assert.Equal(t, sentinel, out)
	assert.NoError(t, h.Check())
}

func TestAlignedAlloc(t *testing.T) {
	th := newTestHeap(t).NewThread()
	for _, align := range []uintptr{0, 3, 48} {
		th.SetErrno(errno.Success)
		assert.Nil(t, th.AlignedAlloc(align, 10), "align=%d", align)
		assert.Equal(t, errno.EINVAL, th.Errno(), "align=%d", align)
	}
	for _, align := range []uintptr{1, 2, 8, 16, 64, 4096} {
		p := th.AlignedAlloc(align, 10)
		require.NotNil(t, p, "align=%d", align)
		assertAligned(t, p, align)
		assertAligned(t, p, Alignment)
		th.Free(p)
	}
}

func TestFreeNull(t *testing.T) {
	th := newTestHeap(t).NewThread()
	th.SetErrno(errno.EINVAL)
	th.Free(nil)
	th.FreeSized(nil, 10)
	th.FreeAlignedSized(nil, 64, 10)
	assert.Equal(t, errno.EINVAL, th.Errno())
	assert.Zero(t, th.UsableSize(nil))
}

func TestFreeExample(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	buf := th.Malloc(32)
	require.NotNil(t, buf)
	th.Free(buf)
	s := h.Stats()
	assert.Equal(t, uint64(1), s.Frees)
	assert.Zero(t, s.InUseBlocks)
	assert.Equal(t, 1, s.FreeBlocks)
}

func TestFreeInvalidPanics(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()

	p := th.Malloc(32)
	require.NotNil(t, p)
	th.Free(p)
	assert.Panics(t, func() { th.Free(p) }, "double free")

	a := th.Malloc(64)
	b := th.Malloc(64)
	c := th.Malloc(64)
	th.Free(a)
	th.Free(b) // merged into a
	assert.Panics(t, func() { th.Free(b) }, "double free of merged block")

	fill(c, 64, 0)
	assert.Panics(t, func() { th.Free(unsafe.Add(c, 16)) }, "interior pointer")
	assert.Panics(t, func() { th.Free(unsafe.Add(c, 1)) }, "misaligned pointer")

	foreign := make([]byte, 64)
	assert.Panics(t, func() { th.Free(unsafe.Pointer(&foreign[16])) }, "foreign pointer")
	assert.Panics(t, func() { th.UsableSize(unsafe.Pointer(&foreign[16])) })

	// nothing above mutated the heap
	assert.NoError(t, h.Check())
	th.Free(c)
	assert.NoError(t, h.Check())
}

func TestFreeSizedHints(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()

	p := th.Malloc(100)
	th.FreeSized(p, 100)

	q := th.Malloc(100)
	assert.Panics(t, func() { th.FreeSized(q, 10000) })
	th.FreeSized(q, 50)

	a := th.AlignedAlloc(64, 100)
	require.NotNil(t, a)
	assert.Panics(t, func() { th.FreeAlignedSized(a, 3, 100) })
	assert.Panics(t, func() { th.FreeAlignedSized(a, 0, 100) })
	assert.Panics(t, func() { th.FreeAlignedSized(a, 64, 1000) })
	th.FreeAlignedSized(a, 64, 100)

	assert.NoError(t, h.Check())
	assert.Zero(t, h.Stats().InUseBlocks)
}

func TestMallocFreeReuse(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	a := th.Malloc(64)
	b := th.Malloc(64)
	require.NotNil(t, a)
	require.NotNil(t, b)
	fill(b, 64, 0x5A)

	th.Free(a)
	c := th.Malloc(64)
	assert.Equal(t, a, c, "best fit should reuse the freed block")
	fill(c, 64, 0xA5)
	assertFilled(t, b, 64, 0x5A)

	th.Free(b)
	th.Free(c)
	assert.NoError(t, h.Check())
}

func TestCoalesce(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	a := th.Malloc(64)
	b := th.Malloc(64)
	c := th.Malloc(64)

	th.Free(a)
	assert.Equal(t, 2, h.Stats().FreeBlocks)
	th.Free(c)
	assert.Equal(t, 2, h.Stats().FreeBlocks)
	th.Free(b)

	s := h.Stats()
	assert.Equal(t, 1, s.FreeBlocks)
	assert.Equal(t, s.ArenaBytes, s.FreeBytes)
	assert.Zero(t, s.InUseBytes)
	assert.Equal(t, uint64(3), s.Coalesces)
}

func TestNoCoalesceAcrossExtents(t *testing.T) {
	h := newTestHeap(t, func(o *Option) { o.ExtentSize = 4096 })
	th := h.NewThread()
	p1 := th.Malloc(4096 - headerSize)
	p2 := th.Malloc(4096 - headerSize)
	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.Equal(t, 2, h.Stats().Extents)

	th.Free(p1)
	th.Free(p2)
	s := h.Stats()
	assert.Equal(t, 2, s.FreeBlocks)
	assert.Zero(t, s.Coalesces)
	assert.NoError(t, h.Check())
}

func TestLargeRequestGetsOwnExtent(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	p := th.Malloc(1 << 20)
	require.NotNil(t, p)
	fill(p, 1<<20, 0xEE)
	assert.GreaterOrEqual(t, th.UsableSize(p), uintptr(1<<20))

	s := h.Stats()
	assert.Equal(t, 1, s.Extents)
	assert.GreaterOrEqual(t, s.ArenaBytes, uint64(1<<20+headerSize))
	th.Free(p)
}

func TestSourceExhausted(t *testing.T) {
	h := newTestHeap(t, func(o *Option) {
		o.Source = pagesource.Limit(pagesource.NewHeap(), testExtentSize)
	})
	th := h.NewThread()
	p := th.Malloc(100)
	require.NotNil(t, p)

	assert.Nil(t, th.Malloc(1<<20))
	assert.Equal(t, errno.ENOMEM, th.Errno())
	assert.NoError(t, h.Check())

	q := th.Malloc(100)
	assert.NotNil(t, q)
	th.Free(p)
	th.Free(q)
}

func TestMaxArenaBytes(t *testing.T) {
	h := newTestHeap(t, func(o *Option) { o.MaxArenaBytes = 2 * testExtentSize })
	th := h.NewThread()
	require.NotNil(t, th.Malloc(60<<10))
	require.NotNil(t, th.Malloc(60<<10))
	assert.Nil(t, th.Malloc(60<<10))
	assert.Equal(t, errno.ENOMEM, th.Errno())
	assert.Equal(t, uint64(2*testExtentSize), h.Stats().ArenaBytes)

	// the tails of both extents still serve small requests
	assert.NotNil(t, th.Malloc(100))
	assert.NoError(t, h.Check())
}

func TestMaxArenaBytesSettlesForNeed(t *testing.T) {
	h := newTestHeap(t, func(o *Option) { o.MaxArenaBytes = testExtentSize + 8192 })
	th := h.NewThread()
	require.NotNil(t, th.Malloc(100))
	require.NotNil(t, th.Malloc(65000))
	require.NotNil(t, th.Malloc(5000))

	s := h.Stats()
	assert.Equal(t, 2, s.Extents)
	assert.Equal(t, uint64(testExtentSize+8192), s.ArenaBytes)
}

func TestErrnoPerThread(t *testing.T) {
	h := newTestHeap(t)
	t1 := h.NewThread()
	t2 := h.NewThread()

	assert.Nil(t, t1.Malloc(sizeMax))
	assert.Equal(t, errno.ENOMEM, t1.Errno())
	assert.Equal(t, errno.Success, t2.Errno())

	// success does not clear it
	p := t1.Malloc(10)
	require.NotNil(t, p)
	assert.Equal(t, errno.ENOMEM, t1.Errno())
	t1.SetErrno(errno.Success)
	assert.Equal(t, errno.Success, t1.Errno())
	t1.Free(p)

	cell := new(errno.Cell)
	bound := h.Bind(cell)
	assert.Nil(t, bound.AlignedAlloc(3, 1))
	assert.Equal(t, errno.EINVAL, cell.Get())
}

func TestCheckDetectsCorruption(t *testing.T) {
	h := newTestHeap(t, func(o *Option) { o.Paranoid = false })
	th := h.NewThread()
	require.NotNil(t, th.Malloc(100))
	q := th.Malloc(100)
	require.NotNil(t, q)
	require.NoError(t, h.Check())

	w := (*[2]uint64)(unsafe.Add(q, -headerSize))
	w[1] = blockMagic<<magicShift | 999
	assert.ErrorIs(t, h.Check(), ErrCorrupt)
}

func TestParanoidPanicsOnCorruption(t *testing.T) {
	h := newTestHeap(t)
	th := h.NewThread()
	require.NotNil(t, th.Malloc(100))
	q := th.Malloc(100)
	require.NotNil(t, q)

	w := (*[2]uint64)(unsafe.Add(q, -headerSize))
	w[1] = blockMagic<<magicShift | 999
	assert.Panics(t, func() { th.Malloc(10) })
}

func panicErr(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	f()
	return nil
}

func TestFreeCorruptNeighbourPanics(t *testing.T) {
	setup := func(t *testing.T) (Thread, unsafe.Pointer, unsafe.Pointer) {
		th := newTestHeap(t, func(o *Option) { o.Paranoid = false }).NewThread()
		a := th.Malloc(100)
		b := th.Malloc(100)
		require.NotNil(t, a)
		require.NotNil(t, b)
		require.NotNil(t, th.Malloc(100))
		return th, a, b
	}

	t.Run("zeroed successor", func(t *testing.T) {
		th, a, b := setup(t)
		w := (*[2]uint64)(unsafe.Add(b, -headerSize))
		w[0], w[1] = 0, 0
		assert.ErrorIs(t, panicErr(func() { th.Free(a) }), ErrCorrupt)
	})
	t.Run("zeroed predecessor", func(t *testing.T) {
		th, a, b := setup(t)
		w := (*[2]uint64)(unsafe.Add(a, -headerSize))
		w[0], w[1] = 0, 0
		assert.ErrorIs(t, panicErr(func() { th.Free(b) }), ErrCorrupt)
	})
	t.Run("predecessor size disagrees", func(t *testing.T) {
		th, a, b := setup(t)
		w := (*[2]uint64)(unsafe.Add(a, -headerSize))
		w[0] -= Alignment
		assert.ErrorIs(t, panicErr(func() { th.Free(b) }), ErrCorrupt)
	})
	t.Run("realloc into zeroed successor", func(t *testing.T) {
		th, a, b := setup(t)
		w := (*[2]uint64)(unsafe.Add(b, -headerSize))
		w[0], w[1] = 0, 0
		assert.ErrorIs(t, panicErr(func() { th.Realloc(a, 1000) }), ErrCorrupt)
	})
}
