//go:build unix

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

package pagesource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapAcquire(t *testing.T) {
	src, err := NewMmap()
	require.NoError(t, err)
	page := src.PageSize()
	assert.NotZero(t, page)
	assert.Zero(t, page&(page-1), "page size must be a power of two")

	for _, sz := range []uintptr{1, page, page + 1, 1 << 20} {
		b, err := src.Acquire(sz)
		require.NoError(t, err, "size=%d", sz)
		// anonymous mappings start zeroed
		assert.Equal(t, byte(0), b[0])
		assert.Equal(t, byte(0), b[len(b)-1])
		checkExtent(t, src, b, sz)
	}
}

func TestMmapAcquireOverflow(t *testing.T) {
	src, err := NewMmap()
	require.NoError(t, err)
	_, err = src.Acquire(^uintptr(0))
	assert.True(t, errors.Is(err, ErrExhausted))
}
