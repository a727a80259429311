//go:build !unix

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

import "errors"

// Mmap is unavailable on this platform.
type Mmap struct{}

// NewMmap always fails here; Default falls back to NewHeap.
func NewMmap() (*Mmap, error) {
	return nil, errors.New("pagesource: mmap not supported on this platform")
}

// PageSize implements Source.
func (m *Mmap) PageSize() uintptr { return heapPageSize }

// Acquire implements Source.
func (m *Mmap) Acquire(size uintptr) ([]byte, error) {
	return nil, ErrExhausted
}
