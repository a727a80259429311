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
	"fmt"
	"sync"
)

// Limited wraps a Source with a byte budget. Once an acquisition would take
// the total above the budget it fails with ErrExhausted.
type Limited struct {
	src Source

	mu     sync.Mutex
	budget uintptr
	used   uintptr
	calls  int
}

// Limit returns src restricted to budget bytes in total.
func Limit(src Source, budget uintptr) *Limited {
	return &Limited{src: src, budget: budget}
}

// PageSize implements Source.
func (l *Limited) PageSize() uintptr { return l.src.PageSize() }

// Acquire implements Source.
func (l *Limited) Acquire(size uintptr) ([]byte, error) {
	n, err := roundPages(size, l.src.PageSize())
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	var left uintptr
	if l.used < l.budget {
		left = l.budget - l.used
	}
	if n > left {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d left", ErrExhausted, n, left, l.budget)
	}
	b, err := l.src.Acquire(n)
	if err != nil {
		return nil, err
	}
	l.used += uintptr(len(b))
	return b, nil
}

// Used returns the number of bytes handed out so far.
func (l *Limited) Used() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Calls returns the number of Acquire calls, failed ones included.
func (l *Limited) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
