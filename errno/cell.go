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

package errno

import "sync/atomic"

// Cell holds the last failure recorded for one thread of execution.
// The zero value holds Success and is ready to use.
//
// Accesses are atomic so a Cell shared by mistake cannot tear, but a Cell is
// meant to be written by a single thread only.
type Cell struct {
	v atomic.Int32
}

// Get returns the recorded failure kind.
func (c *Cell) Get() Errno {
	return Errno(c.v.Load())
}

// Set records e.
func (c *Cell) Set(e Errno) {
	c.v.Store(int32(e))
}

// Clear resets the cell to Success.
func (c *Cell) Clear() {
	c.v.Store(int32(Success))
}
