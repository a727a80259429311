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
	"math"
	"sort"
)

// SizeClassConfig describes how free blocks are bucketed.
// Classes step linearly from SmallMin to SmallMax, then grow geometrically up
// to MediumMax. Blocks larger than that share one open-ended class.
type SizeClassConfig struct {
	SmallMin  uintptr
	SmallMax  uintptr
	SmallStep uintptr

	MediumMax    uintptr
	GrowthFactor float64
}

// DefaultSizeClasses: 32-512 step 16 then x1.5 up to 1 MiB, about 50 classes.
var DefaultSizeClasses = SizeClassConfig{
	SmallMin:     minBlockSize,
	SmallMax:     512,
	SmallStep:    Alignment,
	MediumMax:    1 << 20,
	GrowthFactor: 1.5,
}

func (c SizeClassConfig) validate() error {
	switch {
	case c.SmallStep == 0:
		return fmt.Errorf("%w: size class step must be positive", ErrInvalidArgument)
	case c.SmallMin > c.SmallMax:
		return fmt.Errorf("%w: SmallMin (%d) must be <= SmallMax (%d)", ErrInvalidArgument, c.SmallMin, c.SmallMax)
	case c.SmallMax > c.MediumMax:
		return fmt.Errorf("%w: SmallMax (%d) must be <= MediumMax (%d)", ErrInvalidArgument, c.SmallMax, c.MediumMax)
	case c.SmallMax < c.MediumMax && (!(c.GrowthFactor > 1) || math.IsInf(c.GrowthFactor, 1)):
		return fmt.Errorf("%w: growth factor must be finite and > 1, got %v", ErrInvalidArgument, c.GrowthFactor)
	}
	return nil
}

// maxSizeClasses bounds the table built from a config.
const maxSizeClasses = 4096

// sizeClassTable holds the inclusive upper bound of every bounded class.
// Class len(bounds) is the large class.
type sizeClassTable struct {
	bounds []uintptr
}

func newSizeClassTable(c SizeClassConfig) (*sizeClassTable, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	t := &sizeClassTable{bounds: make([]uintptr, 0, 64)}

	// linear, the last step clamped to SmallMax
	for size := c.SmallMin; size < c.SmallMax; {
		next := c.SmallMax
		if c.SmallMax-size > c.SmallStep {
			next = size + c.SmallStep
		}
		if err := t.add(next - 1); err != nil {
			return nil, err
		}
		size = next
	}

	// geometric, the last step clamped to MediumMax
	for size := c.SmallMax; size < c.MediumMax; {
		next := c.MediumMax
		if f := math.Ceil(float64(size) * c.GrowthFactor); f < float64(c.MediumMax) {
			next = uintptr(f)
			if next <= size {
				next = size + 1
			}
		}
		if err := t.add(next - 1); err != nil {
			return nil, err
		}
		size = next
	}
	return t, nil
}

func (t *sizeClassTable) add(bound uintptr) error {
	if len(t.bounds) == maxSizeClasses {
		return fmt.Errorf("%w: more than %d size classes", ErrInvalidArgument, maxSizeClasses)
	}
	t.bounds = append(t.bounds, bound)
	return nil
}

// classOf returns the class a block of size bytes is filed under.
func (t *sizeClassTable) classOf(size uintptr) int {
	return sort.Search(len(t.bounds), func(i int) bool { return t.bounds[i] >= size })
}

// numClasses includes the large class.
func (t *sizeClassTable) numClasses() int { return len(t.bounds) + 1 }
