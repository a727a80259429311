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
	"log/slog"
	"sync"
)

var (
	defaultOnce sync.Once
	defaultHeap *Heap
)

// Default returns the process-wide Heap, created on first use from
// OptionFromEnv. Invalid environment settings are logged and ignored.
func Default() *Heap {
	defaultOnce.Do(func() {
		opt, err := OptionFromEnv()
		if err != nil {
			slog.Warn("malloc: ignoring environment configuration", "err", err)
			opt = DefaultOption()
		}
		h, err := New(opt)
		if err != nil {
			slog.Warn("malloc: falling back to default options", "err", err)
			h, _ = New(DefaultOption())
		}
		defaultHeap = h
	})
	return defaultHeap
}
