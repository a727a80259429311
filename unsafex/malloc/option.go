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
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cloudwego/xmalloc/pagesource"
)

// Environment variables read by OptionFromEnv.
const (
	EnvExtentSize = "XMALLOC_EXTENT_SIZE" // e.g. "4MiB"
	EnvMaxArena   = "XMALLOC_MAX_ARENA"   // e.g. "1GiB", "0" for unlimited
	EnvLog        = "XMALLOC_LOG"         // debug, info, warn or error
	EnvParanoid   = "XMALLOC_PARANOID"    // any strconv.ParseBool value
)

const defaultExtentSize = 1 << 20

// Option is the configuration of a Heap.
type Option struct {
	// Source supplies extents. Defaults to pagesource.Default().
	Source pagesource.Source

	// ExtentSize is the minimum size requested from Source when the heap
	// grows. Larger requests get an extent of their own size.
	ExtentSize uintptr

	// MaxArenaBytes caps the total size of all extents. 0 means no cap.
	MaxArenaBytes uintptr

	// SizeClasses tunes the free registry. Defaults to DefaultSizeClasses.
	SizeClasses *SizeClassConfig

	// Logger receives extent growth, source failures and corruption reports.
	// Defaults to a logger that discards everything.
	Logger *slog.Logger

	// Paranoid runs the full invariant check after every mutation.
	Paranoid bool
}

// DefaultOption creates a default Option.
func DefaultOption() *Option {
	return &Option{
		Source:      pagesource.Default(),
		ExtentSize:  defaultExtentSize,
		SizeClasses: &DefaultSizeClasses,
		Logger:      noopLogger(),
	}
}

// OptionFromEnv returns DefaultOption adjusted by the XMALLOC_* variables.
func OptionFromEnv() (*Option, error) {
	opt := DefaultOption()
	if v := os.Getenv(EnvExtentSize); v != "" {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvExtentSize, err)
		}
		opt.ExtentSize = uintptr(n)
	}
	if v := os.Getenv(EnvMaxArena); v != "" {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMaxArena, err)
		}
		opt.MaxArenaBytes = uintptr(n)
	}
	if v := os.Getenv(EnvLog); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLog, err)
		}
		opt.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	if v := os.Getenv(EnvParanoid); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvParanoid, err)
		}
		opt.Paranoid = b
	}
	return opt, nil
}

// normalize fills unset fields with defaults and validates the rest.
func (o *Option) normalize() (*sizeClassTable, error) {
	if o.Source == nil {
		o.Source = pagesource.Default()
	}
	if o.ExtentSize == 0 {
		o.ExtentSize = defaultExtentSize
	}
	if o.ExtentSize > maxExtentSize {
		return nil, fmt.Errorf("%w: extent size %d above limit %d", ErrInvalidArgument, o.ExtentSize, uintptr(maxExtentSize))
	}
	if o.SizeClasses == nil {
		o.SizeClasses = &DefaultSizeClasses
	}
	if o.Logger == nil {
		o.Logger = noopLogger()
	}
	return newSizeClassTable(*o.SizeClasses)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}
