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
	"errors"
	"fmt"

	"github.com/cloudwego/xmalloc/errno"
)

var (
	// ErrOutOfMemory is returned when a request cannot be satisfied, either
	// because its size is out of range or because the page source is spent.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrInvalidArgument is returned for malformed alignment arguments.
	ErrInvalidArgument = errors.New("malloc: invalid argument")

	// ErrCorrupt reports a broken heap invariant.
	ErrCorrupt = errors.New("malloc: heap corrupted")
)

func errTooLarge(n uintptr) error {
	return fmt.Errorf("%w: request of %d bytes exceeds limit %d", ErrOutOfMemory, n, uintptr(maxRequest))
}

func errBadAlignment(align uintptr) error {
	return fmt.Errorf("%w: alignment %d", ErrInvalidArgument, align)
}

var errNilOut = fmt.Errorf("%w: nil result pointer", ErrInvalidArgument)

// errnoOf maps an engine error to the errno kind reported to callers.
func errnoOf(err error) errno.Errno {
	switch {
	case err == nil:
		return errno.Success
	case errors.Is(err, ErrInvalidArgument):
		return errno.EINVAL
	default:
		return errno.ENOMEM
	}
}
