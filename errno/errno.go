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

// Package errno implements the error indicator of the allocator API.
//
// Each thread of execution owns a Cell. Go has no goroutine-local storage,
// so the caller holds its Cell explicitly (see malloc.Thread). The C library
// in cmd/libxmalloc copies failures into C thread-local storage instead.
package errno

import "strconv"

// Errno is a failure kind. The numeric values follow Linux errno numbering
// so they can be handed to C callers unchanged.
type Errno int32

const (
	// Success means no failure has been recorded.
	Success Errno = 0
	// ENOMEM reports resource exhaustion, including overflow while computing
	// the number of bytes a request needs.
	ENOMEM Errno = 12
	// EINVAL reports a caller contract violation, such as a bad alignment.
	EINVAL Errno = 22
)

// String returns the symbolic name of e.
func (e Errno) String() string {
	switch e {
	case Success:
		return "Success"
	case ENOMEM:
		return "ENOMEM"
	case EINVAL:
		return "EINVAL"
	}
	return "errno(" + strconv.Itoa(int(e)) + ")"
}

// Error implements error so an Errno can travel through error returns.
func (e Errno) Error() string {
	switch e {
	case Success:
		return "success"
	case ENOMEM:
		return "cannot allocate memory"
	case EINVAL:
		return "invalid argument"
	}
	return e.String()
}
