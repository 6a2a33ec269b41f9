// Copyright 2025 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memcheck

import "unsafe"

// std is the process-wide registry, created lazily on first use.
// Like the Registry itself it is not concurrency-safe.
var std *Registry

// Default returns the process-wide registry.
func Default() *Registry {
	if std == nil {
		std = New()
	}
	return std
}

// SetDefault replaces the process-wide registry. Tests use it to install a
// registry with captured writers; pass nil to return to lazy creation.
func SetDefault(r *Registry) {
	std = r
}

// Malloc allocates size bytes through the process-wide registry, recording
// the caller of Malloc as the allocation site. It is the drop-in
// substitution for a malloc call site.
func Malloc(size int) unsafe.Pointer {
	return Default().Malloc(Caller(1), size)
}

// Calloc allocates a zero-filled n*elemSize byte block through the
// process-wide registry, recording the caller as the allocation site.
func Calloc(n, elemSize int) unsafe.Pointer {
	return Default().Calloc(Caller(1), n, elemSize)
}

// Realloc resizes old through the process-wide registry, recording the
// caller as the new allocation site of the record.
func Realloc(old unsafe.Pointer, size int) unsafe.Pointer {
	return Default().Realloc(Caller(1), old, size)
}

// Free releases addr through the process-wide registry, recording the
// caller as the site of the release for anomaly diagnostics.
func Free(addr unsafe.Pointer) {
	Default().Free(Caller(1), addr)
}

// Report prints the process-wide registry's leak report. Call it once,
// after all application logic has run.
func Report() {
	Default().Report()
}

// Reset empties the process-wide registry.
func Reset() {
	Default().Reset()
}
