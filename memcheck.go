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

// Package memcheck is a debug-build allocation tracker.
//
// A Registry hands out byte blocks through Malloc / Calloc / Realloc and
// takes them back through Free, recording the call site and size of every
// block still live. Report prints one line per block that was never freed,
// so a host program can substitute its allocation call sites with the
// Registry's operations and get a leak report at shutdown.
//
// The Registry is NOT concurrency-safe. It assumes a single logical thread
// of allocation activity; hosts calling from multiple goroutines must
// serialize access themselves.
package memcheck

import (
	"fmt"
	"io"
	"os"
	"unsafe"
)

// record tracks one live allocation. It keeps block referenced so the
// registry, not the garbage collector, decides when the memory goes away.
type record struct {
	site  Site
	block []byte
	addr  unsafe.Pointer // nil if the block allocation failed
	size  int            // requested size, may be smaller than len(block)

	prev, next *record
}

// Registry is a catalogue of live allocations keyed by block address.
// Records are kept in a most-recent-first list; Report walks it in order.
type Registry struct {
	head  *record
	index map[unsafe.Pointer]*record

	live  int
	bytes int

	alloc   BlockAllocator
	diagW   io.Writer
	reportW io.Writer
}

// Option configures a Registry.
type Option func(*Registry)

// WithBlockAllocator sets the allocator backing the registry's blocks.
// The default is PooledAllocator.
func WithBlockAllocator(a BlockAllocator) Option {
	return func(r *Registry) { r.alloc = a }
}

// WithDiagWriter sets the destination for anomaly diagnostics.
// The default is os.Stderr.
func WithDiagWriter(w io.Writer) Option {
	return func(r *Registry) { r.diagW = w }
}

// WithReportWriter sets the destination for Report output.
// The default is os.Stdout.
func WithReportWriter(w io.Writer) Option {
	return func(r *Registry) { r.reportW = w }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		index:   make(map[unsafe.Pointer]*record),
		alloc:   PooledAllocator{},
		diagW:   os.Stderr,
		reportW: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Malloc allocates a block of size bytes and returns its address, tracking
// the allocation against site. Like malloc, the block is not zeroed.
//
// If the underlying block allocation fails the allocation is still tracked
// (with a nil address), a diagnostic is emitted, and nil is returned; the
// host sees exactly what the primitive it substituted would have returned.
func (r *Registry) Malloc(site Site, size int) unsafe.Pointer {
	return r.insert(site, size).addr
}

// Calloc allocates a zero-filled block of n*elemSize bytes and returns its
// address, tracking the allocation against site.
//
// The multiplication is not overflow-checked, matching the semantics of the
// primitive this substitutes.
func (r *Registry) Calloc(site Site, n, elemSize int) unsafe.Pointer {
	total := n * elemSize
	rec := r.insert(site, total)
	if rec.addr != nil {
		clear(rec.block)
	}
	return rec.addr
}

// Realloc resizes a previously returned block, preserving its contents up
// to the smaller of the old and new sizes, and returns the (possibly
// relocated) address. The tracked record is updated in place: a chain of
// reallocs shows up as one entry in the report, not many.
//
// A nil old behaves exactly as Malloc(site, size). An old address the
// registry does not know is an anomaly: a diagnostic is emitted, nil is
// returned, and nothing is mutated.
func (r *Registry) Realloc(site Site, old unsafe.Pointer, size int) unsafe.Pointer {
	if old == nil {
		return r.Malloc(site, size)
	}
	rec := r.index[old]
	if rec == nil {
		fmt.Fprintf(r.diagW, "%s attempt to realloc address %p that was never alloced\n", site, old)
		return nil
	}

	block := r.alloc.Alloc(size)
	if block == nil {
		fmt.Fprintf(r.diagW, "%s realloc %d bytes failed\n", site, size)
	} else {
		copy(block, rec.block)
	}
	r.alloc.Free(rec.block)
	delete(r.index, rec.addr)

	r.bytes += size - rec.size
	rec.site = site
	rec.size = size
	rec.block = block
	rec.addr = nil
	if block != nil {
		rec.addr = unsafe.Pointer(unsafe.SliceData(block))
		r.index[rec.addr] = rec
	}
	return rec.addr
}

// Free releases the block at addr back to the block allocator and drops its
// record. Freeing an address the registry does not know (including nil, and
// a second free of the same address) is an anomaly: a diagnostic is emitted
// and the registry is left untouched.
func (r *Registry) Free(site Site, addr unsafe.Pointer) {
	if r.head == nil {
		fmt.Fprintf(r.diagW, "%s no memory allocated, nothing to free\n", site)
		return
	}
	rec := r.index[addr]
	if rec == nil {
		fmt.Fprintf(r.diagW, "%s attempt to free address %p\n", site, addr)
		return
	}
	r.alloc.Free(rec.block)
	delete(r.index, addr)
	r.unlink(rec)
	r.live--
	r.bytes -= rec.size
}

// Report writes one line per live allocation, most recent first. It does
// not mutate the registry: calling it twice with no intervening allocation
// activity produces identical output twice.
func (r *Registry) Report() {
	for rec := r.head; rec != nil; rec = rec.next {
		fmt.Fprintf(r.reportW, "Failed to free %d bytes allocated at %s (%p)\n", rec.size, rec.site, rec.addr)
	}
}

// LiveCount returns the number of live allocations, including tracked
// allocations whose block allocation failed.
func (r *Registry) LiveCount() int {
	return r.live
}

// LiveBytes returns the total requested bytes across live allocations.
func (r *Registry) LiveBytes() int {
	return r.bytes
}

// Bytes returns the live block at addr, sized to the requested length,
// or nil if addr is not tracked.
func (r *Registry) Bytes(addr unsafe.Pointer) []byte {
	rec := r.index[addr]
	if rec == nil {
		return nil
	}
	return rec.block[:rec.size:rec.size]
}

// Reset frees every live block back to the block allocator and empties the
// registry. Intended for tests that reuse one registry across cases.
func (r *Registry) Reset() {
	for rec := r.head; rec != nil; rec = rec.next {
		if rec.block != nil {
			r.alloc.Free(rec.block)
		}
	}
	r.head = nil
	clear(r.index)
	r.live = 0
	r.bytes = 0
}

func (r *Registry) insert(site Site, size int) *record {
	rec := &record{site: site, size: size}
	rec.block = r.alloc.Alloc(size)
	if rec.block == nil {
		fmt.Fprintf(r.diagW, "%s malloc %d bytes failed\n", site, size)
	} else {
		rec.addr = unsafe.Pointer(unsafe.SliceData(rec.block))
		r.index[rec.addr] = rec
	}
	rec.next = r.head
	if r.head != nil {
		r.head.prev = rec
	}
	r.head = rec
	r.live++
	r.bytes += size
	return rec
}

func (r *Registry) unlink(rec *record) {
	if rec.prev != nil {
		rec.prev.next = rec.next
	} else {
		r.head = rec.next
	}
	if rec.next != nil {
		rec.next.prev = rec.prev
	}
	rec.prev, rec.next = nil, nil
}
