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

import (
	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/mcache"
)

// BlockAllocator supplies the byte blocks the registry hands out.
// Alloc returns a block of len == size (nil means allocation failure and
// is tracked as such); Free takes back a block returned by Alloc.
//
// Zero-size requests must still return a block with a distinct address:
// every live record is keyed by its block address, so two live allocations
// may never share one.
type BlockAllocator interface {
	Alloc(size int) []byte
	Free(block []byte)
}

var (
	_ BlockAllocator = PooledAllocator{}
	_ BlockAllocator = HeapAllocator{}
)

// PooledAllocator takes blocks from mcache and returns them on Free.
// Recycled blocks keep their previous contents, so reads from a fresh
// Malloc block see garbage exactly as they would from the primitive it
// substitutes.
type PooledAllocator struct{}

func (PooledAllocator) Alloc(size int) []byte {
	if size == 0 {
		size = 1 // distinct address per allocation
	}
	return mcache.Malloc(size)
}

func (PooledAllocator) Free(block []byte) {
	mcache.Free(block)
}

// HeapAllocator allocates uninitialized blocks straight from the heap and
// lets the garbage collector take them back: Free only drops the
// registry's reference. For hosts that want leak tracking without pooling.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(size int) []byte {
	if size == 0 {
		size = 1
	}
	return dirtmake.Bytes(size, size)
}

func (HeapAllocator) Free([]byte) {}
