/*
 * Copyright 2024 CloudWeGo Authors
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

// Package mempool caches big buffers, like allocator slabs, by power-of-two size classes.
//
// It's safe for concurrent use.
package mempool

import (
	"math/bits"
	"sync"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"go.uber.org/atomic"
)

type memPool struct {
	sync.Pool

	Size int
}

var pools []*memPool

const (
	minMemPoolSize = 4 << 10 //	4KB, `Malloc` returns buf with cap >= the number
	maxMemPoolSize = 1 << 30 // 1GB, larger bufs are not cached
)

// bits2idx maps bits.Len to the index of `pools`
// for size < minMemPoolSize, bits2idx maps to `pools[0]` which is expected.
var bits2idx [64]int

var counters struct {
	mallocs  atomic.Int64
	misses   atomic.Int64
	frees    atomic.Int64
	drops    atomic.Int64
	oversize atomic.Int64
}

func init() {
	i := 0
	for sz := minMemPoolSize; sz <= maxMemPoolSize; sz <<= 1 {
		p := &memPool{Size: sz}
		p.New = func() interface{} {
			counters.misses.Inc()
			b := dirtmake.Bytes(p.Size, p.Size)
			return &b[0]
		}
		pools = append(pools, p)
		bits2idx[bits.Len(uint(p.Size))] = i
		i++
	}
}

// poolIndex returns index of a pool which fits the given size `sz`
func poolIndex(sz int) int {
	if sz <= minMemPoolSize {
		return 0
	}
	i := bits2idx[bits.Len(uint(sz))]
	if uint(sz)&(uint(sz)-1) == 0 {
		// if power of two, it fits perfectly
		// like `8192` should be in pools[1], but `8193` in pools[2]
		return i
	}
	return i + 1
}

// Malloc returns a buf with len == size and cap rounded up to a power of two (>= 4KB).
// Tips for usage:
// * buf returned by Malloc is NOT initialized with zeros.
// * call `Free` when buf is no longer used, DO NOT REUSE buf after calling `Free`.
// * bufs larger than 1GB are allocated directly and dropped by `Free`.
func Malloc(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	if size > maxMemPoolSize {
		counters.oversize.Inc()
		return dirtmake.Bytes(size, size)
	}
	counters.mallocs.Inc()
	pool := pools[poolIndex(size)]
	p := pool.Get().(*byte)
	return unsafe.Slice(p, pool.Size)[:size]
}

// Free puts buf back to its size class.
// bufs whose cap is not a cached size class are ignored.
//
// There's no ownership check: any buf with a size class cap is pooled and
// handed out again by Malloc. Passing a slice of memory still in use,
// like `arr[:0:4096]` of a live array, makes later Malloc calls alias it.
// Only pass bufs returned by Malloc, resliced with the same start and cap.
func Free(buf []byte) {
	c := cap(buf)
	if c < minMemPoolSize || c > maxMemPoolSize || uint(c)&uint(c-1) != 0 {
		counters.drops.Inc()
		return
	}
	p := pools[poolIndex(c)]
	if p.Size != c {
		counters.drops.Inc()
		return
	}
	counters.frees.Inc()
	p.Put(unsafe.SliceData(buf))
}

// Stats contains the counters of the package since the process started.
type Stats struct {
	Mallocs  int64 // Malloc calls served by size classes
	Misses   int64 // Malloc calls which allocated a new buf
	Frees    int64 // bufs put back
	Drops    int64 // bufs ignored by Free
	Oversize int64 // Malloc calls larger than the max size class
}

// Hits returns the number of Malloc calls served by a cached buf.
func (s Stats) Hits() int64 {
	return s.Mallocs - s.Misses
}

// ReadStats returns a snapshot of the counters.
// Counters are read one by one, the snapshot may be slightly inconsistent under concurrent use.
func ReadStats() Stats {
	return Stats{
		Mallocs:  counters.mallocs.Load(),
		Misses:   counters.misses.Load(),
		Frees:    counters.frees.Load(),
		Drops:    counters.drops.Load(),
		Oversize: counters.oversize.Load(),
	}
}
