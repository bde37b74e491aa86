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

package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMallocFree(t *testing.T) {
	for i := 127; i < 1<<20; i += 1000 { //  it tests malloc 127B - 1MB, with step 1000
		b := Malloc(i)
		require.Equal(t, i, len(b))
		require.GreaterOrEqual(t, cap(b), minMemPoolSize)
		require.Zero(t, cap(b)&(cap(b)-1), "cap %d is not power of two", cap(b))
		Free(b)
	}
}

func TestPoolIndex(t *testing.T) {
	require.Equal(t, 0, poolIndex(1))
	require.Equal(t, 0, poolIndex(minMemPoolSize))
	require.Equal(t, 1, poolIndex(minMemPoolSize+1))
	require.Equal(t, 1, poolIndex(8<<10))
	require.Equal(t, 2, poolIndex(8<<10+1))
	require.Equal(t, len(pools)-1, poolIndex(maxMemPoolSize))
}

func TestCap(t *testing.T) {
	sz8k := 8 << 10
	b := Malloc(sz8k)
	require.Equal(t, sz8k, cap(b))
	Free(b)

	b = Malloc(sz8k + 1)
	require.Equal(t, 2*sz8k, cap(b))
	Free(b)

	b = Malloc(0)
	require.Equal(t, 0, len(b))
	Free(b)
}

func TestFree(t *testing.T) {
	minsz := minMemPoolSize
	before := ReadStats()

	Free([]byte{})                     // case: cap == 0
	Free(make([]byte, 0, minsz+1))     // case: not power of two
	Free(make([]byte, 10, minsz/2))    // case: too small
	Free(make([]byte, minsz-1, minsz)) // all good

	after := ReadStats()
	require.Equal(t, int64(3), after.Drops-before.Drops)
	require.Equal(t, int64(1), after.Frees-before.Frees)
}

func TestFreeResliced(t *testing.T) {
	before := ReadStats()

	b := Malloc(5000)
	Free(b[:0]) // same start and cap, pooled

	c := Malloc(5000)
	Free(c[1:]) // cap is no longer a size class, dropped

	after := ReadStats()
	require.Equal(t, int64(1), after.Frees-before.Frees)
	require.Equal(t, int64(1), after.Drops-before.Drops)
}

func TestStats(t *testing.T) {
	before := ReadStats()
	var bufs [][]byte
	for i := 0; i < 10; i++ {
		bufs = append(bufs, Malloc(100<<10))
	}
	for _, b := range bufs {
		Free(b)
	}
	after := ReadStats()
	require.Equal(t, int64(10), after.Mallocs-before.Mallocs)
	require.Equal(t, int64(10), after.Frees-before.Frees)
	// sync.Pool may drop bufs at any time, only the bounds are stable
	misses := after.Misses - before.Misses
	require.True(t, misses >= 0 && misses <= 10, "misses=%d", misses)
	require.Equal(t, after.Mallocs-after.Misses, after.Hits())
}

func Benchmark_MallocFree(b *testing.B) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			b := Malloc(i & 0xffff)
			Free(b)
			i++
		}
	})
}
