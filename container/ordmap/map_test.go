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

package ordmap

import (
	"cmp"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/btree"
	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/poolkit/container/slabpool"
)

// checkTree verifies heights, balance factors and key order of the subtree at n.
func checkTree[K cmp.Ordered, V any](t require.TestingT, n *node[K, V]) (size int) {
	if n == nil {
		return 0
	}
	if n.left != nil {
		require.Negative(t, cmp.Compare(n.left.key, n.key))
	}
	if n.right != nil {
		require.Positive(t, cmp.Compare(n.right.key, n.key))
	}
	l, r := height(n.left), height(n.right)
	require.Equal(t, max(l, r)+1, n.height)
	require.LessOrEqual(t, l-r, int8(1))
	require.GreaterOrEqual(t, l-r, int8(-1))
	return checkTree(t, n.left) + checkTree(t, n.right) + 1
}

func keys[K cmp.Ordered, V any](m *Map[K, V]) []K {
	var kk []K
	m.Ascend(func(k K, _ V) bool {
		kk = append(kk, k)
		return true
	})
	return kk
}

func newTestMap(t testing.TB, growSize int) *Map[int, string] {
	t.Helper()
	m, err := New[int, string](&slabpool.Option{GrowSize: growSize})
	require.NoError(t, err)
	return m
}

func TestMapSetGet(t *testing.T) {
	m := newTestMap(t, 8)
	_, ok := m.Get(1)
	assert.False(t, ok)

	for _, k := range []int{5, 3, 8, 1, 4, 7, 9, 2, 6} {
		require.NoError(t, m.Set(k, string(rune('a'+k))))
	}
	assert.Equal(t, 9, m.Len())
	assert.Equal(t, 9, checkTree(t, m.root))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, keys(m))

	v, ok := m.Get(4)
	assert.True(t, ok)
	assert.Equal(t, "e", v)

	require.NoError(t, m.Set(4, "four"))
	v, _ = m.Get(4)
	assert.Equal(t, "four", v)
	assert.Equal(t, 9, m.Len())
	assert.Equal(t, 9, m.Stats().InUse)
}

func TestMapSequentialBalance(t *testing.T) {
	m := newTestMap(t, 64)
	const n = 1 << 12
	for i := 0; i < n; i++ {
		require.NoError(t, m.Set(i, ""))
	}
	assert.Equal(t, n, checkTree(t, m.root))
	// AVL height is below 1.45*log2(n+2)
	assert.LessOrEqual(t, int(m.root.height), 18)

	for i := n - 1; i >= 0; i -= 2 {
		require.True(t, m.Delete(i))
	}
	assert.Equal(t, n/2, checkTree(t, m.root))
	assert.Equal(t, n/2, m.Len())
}

func TestMapDelete(t *testing.T) {
	m := newTestMap(t, 4)
	for i := 0; i < 20; i++ {
		require.NoError(t, m.Set(i*10, ""))
	}
	assert.False(t, m.Delete(5))
	assert.False(t, m.Delete(1000))

	root := m.root.key
	assert.True(t, m.Delete(root), "node with two children")
	assert.True(t, m.Delete(0), "min")
	assert.True(t, m.Delete(190), "max")
	assert.False(t, m.Delete(root))
	assert.Equal(t, 17, m.Len())
	assert.Equal(t, 17, checkTree(t, m.root))

	s := m.Stats()
	assert.Equal(t, 17, s.InUse)
	assert.Equal(t, 3, s.Free)

	// freed nodes are reused first
	require.NoError(t, m.Set(root, ""))
	assert.Equal(t, 2, m.Stats().Free)
	assert.Equal(t, 5, m.Stats().Slabs)
}

func TestMapMinMaxAscend(t *testing.T) {
	m := newTestMap(t, 16)
	_, _, ok := m.Min()
	assert.False(t, ok)
	_, _, ok = m.Max()
	assert.False(t, ok)

	for _, k := range []int{42, -7, 13, 99, 0} {
		require.NoError(t, m.Set(k, "x"))
	}
	k, v, ok := m.Min()
	assert.True(t, ok)
	assert.Equal(t, -7, k)
	assert.Equal(t, "x", v)
	k, _, ok = m.Max()
	assert.True(t, ok)
	assert.Equal(t, 99, k)

	var got []int
	m.Ascend(func(k int, _ string) bool {
		got = append(got, k)
		return k < 13
	})
	assert.Equal(t, []int{-7, 0, 13}, got)
}

func TestMapAllocationFailure(t *testing.T) {
	m, err := New[int, string](&slabpool.Option{GrowSize: 4, MaxSlabs: 1})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, m.Set(i, "v"))
	}
	err = m.Set(10, "v")
	assert.True(t, errors.Is(err, slabpool.ErrAllocation), "err=%v", err)
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, 4, checkTree(t, m.root))
	assert.Equal(t, []int{0, 1, 2, 3}, keys(m))

	// updates need no new node
	require.NoError(t, m.Set(2, "w"))
	require.True(t, m.Delete(0))
	require.NoError(t, m.Set(10, "v"))
	assert.Equal(t, []int{1, 2, 3, 10}, keys(m))

	_, err = New[int, int](&slabpool.Option{})
	assert.True(t, errors.Is(err, slabpool.ErrInvalidOption))
}

func TestMapClearClose(t *testing.T) {
	m := newTestMap(t, 8)
	for i := 0; i < 30; i++ {
		require.NoError(t, m.Set(i, "v"))
	}
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.root)
	s := m.Stats()
	assert.Equal(t, 30, s.Free)
	assert.Equal(t, 4, s.Slabs)

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Stats().Slabs)
	require.NoError(t, m.Set(1, "v"))
	assert.Equal(t, 1, m.Len())
}

func TestMapMatchesBTree(t *testing.T) {
	m, err := New[int, int](&slabpool.Option{GrowSize: 32})
	require.NoError(t, err)
	bt := btree.NewOrderedG[int](8)
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20000; i++ {
		k := rnd.Intn(2048)
		if rnd.Intn(3) == 0 {
			_, found := bt.Delete(k)
			require.Equal(t, found, m.Delete(k))
		} else {
			bt.ReplaceOrInsert(k)
			require.NoError(t, m.Set(k, k*2))
		}
	}
	var want []int
	bt.Ascend(func(k int) bool {
		want = append(want, k)
		return true
	})
	if diff := gocmp.Diff(want, keys(m), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("keys mismatch (-btree +map):\n%s", diff)
	}
	assert.Equal(t, bt.Len(), checkTree(t, m.root))
	assert.Equal(t, bt.Len(), m.Stats().InUse)
}

func TestMapFloatKeys(t *testing.T) {
	m, err := New[float64, int](nil)
	require.NoError(t, err)
	for i, k := range []float64{2.5, -1, 0, 1e9, -0.5} {
		require.NoError(t, m.Set(k, i))
	}
	kk := keys(m)
	assert.True(t, sort.Float64sAreSorted(kk))
	assert.Equal(t, slabpool.DefaultGrowSize, m.Stats().GrowSize)
}

func BenchmarkMapSet(b *testing.B) {
	m, err := New[int, int](nil)
	require.NoError(b, err)
	rnd := rand.New(rand.NewSource(0))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Set(rnd.Intn(1024), i)
		if m.Len() == 1024 {
			m.Clear()
		}
	}
}

func BenchmarkBTreeSet(b *testing.B) {
	bt := btree.NewOrderedG[int](32)
	rnd := rand.New(rand.NewSource(0))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bt.ReplaceOrInsert(rnd.Intn(1024))
		if bt.Len() == 1024 {
			bt.Clear(false)
		}
	}
}
