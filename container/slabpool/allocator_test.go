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

package slabpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   int
	Tags []string
	Meta map[string]string
}

type closer struct {
	closed *int
	v      int
}

func (c *closer) Destroy() {
	*c.closed++
}

func newTestAllocator[T any](t *testing.T) Allocator[T] {
	t.Helper()
	a, err := NewAllocator[T](&Option{GrowSize: 8})
	require.NoError(t, err)
	return a
}

func TestAllocateCount(t *testing.T) {
	a := newTestAllocator[record](t)

	for _, n := range []int{-1, 0, 2, 1024} {
		p, err := a.Allocate(n)
		assert.Nil(t, p)
		assert.True(t, errors.Is(err, ErrInvalidCount), "n=%d err=%v", n, err)
		assert.True(t, errors.Is(err, ErrAllocation), "n=%d err=%v", n, err)
	}
	assert.Equal(t, 0, a.Pool().SlabCount())

	p, err := a.Allocate(1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, a.Pool().Stats().InUse)
}

func TestDeallocateCount(t *testing.T) {
	a := newTestAllocator[record](t)
	p, err := a.Allocate(1)
	require.NoError(t, err)

	err = a.Deallocate(p, 2)
	assert.True(t, errors.Is(err, ErrInvalidCount), "err=%v", err)
	assert.Equal(t, 1, a.Pool().Stats().InUse, "rejected deallocate must not release")

	require.NoError(t, a.Deallocate(p, 1))
	assert.Equal(t, 0, a.Pool().Stats().InUse)
	assert.Equal(t, 1, a.Pool().Stats().Free)
}

func TestConstructDestroy(t *testing.T) {
	a := newTestAllocator[record](t)
	p, err := a.Allocate(1)
	require.NoError(t, err)

	v1 := record{ID: 1, Tags: []string{"a", "b"}, Meta: map[string]string{"k": "v"}}
	a.Construct(p, v1)
	assert.Equal(t, v1, *p)

	a.Destroy(p)
	assert.Equal(t, record{}, *p)

	v2 := record{ID: 2}
	a.Construct(p, v2)
	assert.Equal(t, v2, *p)
	assert.Nil(t, p.Tags)
	assert.Nil(t, p.Meta)

	require.NoError(t, a.Deallocate(p, 1))
}

func TestDestroyer(t *testing.T) {
	a := newTestAllocator[closer](t)
	closed := 0
	p, err := a.New(closer{closed: &closed, v: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, p.v)

	a.Delete(p)
	assert.Equal(t, 1, closed)
	assert.Equal(t, closer{}, *p)
	assert.Equal(t, 0, a.Pool().Stats().InUse)

	q, err := a.Allocate(1)
	require.NoError(t, err)
	assert.Same(t, p, q)
}

func TestAllocatorEqual(t *testing.T) {
	a := newTestAllocator[int](t)
	b := a
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	c := AllocatorOf(a.Pool())
	assert.True(t, a.Equal(c))

	d := newTestAllocator[int](t)
	assert.False(t, a.Equal(d))

	// storage from a can go back through any equal allocator
	p, err := a.Allocate(1)
	require.NoError(t, err)
	require.NoError(t, c.Deallocate(p, 1))
	q, err := b.Allocate(1)
	require.NoError(t, err)
	assert.Same(t, p, q)
}

func TestRebind(t *testing.T) {
	a, err := NewAllocator[int](&Option{GrowSize: 16, MaxSlabs: 3, Debug: true})
	require.NoError(t, err)

	r, err := Rebind[record](a)
	require.NoError(t, err)
	assert.Equal(t, a.Pool().Option(), r.Pool().Option())
	assert.Equal(t, 16, r.Pool().GrowSize())
	assert.GreaterOrEqual(t, r.Pool().BlockSize(), 40)

	p, err := r.New(record{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)
	assert.Equal(t, 0, a.Pool().SlabCount())
	assert.Equal(t, 1, r.Pool().SlabCount())

	back, err := Rebind[int](r)
	require.NoError(t, err)
	assert.False(t, back.Equal(a))
}

func TestAllocatorFailure(t *testing.T) {
	a, err := NewAllocator[int](&Option{GrowSize: 1, MaxSlabs: 1})
	require.NoError(t, err)

	_, err = a.New(1)
	require.NoError(t, err)
	_, err = a.New(2)
	assert.True(t, errors.Is(err, ErrAllocation), "err=%v", err)
	assert.False(t, errors.Is(err, ErrInvalidCount))
}

func TestZeroAllocator(t *testing.T) {
	var z Allocator[int]
	assert.Nil(t, z.Pool())
	assert.True(t, z.Equal(Allocator[int]{}))
	assert.False(t, z.Equal(newTestAllocator[int](t)))
}

func TestNewAllocatorInvalid(t *testing.T) {
	_, err := NewAllocator[int](&Option{GrowSize: -4})
	assert.True(t, errors.Is(err, ErrInvalidOption))
}
