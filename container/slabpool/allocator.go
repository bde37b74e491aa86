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

import "github.com/pkg/errors"

// Destroyer is implemented by element types which need cleanup before their storage is reused.
// Allocator.Destroy calls it before zeroing the element.
type Destroyer interface {
	Destroy()
}

// Allocator provides node storage for containers on top of a Pool.
//
// It's a small value: copies share the same pool and compare Equal.
// Memory allocated by one allocator MUST only be deallocated by an equal one.
//
// The zero value has no pool and is not usable, use NewAllocator or AllocatorOf.
// Its Pool returns nil.
type Allocator[T any] struct {
	pool *Pool[T]
}

// NewAllocator creates an allocator over a new pool. nil option means DefaultOption().
func NewAllocator[T any](o *Option) (Allocator[T], error) {
	p, err := NewPool[T](o)
	if err != nil {
		return Allocator[T]{}, err
	}
	return Allocator[T]{pool: p}, nil
}

// AllocatorOf returns an allocator using the given pool.
func AllocatorOf[T any](p *Pool[T]) Allocator[T] {
	return Allocator[T]{pool: p}
}

// Rebind returns an allocator for U configured like a.
// The new allocator owns a new pool, it never equals a.
func Rebind[U, T any](a Allocator[T]) (Allocator[U], error) {
	o := a.pool.Option()
	return NewAllocator[U](&o)
}

// Pool returns the underlying pool.
func (a Allocator[T]) Pool() *Pool[T] {
	return a.pool
}

// Allocate returns uninitialized storage for n elements.
// Only n == 1 is supported, other values return ErrInvalidCount.
func (a Allocator[T]) Allocate(n int) (*T, error) {
	if n != 1 {
		return nil, errors.Wrapf(ErrInvalidCount, "allocate %d", n)
	}
	return a.pool.Acquire()
}

// Deallocate returns the storage of p to the pool.
// n MUST be the count passed to Allocate, anything other than 1 is rejected
// with ErrInvalidCount and p is NOT released.
func (a Allocator[T]) Deallocate(p *T, n int) error {
	if n != 1 {
		return errors.Wrapf(ErrInvalidCount, "deallocate %d", n)
	}
	a.pool.Release(p)
	return nil
}

// Construct stores a copy of v at p.
func (a Allocator[T]) Construct(p *T, v T) {
	*p = v
}

// Destroy ends the life of the element at p without releasing its storage.
// It calls Destroy if *T implements Destroyer, then zeroes the element.
func (a Allocator[T]) Destroy(p *T) {
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
	var zero T
	*p = zero
}

// New allocates and constructs one element.
func (a Allocator[T]) New(v T) (*T, error) {
	p, err := a.Allocate(1)
	if err != nil {
		return nil, err
	}
	a.Construct(p, v)
	return p, nil
}

// Delete destroys the element at p and deallocates its storage.
func (a Allocator[T]) Delete(p *T) {
	a.Destroy(p)
	a.pool.Release(p)
}

// Equal reports whether a and b share the same pool.
func (a Allocator[T]) Equal(b Allocator[T]) bool {
	return a.pool == b.pool
}
