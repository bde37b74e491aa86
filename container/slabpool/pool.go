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

// Package slabpool implements a fixed-block object pool for values of one type.
//
// Blocks are carved from slabs of Option.GrowSize blocks each, and released blocks
// are kept in a LIFO free list for reuse. Slabs are never given back one by one,
// they're all dropped together by Close.
//
// Pool and Allocator are NOT safe for concurrent use. Use one pool per goroutine,
// or Locked if a pool must be shared.
package slabpool

import (
	"unsafe"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

// block is the unit handed out by Pool.
// value MUST be the first field, *T returned by Acquire is converted back to *block[T] by Release.
type block[T any] struct {
	value T
	next  *block[T] // free list link, only valid while the block is free
}

// slab is a contiguous array of blocks.
type slab[T any] struct {
	blocks []block[T]
	next   *slab[T] // previously allocated slab

	live *bitset.BitSet // Option.Debug only
}

func (s *slab[T]) base() uintptr {
	return uintptr(unsafe.Pointer(&s.blocks[0]))
}

// Pool is a slab allocator for values of type T.
//
// The zero value is not usable, use NewPool.
type Pool[T any] struct {
	free   *block[T] // head of free list
	head   *slab[T]  // most recently allocated slab
	cursor int       // next unused block in head, == growSize if head is used up

	opt      Option
	growSize int

	slabs   int
	inUse   int
	freeLen int
}

// NewPool creates a pool with the given option. nil means DefaultOption().
// No memory is allocated until the first Acquire.
func NewPool[T any](o *Option) (*Pool[T], error) {
	if o == nil {
		o = DefaultOption()
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if sz := unsafe.Sizeof(block[T]{}); uintptr(o.GrowSize) > maxSlabBytes/sz {
		return nil, errors.Wrapf(ErrInvalidOption, "GrowSize %d too large for %d bytes blocks", o.GrowSize, sz)
	}
	return &Pool[T]{
		cursor:   o.GrowSize,
		opt:      *o,
		growSize: o.GrowSize,
	}, nil
}

// Acquire returns storage for one T.
//
// The most recently released block is returned first. The value it points to
// is whatever was left there, callers are expected to initialize it.
// It returns an error wrapping ErrAllocation if a new slab is needed but cannot be created.
func (p *Pool[T]) Acquire() (*T, error) {
	if b := p.free; b != nil {
		p.free = b.next
		b.next = nil
		p.freeLen--
		p.inUse++
		if p.opt.Debug {
			p.markLive(uintptr(unsafe.Pointer(b)))
		}
		return &b.value, nil
	}
	if p.cursor == p.growSize {
		if err := p.grow(); err != nil {
			return nil, err
		}
	}
	b := &p.head.blocks[p.cursor]
	if p.opt.Debug {
		p.head.live.Set(uint(p.cursor))
	}
	p.cursor++
	p.inUse++
	return &b.value, nil
}

func (p *Pool[T]) grow() error {
	if p.opt.MaxSlabs > 0 && p.slabs >= p.opt.MaxSlabs {
		return errors.Wrapf(ErrAllocation, "slab limit %d reached", p.opt.MaxSlabs)
	}
	s := &slab[T]{
		blocks: make([]block[T], p.growSize),
		next:   p.head,
	}
	if p.opt.Debug {
		s.live = bitset.New(uint(p.growSize))
	}
	p.head = s
	p.cursor = 0
	p.slabs++
	return nil
}

// Release returns the storage of v to the pool. It does not touch the value,
// use Allocator.Destroy before releasing values holding references.
//
// v MUST be returned by Acquire of the same pool and MUST NOT be released twice.
// DO NOT use v after calling Release.
// Misuse is not detected unless Option.Debug is set.
func (p *Pool[T]) Release(v *T) {
	if p.opt.Debug {
		// check the address before converting, v may not point to a block at all
		p.markFree(uintptr(unsafe.Pointer(v)))
	}
	b := (*block[T])(unsafe.Pointer(v))
	b.next = p.free
	p.free = b
	p.freeLen++
	p.inUse--
}

// Close drops all slabs in one pass and resets the pool to its initial state.
// It doesn't check whether blocks are still in use.
// The pool can be used again after Close, new slabs are created on demand.
func (p *Pool[T]) Close() error {
	for s := p.head; s != nil; {
		next := s.next
		s.next = nil
		s.blocks = nil
		s.live = nil
		s = next
	}
	p.head = nil
	p.free = nil
	p.cursor = p.growSize
	p.slabs = 0
	p.inUse = 0
	p.freeLen = 0
	return nil
}

// Locate returns the slab number (0 for the first slab created) and the block index
// within that slab of the given value. ok is false if v doesn't belong to the pool.
// It walks the slab chain, it's meant for debugging and tests.
func (p *Pool[T]) Locate(v *T) (slabNo, index int, ok bool) {
	s, n, idx := p.locate(uintptr(unsafe.Pointer(v)))
	if s == nil {
		return -1, -1, false
	}
	return n, idx, true
}

func (p *Pool[T]) locate(addr uintptr) (*slab[T], int, int) {
	sz := unsafe.Sizeof(block[T]{})
	n := p.slabs - 1
	for s := p.head; s != nil; s = s.next {
		base := s.base()
		if addr >= base && addr < base+sz*uintptr(len(s.blocks)) {
			off := addr - base
			if off%sz != 0 {
				return nil, -1, -1
			}
			return s, n, int(off / sz)
		}
		n--
	}
	return nil, -1, -1
}

// BlockSize returns the distance in bytes between two adjacent blocks in a slab.
// It's never less than max(sizeof(T), sizeof(uintptr)).
func (p *Pool[T]) BlockSize() int {
	return int(unsafe.Sizeof(block[T]{}))
}

// GrowSize returns the number of blocks per slab.
func (p *Pool[T]) GrowSize() int {
	return p.growSize
}

// SlabCount returns the number of slabs currently owned by the pool.
func (p *Pool[T]) SlabCount() int {
	return p.slabs
}

// Option returns a copy of the option the pool was created with.
func (p *Pool[T]) Option() Option {
	return p.opt
}

// Stats is a snapshot of pool usage.
type Stats struct {
	BlockSize int // bytes per block
	GrowSize  int // blocks per slab
	Slabs     int // slabs owned
	InUse     int // blocks acquired and not released
	Free      int // blocks in the free list
	Capacity  int // Slabs * GrowSize
}

// Unused returns the number of blocks never handed out yet.
func (s Stats) Unused() int {
	return s.Capacity - s.InUse - s.Free
}

// Stats returns the current usage of the pool.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		BlockSize: p.BlockSize(),
		GrowSize:  p.growSize,
		Slabs:     p.slabs,
		InUse:     p.inUse,
		Free:      p.freeLen,
		Capacity:  p.slabs * p.growSize,
	}
}
