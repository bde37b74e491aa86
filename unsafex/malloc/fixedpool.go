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

package malloc

import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// fixedSlab is one buffer from SlabSource holding growSize blocks.
type fixedSlab struct {
	buf   []byte         // as returned by SlabSource, passed back to Free
	start unsafe.Pointer // first block, aligned
	next  *fixedSlab
}

// FixedPool hands out raw memory blocks of one fixed size.
//
// Free blocks are linked through their own first 8 bytes, there's no per block overhead.
// Memory returned by FixedPool is not scanned by GC: DO NOT store Go pointers in it.
//
// FixedPool is NOT safe for concurrent use.
type FixedPool struct {
	free   unsafe.Pointer // head of free list
	head   *fixedSlab     // most recently allocated slab
	cursor int            // next unused block in head

	size      int // requested size
	blockSize int // max(size, linkSize) rounded up to align
	align     int
	pad       int // extra bytes per slab to align the first block

	growSize int
	maxSlabs int
	src      SlabSource

	slabs   int
	inUse   int
	freeLen int
}

// NewFixedPool creates a pool of blocks which can hold size bytes aligned to align.
// align must be a power of two, 0 means 8. Alignments below 8 are raised to 8.
// nil option means DefaultOption().
func NewFixedPool(size, align int, o *Option) (*FixedPool, error) {
	if o == nil {
		o = DefaultOption()
	}
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidOption, "size must be > 0, got %d", size)
	}
	if align < 0 || align&(align-1) != 0 {
		return nil, errors.Wrapf(ErrInvalidOption, "align must be a power of two, got %d", align)
	}
	if size > maxSlabBytes || align > maxSlabBytes {
		return nil, errors.Wrapf(ErrInvalidOption, "size %d or align %d too large", size, align)
	}
	if o.GrowSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidOption, "GrowSize must be > 0, got %d", o.GrowSize)
	}
	if o.MaxSlabs < 0 {
		return nil, errors.Wrapf(ErrInvalidOption, "MaxSlabs must be >= 0, got %d", o.MaxSlabs)
	}
	if align < linkSize {
		align = linkSize
	}
	src := o.Source
	if src == nil {
		src = HeapSource
	}
	blockSize := (max(size, linkSize) + align - 1) &^ (align - 1)
	pad := 0
	if align > linkSize {
		// sources only promise 8 bytes alignment
		pad = align - linkSize
	}
	if o.GrowSize > (maxSlabBytes-pad)/blockSize {
		return nil, errors.Wrapf(ErrInvalidOption, "GrowSize %d too large for %d bytes blocks", o.GrowSize, blockSize)
	}
	p := &FixedPool{
		cursor:    o.GrowSize,
		size:      size,
		blockSize: blockSize,
		align:     align,
		growSize:  o.GrowSize,
		maxSlabs:  o.MaxSlabs,
		pad:       pad,
		src:       src,
	}
	return p, nil
}

// Acquire returns the address of one uninitialized block.
// The most recently released block is returned first.
func (p *FixedPool) Acquire() (unsafe.Pointer, error) {
	if b := p.free; b != nil {
		p.free = *(*unsafe.Pointer)(b)
		p.freeLen--
		p.inUse++
		return b, nil
	}
	if p.cursor == p.growSize {
		if err := p.grow(); err != nil {
			return nil, err
		}
	}
	b := unsafe.Add(p.head.start, p.cursor*p.blockSize)
	p.cursor++
	p.inUse++
	return b, nil
}

// AcquireBytes is like Acquire but returns the block as a []byte with len = size
// and cap = BlockSize(). DO NOT append beyond cap.
func (p *FixedPool) AcquireBytes() ([]byte, error) {
	b, err := p.Acquire()
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(b), p.blockSize)[:p.size], nil
}

func (p *FixedPool) grow() error {
	if p.maxSlabs > 0 && p.slabs >= p.maxSlabs {
		return errors.Wrapf(ErrAllocation, "slab limit %d reached", p.maxSlabs)
	}
	n := p.growSize*p.blockSize + p.pad
	buf, err := p.src.Alloc(n)
	if err != nil {
		return errors.Wrapf(ErrAllocation, "%s source: alloc %d bytes: %v", p.src.Name(), n, err)
	}
	if len(buf) < n {
		err = errors.Wrapf(ErrAllocation, "%s source: got %d bytes, want %d", p.src.Name(), len(buf), n)
		return multierr.Append(err, p.src.Free(buf))
	}
	base := unsafe.Pointer(unsafe.SliceData(buf))
	off := int(-uintptr(base) & uintptr(p.align-1))
	p.head = &fixedSlab{
		buf:   buf,
		start: unsafe.Add(base, off),
		next:  p.head,
	}
	p.cursor = 0
	p.slabs++
	return nil
}

// Release returns a block to the pool.
//
// b MUST be returned by Acquire of the same pool and MUST NOT be released twice.
// DO NOT use b after calling Release. Misuse is not detected.
func (p *FixedPool) Release(b unsafe.Pointer) {
	// store as uintptr to skip the write barrier, the old bytes are garbage.
	// slabs are kept alive by p.head.
	*(*uintptr)(b) = uintptr(p.free)
	p.free = b
	p.freeLen++
	p.inUse--
}

// ReleaseBytes releases a block returned by AcquireBytes.
// The slice may be resliced, but must keep the same start.
func (p *FixedPool) ReleaseBytes(b []byte) {
	if cap(b) == 0 {
		return
	}
	p.Release(unsafe.Pointer(unsafe.SliceData(b)))
}

// Close frees all slabs back to the source in one pass, and resets the pool.
// It returns the errors of SlabSource.Free combined.
func (p *FixedPool) Close() error {
	var err error
	for s := p.head; s != nil; {
		next := s.next
		err = multierr.Append(err, p.src.Free(s.buf))
		s.buf = nil
		s.start = nil
		s.next = nil
		s = next
	}
	p.head = nil
	p.free = nil
	p.cursor = p.growSize
	p.slabs = 0
	p.inUse = 0
	p.freeLen = 0
	return err
}

// Locate returns the slab number (0 for the first slab) and the block index of b.
// It walks the slab chain, it's meant for debugging and tests.
func (p *FixedPool) Locate(b unsafe.Pointer) (slabNo, index int, ok bool) {
	addr := uintptr(b)
	n := p.slabs - 1
	for s := p.head; s != nil; s = s.next {
		start := uintptr(s.start)
		if addr >= start && addr < start+uintptr(p.growSize*p.blockSize) {
			off := int(addr - start)
			if off%p.blockSize != 0 {
				return -1, -1, false
			}
			return n, off / p.blockSize, true
		}
		n--
	}
	return -1, -1, false
}

// Size returns the size requested when creating the pool.
func (p *FixedPool) Size() int { return p.size }

// BlockSize returns the distance in bytes between two adjacent blocks.
func (p *FixedPool) BlockSize() int { return p.blockSize }

// Align returns the alignment of every block.
func (p *FixedPool) Align() int { return p.align }

// SlabCount returns the number of slabs owned by the pool.
func (p *FixedPool) SlabCount() int { return p.slabs }

// Stats is a snapshot of FixedPool usage.
type Stats struct {
	Source    string
	BlockSize int
	GrowSize  int
	Slabs     int
	InUse     int
	Free      int
	Capacity  int // Slabs * GrowSize
	Reserved  int // bytes requested from the source
}

// Stats returns the current usage of the pool.
func (p *FixedPool) Stats() Stats {
	return Stats{
		Source:    p.src.Name(),
		BlockSize: p.blockSize,
		GrowSize:  p.growSize,
		Slabs:     p.slabs,
		InUse:     p.inUse,
		Free:      p.freeLen,
		Capacity:  p.slabs * p.growSize,
		Reserved:  p.slabs * (p.growSize*p.blockSize + p.pad),
	}
}
