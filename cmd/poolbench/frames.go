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

package main

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/cloudwego/poolkit/unsafex/malloc"
)

const maxEtherFrame = 1514

// frameHeader is the fixed part of a captured ethernet frame, the payload follows it.
type frameHeader struct {
	adapter     uint64
	link        [2]uint64
	deviceFlags uint32
	length      uint32
	flags       uint32
	vlan        uint32
	filterID    uint32
	reserved    [4]uint32
}

const (
	frameHeaderSize  = int(unsafe.Sizeof(frameHeader{}))
	defaultFrameSize = frameHeaderSize + maxEtherFrame
)

type frameAllocator interface {
	alloc() ([]byte, error)
	free(b []byte)
	close() error
}

// heapFrames allocates every frame with make and leaves them to GC.
type heapFrames struct {
	size int
}

func (h heapFrames) alloc() ([]byte, error) { return make([]byte, h.size), nil }
func (h heapFrames) free([]byte)            {}
func (h heapFrames) close() error           { return nil }

type poolFrames struct {
	p *malloc.FixedPool
}

func newPoolFrames(size, growSize int, src malloc.SlabSource) (*poolFrames, error) {
	p, err := malloc.NewFixedPool(size, 8, &malloc.Option{GrowSize: growSize, Source: src})
	if err != nil {
		return nil, err
	}
	return &poolFrames{p: p}, nil
}

func (f *poolFrames) alloc() ([]byte, error) { return f.p.AcquireBytes() }
func (f *poolFrames) free(b []byte)          { f.p.ReleaseBytes(b) }
func (f *poolFrames) close() error           { return f.p.Close() }

// fillFrame writes the header and payload of the nth frame.
func fillFrame(b []byte, n int) {
	h := (*frameHeader)(unsafe.Pointer(&b[0]))
	*h = frameHeader{
		adapter:     1220,
		deviceFlags: uint32(n * 0x100),
		length:      uint32(n * 0x200),
		flags:       uint32(n * 0x300),
		vlan:        uint32(n * 0x400),
		filterID:    uint32(n * 0x500),
	}
	h.reserved[0] = 0x600
	payload := b[frameHeaderSize:]
	for i := range payload {
		payload[i] = 1
	}
}

func frameOf(b []byte) *frameHeader {
	return (*frameHeader)(unsafe.Pointer(&b[0]))
}

type frameRound struct {
	fill, free time.Duration
	sample     frameHeader // header of the middle frame
}

// runFrameRound allocates and fills len(frames) frames, then frees all of them.
func runFrameRound(a frameAllocator, frames [][]byte) (frameRound, error) {
	var r frameRound
	start := time.Now()
	for i := range frames {
		b, err := a.alloc()
		if err != nil {
			for _, x := range frames[:i] {
				a.free(x)
			}
			return r, errors.Wrapf(err, "frame %d", i)
		}
		fillFrame(b, i+1)
		frames[i] = b
	}
	r.fill = time.Since(start)
	if len(frames) > 0 {
		r.sample = *frameOf(frames[len(frames)/2])
	}

	start = time.Now()
	for i, b := range frames {
		a.free(b)
		frames[i] = nil
	}
	r.free = time.Since(start)
	return r, nil
}
