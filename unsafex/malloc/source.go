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
	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/pkg/errors"

	"github.com/cloudwego/poolkit/cache/mempool"
)

// SlabSource provides the backing memory of FixedPool slabs.
//
// Buffers returned by Alloc must be aligned to at least 8 bytes and have len >= size.
// Free is called exactly once with the same slice returned by Alloc.
type SlabSource interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte) error
	Name() string
}

var (
	// HeapSource allocates slabs from the Go heap without zeroing them.
	// Free is a no-op, slabs are collected by GC once the pool drops them.
	HeapSource SlabSource = heapSource{}

	// MCacheSource allocates slabs from github.com/bytedance/gopkg/lang/mcache.
	MCacheSource SlabSource = mcacheSource{}

	// MempoolSource allocates slabs from cache/mempool,
	// slabs freed by one pool are reused by pools created later.
	MempoolSource SlabSource = mempoolSource{}

	// MmapSource maps anonymous private memory for each slab.
	// It falls back to the Go heap on platforms without mmap.
	MmapSource SlabSource = mmapSource{}
)

// SourceByName returns the source with the given name:
// "heap", "mcache", "mempool" or "mmap".
func SourceByName(name string) (SlabSource, error) {
	for _, s := range []SlabSource{HeapSource, MCacheSource, MempoolSource, MmapSource} {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidOption, "unknown slab source %q", name)
}

type heapSource struct{}

func (heapSource) Name() string { return "heap" }

func (heapSource) Alloc(size int) ([]byte, error) {
	return dirtmake.Bytes(size, size), nil
}

func (heapSource) Free([]byte) error { return nil }

type mcacheSource struct{}

func (mcacheSource) Name() string { return "mcache" }

func (mcacheSource) Alloc(size int) ([]byte, error) {
	return mcache.Malloc(size), nil
}

func (mcacheSource) Free(buf []byte) error {
	mcache.Free(buf)
	return nil
}

type mempoolSource struct{}

func (mempoolSource) Name() string { return "mempool" }

func (mempoolSource) Alloc(size int) ([]byte, error) {
	return mempool.Malloc(size), nil
}

func (mempoolSource) Free(buf []byte) error {
	mempool.Free(buf)
	return nil
}
