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

import "github.com/pkg/errors"

const (
	// DefaultGrowSize is the default number of blocks per slab.
	DefaultGrowSize = 1024

	// linkSize is the size of the free list link stored in free blocks.
	// It's also the min block size and alignment.
	linkSize = 8

	// maxSlabBytes keeps one slab below the runtime allocation limit:
	// about 128TB on 64-bit platforms, 2GB on 32-bit ones.
	maxSlabBytes = (1<<31 - 1) << (16 * (^uint(0) >> 63))
)

var (
	// ErrAllocation is returned when a slab cannot be created.
	ErrAllocation = errors.New("malloc: allocation failed")

	// ErrInvalidOption is returned for bad constructor arguments.
	ErrInvalidOption = errors.New("malloc: invalid option")
)

// Option ...
type Option struct {
	// GrowSize is the number of blocks per slab.
	GrowSize int

	// MaxSlabs limits the number of slabs, 0 means no limit.
	MaxSlabs int

	// Source provides slab memory. nil means HeapSource.
	Source SlabSource
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		GrowSize: DefaultGrowSize,
		Source:   HeapSource,
	}
}
