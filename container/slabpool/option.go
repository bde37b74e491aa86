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

// DefaultGrowSize is the default number of blocks per slab.
const DefaultGrowSize = 1024

// maxSlabBytes keeps one slab below the runtime allocation limit:
// about 128TB on 64-bit platforms, 2GB on 32-bit ones.
const maxSlabBytes = (1<<31 - 1) << (16 * (^uint(0) >> 63))

// Option ...
type Option struct {
	// GrowSize is the number of blocks carved from one slab.
	// A new slab is only created when the free list is empty and the current slab is used up.
	GrowSize int

	// MaxSlabs limits the number of slabs a pool may own, 0 means no limit.
	// Once reached, Acquire fails with ErrAllocation.
	MaxSlabs int

	// Debug tracks live blocks per slab and panics on double or foreign release.
	// It makes Release O(slabs), do not enable it on hot paths.
	Debug bool
}

// DefaultOption returns the default values of Option.
func DefaultOption() *Option {
	return &Option{
		GrowSize: DefaultGrowSize,
	}
}

func (o *Option) validate() error {
	if o.GrowSize <= 0 {
		return errors.Wrapf(ErrInvalidOption, "GrowSize must be > 0, got %d", o.GrowSize)
	}
	if o.MaxSlabs < 0 {
		return errors.Wrapf(ErrInvalidOption, "MaxSlabs must be >= 0, got %d", o.MaxSlabs)
	}
	return nil
}
