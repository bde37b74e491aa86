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

var (
	// ErrAllocation is returned when storage cannot be provided.
	// Pool state is unchanged when it's returned.
	ErrAllocation = errors.New("slabpool: allocation failed")

	// ErrInvalidCount is returned by Allocate and Deallocate for any count other than 1.
	// It's an allocation failure, errors.Is(ErrInvalidCount, ErrAllocation) is true.
	ErrInvalidCount = errors.WithMessage(ErrAllocation, "element count must be 1")

	// ErrInvalidOption is returned by constructors for bad Option values.
	ErrInvalidOption = errors.New("slabpool: invalid option")
)
