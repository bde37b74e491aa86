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

	"github.com/cloudwego/poolkit/container/slabpool"
)

// Set is an ordered set.
type Set[K cmp.Ordered] struct {
	m *Map[K, struct{}]
}

// NewSet creates an empty set with its own pool. nil option means slabpool.DefaultOption().
func NewSet[K cmp.Ordered](o *slabpool.Option) (*Set[K], error) {
	m, err := New[K, struct{}](o)
	if err != nil {
		return nil, err
	}
	return &Set[K]{m: m}, nil
}

// Insert adds k to the set.
func (s *Set[K]) Insert(k K) error {
	return s.m.Set(k, struct{}{})
}

// Has reports whether k is in the set.
func (s *Set[K]) Has(k K) bool {
	_, ok := s.m.Get(k)
	return ok
}

// Delete removes k and reports whether it was present.
func (s *Set[K]) Delete(k K) bool {
	return s.m.Delete(k)
}

func (s *Set[K]) Len() int { return s.m.Len() }

// Ascend calls f for each key in ascending order until f returns false.
func (s *Set[K]) Ascend(f func(k K) bool) {
	s.m.Ascend(func(k K, _ struct{}) bool { return f(k) })
}

func (s *Set[K]) Stats() slabpool.Stats { return s.m.Stats() }

func (s *Set[K]) Clear() { s.m.Clear() }

func (s *Set[K]) Close() error { return s.m.Close() }
