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

// Package ordmap implements ordered maps and sets as AVL trees
// whose nodes are allocated from a slab pool.
package ordmap

import (
	"cmp"

	"github.com/cloudwego/poolkit/container/slabpool"
)

type node[K cmp.Ordered, V any] struct {
	key         K
	value       V
	left, right *node[K, V]
	height      int8
}

func height[K cmp.Ordered, V any](n *node[K, V]) int8 {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node[K, V]) fix() {
	n.height = max(height(n.left), height(n.right)) + 1
}

func rotateRight[K cmp.Ordered, V any](n *node[K, V]) *node[K, V] {
	l := n.left
	n.left = l.right
	l.right = n
	n.fix()
	l.fix()
	return l
}

func rotateLeft[K cmp.Ordered, V any](n *node[K, V]) *node[K, V] {
	r := n.right
	n.right = r.left
	r.left = n
	n.fix()
	r.fix()
	return r
}

// rebalance restores |height(left) - height(right)| <= 1 at n,
// assuming both subtrees are balanced.
func rebalance[K cmp.Ordered, V any](n *node[K, V]) *node[K, V] {
	n.fix()
	switch b := height(n.left) - height(n.right); {
	case b > 1:
		if height(n.left.left) < height(n.left.right) {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case b < -1:
		if height(n.right.right) < height(n.right.left) {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

// Map is an ordered map. Keys are compared with cmp.Compare.
//
// Map is NOT safe for concurrent use.
type Map[K cmp.Ordered, V any] struct {
	root  *node[K, V]
	len   int
	alloc slabpool.Allocator[node[K, V]]
}

// New creates an empty map with its own pool. nil option means slabpool.DefaultOption().
func New[K cmp.Ordered, V any](o *slabpool.Option) (*Map[K, V], error) {
	a, err := slabpool.NewAllocator[node[K, V]](o)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{alloc: a}, nil
}

// Len returns the number of keys.
func (m *Map[K, V]) Len() int { return m.len }

// Stats returns the usage of the node pool.
func (m *Map[K, V]) Stats() slabpool.Stats {
	return m.alloc.Pool().Stats()
}

// Get returns the value of k.
func (m *Map[K, V]) Get(k K) (v V, ok bool) {
	for n := m.root; n != nil; {
		switch c := cmp.Compare(k, n.key); {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n.value, true
		}
	}
	return v, false
}

// Set sets the value of k, replacing any existing one.
// The map is unchanged if a node cannot be allocated.
func (m *Map[K, V]) Set(k K, v V) error {
	root, err := m.insert(m.root, k, v)
	if err != nil {
		return err
	}
	m.root = root
	return nil
}

func (m *Map[K, V]) insert(n *node[K, V], k K, v V) (*node[K, V], error) {
	if n == nil {
		nn, err := m.alloc.New(node[K, V]{key: k, value: v, height: 1})
		if err != nil {
			return nil, err
		}
		m.len++
		return nn, nil
	}
	switch c := cmp.Compare(k, n.key); {
	case c < 0:
		l, err := m.insert(n.left, k, v)
		if err != nil {
			return n, err
		}
		n.left = l
	case c > 0:
		r, err := m.insert(n.right, k, v)
		if err != nil {
			return n, err
		}
		n.right = r
	default:
		n.value = v
		return n, nil
	}
	return rebalance(n), nil
}

// Delete removes k and reports whether it was present.
func (m *Map[K, V]) Delete(k K) bool {
	var ok bool
	m.root, ok = m.remove(m.root, k)
	return ok
}

func (m *Map[K, V]) remove(n *node[K, V], k K) (*node[K, V], bool) {
	if n == nil {
		return nil, false
	}
	var ok bool
	switch c := cmp.Compare(k, n.key); {
	case c < 0:
		n.left, ok = m.remove(n.left, k)
	case c > 0:
		n.right, ok = m.remove(n.right, k)
	default:
		left, right := n.left, n.right
		m.alloc.Delete(n)
		m.len--
		if left == nil {
			return right, true
		}
		if right == nil {
			return left, true
		}
		// the successor takes the place of n
		right, succ := removeMin(right)
		succ.left, succ.right = left, right
		return rebalance(succ), true
	}
	if !ok {
		return n, false
	}
	return rebalance(n), true
}

func removeMin[K cmp.Ordered, V any](n *node[K, V]) (rest, least *node[K, V]) {
	if n.left == nil {
		return n.right, n
	}
	n.left, least = removeMin(n.left)
	return rebalance(n), least
}

// Min returns the smallest key and its value.
func (m *Map[K, V]) Min() (k K, v V, ok bool) {
	n := m.root
	if n == nil {
		return k, v, false
	}
	for n.left != nil {
		n = n.left
	}
	return n.key, n.value, true
}

// Max returns the largest key and its value.
func (m *Map[K, V]) Max() (k K, v V, ok bool) {
	n := m.root
	if n == nil {
		return k, v, false
	}
	for n.right != nil {
		n = n.right
	}
	return n.key, n.value, true
}

// Ascend calls f for each key in ascending order until f returns false.
func (m *Map[K, V]) Ascend(f func(k K, v V) bool) {
	ascend(m.root, f)
}

func ascend[K cmp.Ordered, V any](n *node[K, V], f func(k K, v V) bool) bool {
	if n == nil {
		return true
	}
	return ascend(n.left, f) && f(n.key, n.value) && ascend(n.right, f)
}

// Clear removes all keys, the nodes are kept by the pool for reuse.
func (m *Map[K, V]) Clear() {
	m.clear(m.root)
	m.root = nil
	m.len = 0
}

func (m *Map[K, V]) clear(n *node[K, V]) {
	if n == nil {
		return
	}
	left, right := n.left, n.right
	m.alloc.Delete(n)
	m.clear(left)
	m.clear(right)
}

// Close removes all keys and releases the slabs of the pool.
func (m *Map[K, V]) Close() error {
	m.Clear()
	return m.alloc.Pool().Close()
}
