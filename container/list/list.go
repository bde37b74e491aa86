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

// Package list implements a doubly linked list whose elements are allocated from a slab pool.
package list

import (
	"github.com/cloudwego/poolkit/container/slabpool"
)

// Element is an element of a List.
type Element[T any] struct {
	Value T

	next, prev *Element[T]
	list       *List[T]
}

// Next returns the next list element or nil.
func (e *Element[T]) Next() *Element[T] {
	if p := e.next; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// Prev returns the previous list element or nil.
func (e *Element[T]) Prev() *Element[T] {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// List is a doubly linked list like container/list, but elements live in slabs
// and are reused after removal instead of being collected by GC.
//
// An *Element is only valid until it's removed: its storage goes back to the pool
// and may be handed out again by the next push.
//
// List is NOT safe for concurrent use.
type List[T any] struct {
	root  Element[T] // sentinel, only next and prev are used
	len   int
	alloc slabpool.Allocator[Element[T]]
}

// New creates an empty list with its own pool. nil option means slabpool.DefaultOption().
func New[T any](o *slabpool.Option) (*List[T], error) {
	a, err := slabpool.NewAllocator[Element[T]](o)
	if err != nil {
		return nil, err
	}
	return NewWithAllocator(a), nil
}

// NewWithAllocator creates an empty list which allocates elements from a.
// Lists created with equal allocators share the same pool.
func NewWithAllocator[T any](a slabpool.Allocator[Element[T]]) *List[T] {
	l := &List[T]{alloc: a}
	l.root.next = &l.root
	l.root.prev = &l.root
	return l
}

// Allocator returns the allocator of the list.
func (l *List[T]) Allocator() slabpool.Allocator[Element[T]] {
	return l.alloc
}

// Len returns the number of elements of l.
func (l *List[T]) Len() int { return l.len }

// Front returns the first element of l or nil if the list is empty.
func (l *List[T]) Front() *Element[T] {
	if l.len == 0 {
		return nil
	}
	return l.root.next
}

// Back returns the last element of l or nil if the list is empty.
func (l *List[T]) Back() *Element[T] {
	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

func (l *List[T]) insertValue(v T, at *Element[T]) (*Element[T], error) {
	e, err := l.alloc.New(Element[T]{Value: v})
	if err != nil {
		return nil, err
	}
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
	e.list = l
	l.len++
	return e, nil
}

func (l *List[T]) unlink(e *Element[T]) T {
	e.prev.next = e.next
	e.next.prev = e.prev
	l.len--
	v := e.Value
	l.alloc.Delete(e)
	return v
}

// PushFront inserts a new element with value v at the front of l.
func (l *List[T]) PushFront(v T) (*Element[T], error) {
	return l.insertValue(v, &l.root)
}

// PushBack inserts a new element with value v at the back of l.
func (l *List[T]) PushBack(v T) (*Element[T], error) {
	return l.insertValue(v, l.root.prev)
}

// PopFront removes the first element and returns its value.
// ok is false if l is empty.
func (l *List[T]) PopFront() (v T, ok bool) {
	if l.len == 0 {
		return v, false
	}
	return l.unlink(l.root.next), true
}

// PopBack removes the last element and returns its value.
// ok is false if l is empty.
func (l *List[T]) PopBack() (v T, ok bool) {
	if l.len == 0 {
		return v, false
	}
	return l.unlink(l.root.prev), true
}

// Remove removes e from l if e is an element of l, and returns e.Value.
// e MUST NOT be used after Remove.
func (l *List[T]) Remove(e *Element[T]) T {
	if e.list != l {
		return e.Value
	}
	return l.unlink(e)
}

// Do calls function f on each element of the list in forward order.
// Iteration stops if f returns false.
func (l *List[T]) Do(f func(v *T) bool) {
	for e := l.root.next; e != &l.root; e = e.next {
		if !f(&e.Value) {
			return
		}
	}
}

// Clear removes all elements, their storage is kept by the pool for reuse.
func (l *List[T]) Clear() {
	for e := l.root.next; e != &l.root; {
		next := e.next
		l.alloc.Delete(e)
		e = next
	}
	l.root.next = &l.root
	l.root.prev = &l.root
	l.len = 0
}

// Close removes all elements and releases the slabs of the pool.
// DO NOT call Close if the allocator is shared with other lists.
func (l *List[T]) Close() error {
	l.Clear()
	return l.alloc.Pool().Close()
}
