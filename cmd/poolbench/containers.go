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
	stdlist "container/list"
	"math/rand"
	"time"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/cloudwego/poolkit/container/list"
	"github.com/cloudwego/poolkit/container/ordmap"
	"github.com/cloudwego/poolkit/container/slabpool"
)

// resizer is a container under test. resize grows or shrinks it to exactly n elements,
// it returns the number of elements inserted and removed.
type resizer interface {
	resize(n int) (ops int, err error)
	close() error
}

type containerTest struct {
	name string
	heap func() resizer
	pool func(o *slabpool.Option) (resizer, error)
}

var containerTests = []containerTest{
	{
		name: "push-front",
		heap: func() resizer { return &stdListResizer{l: stdlist.New()} },
		pool: func(o *slabpool.Option) (resizer, error) { return newListResizer(o, false) },
	},
	{
		name: "push-back",
		heap: func() resizer { return &stdListResizer{l: stdlist.New(), back: true} },
		pool: func(o *slabpool.Option) (resizer, error) { return newListResizer(o, true) },
	},
	{
		name: "map",
		heap: func() resizer { return &btreeMapResizer{t: btree.NewG[kv](btreeDegree, lessKV)} },
		pool: newMapResizer,
	},
	{
		name: "set",
		heap: func() resizer { return &btreeSetResizer{t: btree.NewOrderedG[int](btreeDegree)} },
		pool: newSetResizer,
	},
}

func findContainerTest(name string) (containerTest, bool) {
	for _, t := range containerTests {
		if t.name == name {
			return t, true
		}
	}
	return containerTest{}, false
}

// runResizer resizes c to a random size in [0, maxSize] iterations times.
func runResizer(c resizer, iterations, maxSize int, seed int64) (time.Duration, int, error) {
	rnd := rand.New(rand.NewSource(seed))
	ops := 0
	start := time.Now()
	for i := 0; i < iterations; i++ {
		n, err := c.resize(rnd.Intn(maxSize + 1))
		ops += n
		if err != nil {
			return time.Since(start), ops, err
		}
	}
	return time.Since(start), ops, nil
}

type stdListResizer struct {
	l    *stdlist.List
	back bool
}

func (r *stdListResizer) resize(n int) (int, error) {
	ops := 0
	for r.l.Len() < n {
		if r.back {
			r.l.PushBack(r.l.Len())
		} else {
			r.l.PushFront(r.l.Len())
		}
		ops++
	}
	for r.l.Len() > n {
		if r.back {
			r.l.Remove(r.l.Back())
		} else {
			r.l.Remove(r.l.Front())
		}
		ops++
	}
	return ops, nil
}

func (r *stdListResizer) close() error {
	r.l.Init()
	return nil
}

type listResizer struct {
	l    *list.List[int]
	back bool
}

func newListResizer(o *slabpool.Option, back bool) (resizer, error) {
	l, err := list.New[int](o)
	if err != nil {
		return nil, err
	}
	return &listResizer{l: l, back: back}, nil
}

func (r *listResizer) resize(n int) (int, error) {
	ops := 0
	for r.l.Len() < n {
		var err error
		if r.back {
			_, err = r.l.PushBack(r.l.Len())
		} else {
			_, err = r.l.PushFront(r.l.Len())
		}
		if err != nil {
			return ops, errors.Wrap(err, "list push")
		}
		ops++
	}
	for r.l.Len() > n {
		if r.back {
			r.l.PopBack()
		} else {
			r.l.PopFront()
		}
		ops++
	}
	return ops, nil
}

func (r *listResizer) close() error { return r.l.Close() }

const btreeDegree = 32

type kv struct{ k, v int }

func lessKV(a, b kv) bool { return a.k < b.k }

// keys of the map tests are 0..size-1, the largest key is removed first
type btreeMapResizer struct {
	t *btree.BTreeG[kv]
}

func (r *btreeMapResizer) resize(n int) (int, error) {
	ops := 0
	for size := r.t.Len(); size < n; size++ {
		r.t.ReplaceOrInsert(kv{size, size})
		ops++
	}
	for size := r.t.Len(); size > n; size-- {
		r.t.Delete(kv{k: size - 1})
		ops++
	}
	return ops, nil
}

func (r *btreeMapResizer) close() error {
	r.t.Clear(false)
	return nil
}

type mapResizer struct {
	m *ordmap.Map[int, int]
}

func newMapResizer(o *slabpool.Option) (resizer, error) {
	m, err := ordmap.New[int, int](o)
	if err != nil {
		return nil, err
	}
	return &mapResizer{m: m}, nil
}

func (r *mapResizer) resize(n int) (int, error) {
	ops := 0
	for size := r.m.Len(); size < n; size++ {
		if err := r.m.Set(size, size); err != nil {
			return ops, errors.Wrap(err, "map set")
		}
		ops++
	}
	for size := r.m.Len(); size > n; size-- {
		r.m.Delete(size - 1)
		ops++
	}
	return ops, nil
}

func (r *mapResizer) close() error { return r.m.Close() }

type btreeSetResizer struct {
	t *btree.BTreeG[int]
}

func (r *btreeSetResizer) resize(n int) (int, error) {
	ops := 0
	for size := r.t.Len(); size < n; size++ {
		r.t.ReplaceOrInsert(size)
		ops++
	}
	for size := r.t.Len(); size > n; size-- {
		r.t.Delete(size - 1)
		ops++
	}
	return ops, nil
}

func (r *btreeSetResizer) close() error {
	r.t.Clear(false)
	return nil
}

type setResizer struct {
	s *ordmap.Set[int]
}

func newSetResizer(o *slabpool.Option) (resizer, error) {
	s, err := ordmap.NewSet[int](o)
	if err != nil {
		return nil, err
	}
	return &setResizer{s: s}, nil
}

func (r *setResizer) resize(n int) (int, error) {
	ops := 0
	for size := r.s.Len(); size < n; size++ {
		if err := r.s.Insert(size); err != nil {
			return ops, errors.Wrap(err, "set insert")
		}
		ops++
	}
	for size := r.s.Len(); size > n; size-- {
		r.s.Delete(size - 1)
		ops++
	}
	return ops, nil
}

func (r *setResizer) close() error { return r.s.Close() }
