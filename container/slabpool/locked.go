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

import "sync"

// Locked serializes every call to a Pool with a mutex.
// Prefer one Pool per goroutine where possible.
type Locked[T any] struct {
	mu   sync.Mutex
	pool *Pool[T]
}

// NewLocked creates a Locked over a new pool.
func NewLocked[T any](o *Option) (*Locked[T], error) {
	p, err := NewPool[T](o)
	if err != nil {
		return nil, err
	}
	return &Locked[T]{pool: p}, nil
}

// Acquire ... see (*Pool).Acquire
func (l *Locked[T]) Acquire() (*T, error) {
	l.mu.Lock()
	v, err := l.pool.Acquire()
	l.mu.Unlock()
	return v, err
}

// Release ... see (*Pool).Release
func (l *Locked[T]) Release(v *T) {
	l.mu.Lock()
	l.pool.Release(v)
	l.mu.Unlock()
}

// Stats ... see (*Pool).Stats
func (l *Locked[T]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Stats()
}

// Close ... see (*Pool).Close
func (l *Locked[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Close()
}
