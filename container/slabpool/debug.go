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

// markLive is called by Acquire when Option.Debug is set and addr comes from the free list.
func (p *Pool[T]) markLive(addr uintptr) {
	s, _, idx := p.locate(addr)
	if s == nil {
		panic("slabpool: corrupted free list")
	}
	s.live.Set(uint(idx))
}

// markFree is called by Release when Option.Debug is set.
func (p *Pool[T]) markFree(addr uintptr) {
	s, _, idx := p.locate(addr)
	if s == nil {
		panic("slabpool: foreign block")
	}
	if !s.live.Test(uint(idx)) {
		panic("slabpool: double release")
	}
	s.live.Clear(uint(idx))
}

// Live returns the number of live blocks tracked by the debug bitmaps.
// It always returns 0 if Option.Debug is not set.
func (p *Pool[T]) Live() int {
	if !p.opt.Debug {
		return 0
	}
	n := 0
	for s := p.head; s != nil; s = s.next {
		n += int(s.live.Count())
	}
	return n
}
