// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package shardmap implements a generic map split into shards, each guarded by its own lock, so that operations on
// keys of different shards do not contend.
package shardmap

import (
	"hash/maphash"
	"sync"
)

// Map is a concurrent map. The zero value is not usable; use New, NewString or NewInt.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hash   func(K) uint64
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// New returns a map with n shards (at least one) using hash to pick the shard of a key
func New[K comparable, V any](n int, hash func(K) uint64) *Map[K, V] {
	if n <= 0 {
		n = 1
	}
	m := &Map[K, V]{shards: make([]shard[K, V], n), hash: hash}
	for i := range m.shards {
		m.shards[i].m = map[K]V{}
	}
	return m
}

// NewString returns a map with string keys
func NewString[V any](n int) *Map[string, V] {
	seed := maphash.MakeSeed()
	return New[string, V](n, func(k string) uint64 { return maphash.String(seed, k) })
}

// NewInt returns a map with integer keys
func NewInt[K ~int | ~int64, V any](n int) *Map[K, V] {
	return New[K, V](n, func(k K) uint64 { return uint64(k) })
}

func (m *Map[K, V]) shardOf(k K) *shard[K, V] {
	return &m.shards[m.hash(k)%uint64(len(m.shards))]
}

// Load returns the value stored for k
func (m *Map[K, V]) Load(k K) (V, bool) {
	s := m.shardOf(k)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[k]
	return v, ok
}

// Store sets the value for k
func (m *Map[K, V]) Store(k K, v V) {
	s := m.shardOf(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[k] = v
}

// LoadOrCreate returns the value stored for k. If there is none, create is called with the shard lock held, and its
// result is stored and returned. loaded is false if the value has been created by this call.
// create must not access the map.
func (m *Map[K, V]) LoadOrCreate(k K, create func() V) (v V, loaded bool) {
	s := m.shardOf(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[k]; ok {
		return v, true
	}
	v = create()
	s.m[k] = v
	return v, false
}

// Update replaces the value of k by f(old, ok) atomically, and returns the new value.
// f must not access the map.
func (m *Map[K, V]) Update(k K, f func(old V, ok bool) V) V {
	s := m.shardOf(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.m[k]
	v := f(old, ok)
	s.m[k] = v
	return v
}

// Delete removes k
func (m *Map[K, V]) Delete(k K) {
	s := m.shardOf(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, k)
}

// DeleteIf removes k if its value satisfies cond, and reports whether it was removed
func (m *Map[K, V]) DeleteIf(k K, cond func(V) bool) bool {
	s := m.shardOf(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[k]; ok && cond(v) {
		delete(s.m, k)
		return true
	}
	return false
}

// Len returns the number of entries
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

// Range calls f on a snapshot of each shard, stopping if f returns false. The order is unspecified.
func (m *Map[K, V]) Range(f func(K, V) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		keys := make([]K, 0, len(s.m))
		vals := make([]V, 0, len(s.m))
		for k, v := range s.m {
			keys = append(keys, k)
			vals = append(vals, v)
		}
		s.mu.RUnlock()
		for j := range keys {
			if !f(keys[j], vals[j]) {
				return
			}
		}
	}
}

// Clear removes all the entries
func (m *Map[K, V]) Clear() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.m = map[K]V{}
		s.mu.Unlock()
	}
}
