// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package par runs sets of work items in parallel.
package par

import (
	"math/rand"
	"sync"
)

// Work is a set of items processed in parallel, each at most once. Items
// must be valid map keys.
type Work[T comparable] struct {
	f       func(T)
	running int

	mu      sync.Mutex
	added   map[T]bool
	todo    []T
	wait    sync.Cond // signalled when todo grows
	waiting int
}

// Add adds item to the set unless it was added before.
func (w *Work[T]) Add(item T) {
	w.mu.Lock()
	if w.added == nil {
		w.added = make(map[T]bool)
	}
	if !w.added[item] {
		w.added[item] = true
		w.todo = append(w.todo, item)
		if w.waiting > 0 {
			w.wait.Signal()
		}
	}
	w.mu.Unlock()
}

// Do runs f on the items of the set with at most n calls in flight and
// returns once every item, including items added by f, is done. Do may
// only be called once.
func (w *Work[T]) Do(n int, f func(item T)) {
	if n < 1 {
		panic("par.Work.Do: n < 1")
	}
	if w.running >= 1 {
		panic("par.Work.Do: already called Do")
	}

	w.running = n
	w.f = f
	w.wait.L = &w.mu

	for i := 0; i < n-1; i++ {
		go w.runner()
	}
	w.runner()
}

func (w *Work[T]) runner() {
	for {
		w.mu.Lock()
		for len(w.todo) == 0 {
			w.waiting++
			if w.waiting == w.running {
				w.wait.Broadcast()
				w.mu.Unlock()
				return
			}
			w.wait.Wait()
			w.waiting--
		}

		// Random pick spreads items added together across runners.
		i := rand.Intn(len(w.todo))
		item := w.todo[i]
		w.todo[i] = w.todo[len(w.todo)-1]
		w.todo = w.todo[:len(w.todo)-1]
		w.mu.Unlock()

		w.f(item)
	}
}

// ForEach runs f on every element of items with at most n calls in
// flight. f receives the element index so results can be stored without
// locking.
func ForEach[T any](n int, items []T, f func(i int, item T)) {
	if len(items) == 0 {
		return
	}
	if n > len(items) {
		n = len(items)
	}
	var w Work[int]
	for i := range items {
		w.Add(i)
	}
	w.Do(n, func(i int) { f(i, items[i]) })
}
