package par

import (
	"sync/atomic"
	"testing"
)

func TestWorkAddsDuringDo(t *testing.T) {
	var w Work[int]
	var n atomic.Int32
	w.Add(10)
	w.Do(3, func(i int) {
		n.Add(1)
		if i > 0 {
			w.Add(i - 1)
			w.Add(i - 1) // duplicate is ignored
		}
	})
	if got := n.Load(); got != 11 {
		t.Errorf("ran %d items, want 11", got)
	}
}

func TestForEach(t *testing.T) {
	items := []string{"cmake", "ninja", "git", "brew"}
	got := make([]int, len(items))
	ForEach(8, items, func(i int, s string) {
		got[i] = len(s)
	})
	for i, s := range items {
		if got[i] != len(s) {
			t.Errorf("result %d = %d, want %d", i, got[i], len(s))
		}
	}
	ForEach(2, []string(nil), func(int, string) { t.Error("called for empty input") })
}

func TestDoPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Do(0) did not panic")
		}
	}()
	var w Work[int]
	w.Do(0, func(int) {})
}
