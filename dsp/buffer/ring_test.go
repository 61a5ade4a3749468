package buffer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pushAll(r *Ring[int], values ...int) {
	for _, v := range values {
		r.Push(v)
	}
}

func TestNewRingInvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := NewRing[int](c); err == nil {
			t.Fatalf("NewRing(%d): expected error", c)
		}
	}
}

func TestRingSnapshotInsertionOrder(t *testing.T) {
	r, err := NewRing[int](5)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	for n := 0; n <= 5; n++ {
		r.Clear()
		want := make([]int, 0, n)
		for i := 0; i < n; i++ {
			r.Push(i * 10)
			want = append(want, i*10)
		}
		if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
			t.Fatalf("n=%d snapshot mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r, _ := NewRing[int](3)
	pushAll(r, 1, 2, 3, 4)
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	if diff := cmp.Diff([]int{2, 3, 4}, r.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if r.Total() != 4 {
		t.Fatalf("Total() = %d, want 4", r.Total())
	}
}

func TestRingWraparoundManyTimes(t *testing.T) {
	r, _ := NewRing[int](7)
	for i := 0; i < 100; i++ {
		r.Push(i)
		if r.Len() > r.Cap() {
			t.Fatalf("occupancy %d exceeds capacity %d", r.Len(), r.Cap())
		}
	}
	if diff := cmp.Diff([]int{93, 94, 95, 96, 97, 98, 99}, r.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRingSnapshotIsCopy(t *testing.T) {
	r, _ := NewRing[int](3)
	pushAll(r, 1, 2)
	s := r.Snapshot()
	s[0] = 99
	if got := r.Snapshot()[0]; got != 1 {
		t.Fatalf("snapshot aliases ring storage: got %d", got)
	}
}

func TestRingDropOldest(t *testing.T) {
	r, _ := NewRing[int](4)
	pushAll(r, 1, 2, 3, 4, 5, 6)

	r.DropOldest(2)
	if diff := cmp.Diff([]int{5, 6}, r.Snapshot()); diff != "" {
		t.Fatalf("after drop (-want +got):\n%s", diff)
	}
	if r.Total() != 6 {
		t.Fatalf("Total() = %d, want 6 after DropOldest", r.Total())
	}

	pushAll(r, 7, 8, 9)
	if diff := cmp.Diff([]int{6, 7, 8, 9}, r.Snapshot()); diff != "" {
		t.Fatalf("after refill (-want +got):\n%s", diff)
	}

	r.DropOldest(0)
	if r.Len() != 4 {
		t.Fatalf("DropOldest(0) changed occupancy to %d", r.Len())
	}
	r.DropOldest(10)
	if r.Len() != 0 {
		t.Fatalf("DropOldest(10) left %d values", r.Len())
	}
}

func TestRingClear(t *testing.T) {
	r, _ := NewRing[int](3)
	pushAll(r, 1, 2, 3, 4)
	r.Clear()
	if r.Len() != 0 || r.Total() != 0 {
		t.Fatalf("after Clear: Len=%d Total=%d, want 0/0", r.Len(), r.Total())
	}
	if r.Cap() != 3 {
		t.Fatalf("Cap() = %d, want 3", r.Cap())
	}
	pushAll(r, 9)
	if diff := cmp.Diff([]int{9}, r.Snapshot()); diff != "" {
		t.Fatalf("after reuse (-want +got):\n%s", diff)
	}
}

func TestRingAppendTo(t *testing.T) {
	r, _ := NewRing[int](2)
	pushAll(r, 1, 2, 3)
	got := r.AppendTo([]int{0})
	if diff := cmp.Diff([]int{0, 2, 3}, got); diff != "" {
		t.Fatalf("AppendTo (-want +got):\n%s", diff)
	}
}

func TestRingEachOldestFirst(t *testing.T) {
	r, _ := NewRing[int](3)
	pushAll(r, 1, 2, 3, 4)
	var got []int
	r.Each(func(v int) { got = append(got, v) })
	if diff := cmp.Diff([]int{2, 3, 4}, got); diff != "" {
		t.Fatalf("Each (-want +got):\n%s", diff)
	}
}

func BenchmarkRingPush(b *testing.B) {
	r, _ := NewRing[float64](100)
	for b.Loop() {
		r.Push(1)
	}
}
