package queue

import (
	"sync"
	"testing"
)

type testOp struct {
	Layer uint
	Name  string
}

func TestQueue_New(t *testing.T) {
	q := New[testOp]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testOp]()

	q.Push(testOp{Layer: 1, Name: "add"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testOp{Layer: 2}, testOp{Layer: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Pop(t *testing.T) {
	q := New[testOp]()

	if _, ok := q.Pop(); ok {
		t.Error("expected ok=false on empty queue")
	}

	q.Push(testOp{Layer: 1, Name: "add"}, testOp{Layer: 2, Name: "remove"})
	first, ok := q.Pop()
	if !ok || first.Layer != 1 || first.Name != "add" {
		t.Errorf("expected {1, add}, got %+v (ok=%v)", first, ok)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[testOp]()
	q.Push(testOp{Layer: 1}, testOp{Layer: 2}, testOp{Layer: 3})

	items := q.GetAndEmpty()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, it := range items {
		if it.Layer != uint(i+1) {
			t.Errorf("item %d: expected layer %d, got %d", i, i+1, it.Layer)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}

	// queue is still usable
	q.Push(testOp{Layer: 4})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_GetAndEmpty_DoesNotAlias(t *testing.T) {
	q := New[testOp]()
	q.Push(testOp{Layer: 1})

	items := q.GetAndEmpty()
	q.Push(testOp{Layer: 99})

	if items[0].Layer != 1 {
		t.Errorf("drained slice was overwritten: %+v", items[0])
	}
}

func TestQueue_Bounded_DropsOldest(t *testing.T) {
	q := NewBounded[int](3)

	q.Push(1, 2, 3)
	q.Push(4)
	q.Push(5, 6)

	items := q.GetAndEmpty()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0] != 4 || items[1] != 5 || items[2] != 6 {
		t.Errorf("expected [4 5 6], got %v", items)
	}
	if q.Dropped() != 3 {
		t.Errorf("expected 3 dropped, got %d", q.Dropped())
	}
}

func TestQueue_Bounded_ZeroIsUnbounded(t *testing.T) {
	q := NewBounded[int](0)
	for i := 0; i < 1000; i++ {
		q.Push(i)
	}
	if q.Len() != 1000 {
		t.Errorf("expected 1000 items, got %d", q.Len())
	}
	if q.Dropped() != 0 {
		t.Errorf("expected 0 dropped, got %d", q.Dropped())
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(base*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("expected length 1000, got %d", q.Len())
	}
}
