package queue

import (
	"sync"
	"testing"
)

// testItem is a simple struct for testing the generic queue
type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem](0)
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_PushDrain(t *testing.T) {
	q := New[testItem](0)

	q.Push(testItem{ID: 1, Name: "first"})
	q.Push(testItem{ID: 2}, testItem{ID: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}

	items := q.Drain()
	if len(items) != 3 || items[0].ID != 1 || items[2].ID != 3 {
		t.Errorf("unexpected drain result %+v", items)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
}

func TestQueue_LimitDropsOldest(t *testing.T) {
	q := New[int](3)
	q.Push(1, 2, 3, 4)
	q.Push(5)

	items := q.Drain()
	if len(items) != 3 || items[0] != 3 || items[2] != 5 {
		t.Errorf("expected [3 4 5], got %v", items)
	}
	if q.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", q.Dropped())
	}
}

func TestQueue_Requeue(t *testing.T) {
	q := New[int](4)
	q.Push(3, 4)
	q.Requeue([]int{1, 2})

	items := q.Drain()
	if len(items) != 4 || items[0] != 1 || items[3] != 4 {
		t.Errorf("expected [1 2 3 4], got %v", items)
	}

	q.Push(9)
	q.Requeue([]int{5, 6, 7, 8})
	items = q.Drain()
	if len(items) != 4 || items[0] != 6 || items[3] != 9 {
		t.Errorf("expected [6 7 8 9], got %v", items)
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int](0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Errorf("expected 1000 items, got %d", q.Len())
	}
}
