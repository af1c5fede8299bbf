package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestInOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for n := uint64(1); n <= 3; n++ {
		if err := s.Wait(ctx, n); err != nil {
			t.Fatalf("Wait(%d): %v", n, err)
		}
		s.Done(n)
	}
	if s.Next() != 4 {
		t.Fatalf("Next: got %d, want 4", s.Next())
	}
}

func TestOutOfOrderArrivals(t *testing.T) {
	s := New()
	ctx := context.Background()

	var mu sync.Mutex
	var order []uint64
	var wg sync.WaitGroup
	for _, n := range []uint64{4, 2, 3, 1} {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			if err := s.Wait(ctx, n); err != nil {
				t.Errorf("Wait(%d): %v", n, err)
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			s.Done(n)
		}(n)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	for i, n := range order {
		if n != uint64(i+1) {
			t.Fatalf("order: got %v, want [1 2 3 4]", order)
		}
	}
}

func TestZeroBypasses(t *testing.T) {
	s := New()
	if err := s.Wait(context.Background(), 0); err != nil {
		t.Fatalf("Wait(0): %v", err)
	}
	s.Done(0)
	if s.Next() != 1 {
		t.Fatalf("Next after turn 0: got %d, want 1", s.Next())
	}
}

func TestTurnPassed(t *testing.T) {
	s := New()
	s.Done(1)
	s.Done(2)
	if err := s.Wait(context.Background(), 1); !errors.Is(err, ErrTurnPassed) {
		t.Fatalf("Wait(1): got %v, want ErrTurnPassed", err)
	}
}

func TestWaitCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx, 5); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait(5): got %v, want DeadlineExceeded", err)
	}
}

func TestDoneIgnoresWrongTurn(t *testing.T) {
	s := New()
	s.Done(3)
	if s.Next() != 1 {
		t.Fatalf("Next: got %d, want 1", s.Next())
	}
}

func TestReset(t *testing.T) {
	s := New()
	s.Done(1)
	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background(), 9) }()
	time.Sleep(10 * time.Millisecond)
	s.Reset()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("released waiter: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Reset")
	}
	if s.Next() != 1 {
		t.Fatalf("Next after Reset: got %d, want 1", s.Next())
	}
}

func TestClose(t *testing.T) {
	s := New()
	done := make(chan error, 1)
	go func() { done <- s.Wait(context.Background(), 3) }()
	time.Sleep(10 * time.Millisecond)
	s.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("parked waiter: got %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released by Close")
	}
	if err := s.Wait(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Wait after Close: got %v, want ErrClosed", err)
	}
	if err := s.Wait(context.Background(), 0); err != nil {
		t.Fatalf("unordered Wait after Close: %v", err)
	}
}
