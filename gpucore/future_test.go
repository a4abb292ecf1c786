package gpucore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFutureResolveOnce(t *testing.T) {
	f := NewFuture[int]()
	if f.Ready() {
		t.Fatal("new future should be pending")
	}
	if _, ok, _ := f.Result(); ok {
		t.Fatal("Result on pending future reported ok")
	}

	if !f.Resolve(7, nil) {
		t.Fatal("first Resolve should win")
	}
	if f.Resolve(9, errors.New("late")) {
		t.Fatal("second Resolve should be ignored")
	}

	v, ok, err := f.Result()
	if !ok || err != nil || v != 7 {
		t.Errorf("Result() = (%d, %v, %v), want (7, true, nil)", v, ok, err)
	}
}

func TestFutureResolvedError(t *testing.T) {
	f := Resolved(AdapterID(InvalidID), ErrNoAdapter)
	if !f.Ready() {
		t.Fatal("Resolved future should be ready")
	}
	_, err := f.Wait(context.Background())
	if !errors.Is(err, ErrNoAdapter) {
		t.Errorf("Wait error = %v, want ErrNoAdapter", err)
	}
}

func TestFutureWaitCancelled(t *testing.T) {
	f := NewFuture[struct{}]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait error = %v, want DeadlineExceeded", err)
	}

	// Resolving after the waiter left must still be safe.
	if !f.Resolve(struct{}{}, nil) {
		t.Error("Resolve after cancelled Wait should succeed")
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done channel not closed after Resolve")
	}
}

func TestFutureConcurrentResolve(t *testing.T) {
	f := NewFuture[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 16 {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if f.Resolve(v, nil) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("Resolve winners = %d, want 1", wins)
	}
}
