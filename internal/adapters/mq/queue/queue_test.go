package queue

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	line1 := Line{Source: "tcp:1", Text: "123 entrada", At: time.Now()}
	if !q.Enqueue(ctx, line1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	lineChan := q.Dequeue(ctx)
	line := <-lineChan
	if line.Text != "123 entrada" {
		t.Errorf("expected line text preserved, got %q", line.Text)
	}
	if line.Source != "tcp:1" {
		t.Errorf("expected source preserved, got %q", line.Source)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Fill the queue
	if !q.Enqueue(ctx, Line{Source: "a", Text: "1"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, Line{Source: "a", Text: "2"}) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, Line{Source: "a", Text: "3"}) {
		t.Error("expected enqueue to fail when queue is full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Ordering(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if !q.Enqueue(ctx, Line{Source: "a", Text: fmt.Sprintf("line-%d", i)}) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	lineChan := q.Dequeue(ctx)
	for i := 0; i < 10; i++ {
		line := <-lineChan
		if want := fmt.Sprintf("line-%d", i); line.Text != want {
			t.Errorf("expected %q at position %d, got %q", want, i, line.Text)
		}
	}
}

func TestInMemoryQueue_EnqueueAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if q.Enqueue(ctx, Line{Source: "a", Text: "1"}) {
		t.Error("expected enqueue to fail after close")
	}
}

func TestInMemoryQueue_DequeueDrainsAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	q.Enqueue(ctx, Line{Source: "a", Text: "1"})
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lineChan := q.Dequeue(ctx)
	line, ok := <-lineChan
	if !ok || line.Text != "1" {
		t.Errorf("expected buffered line after close, got %q ok=%v", line.Text, ok)
	}

	if _, ok := <-lineChan; ok {
		t.Error("expected channel closed after drain")
	}
}
