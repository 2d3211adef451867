package dispatch

import (
	"sync"
	"testing"
)

func TestBufferSendReceive(t *testing.T) {
	b := NewGrowableBuffer[int](4)

	for i := 0; i < 3; i++ {
		if !b.Send(i) {
			t.Fatalf("Send(%d) = false", i)
		}
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}

	for i := 0; i < 3; i++ {
		got, ok := b.Receive()
		if !ok || got != i {
			t.Errorf("Receive() = (%d, %v), want (%d, true)", got, ok, i)
		}
	}
}

func TestBufferGrowsUnderLoad(t *testing.T) {
	b := NewGrowableBuffer[int](2)

	// Far beyond initial capacity; ordering must survive the resizes.
	const n = 1000
	for i := 0; i < n; i++ {
		if !b.Send(i) {
			t.Fatalf("Send(%d) = false", i)
		}
	}

	for i := 0; i < n; i++ {
		got, ok := b.TryReceive()
		if !ok || got != i {
			t.Fatalf("TryReceive() = (%d, %v), want (%d, true)", got, ok, i)
		}
	}
}

func TestBufferDrainTo(t *testing.T) {
	b := NewGrowableBuffer[string](8)
	for _, s := range []string{"a", "b", "c", "d"} {
		b.Send(s)
	}

	got := b.DrainTo(3)
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("DrainTo(3) = %v", got)
	}

	rest := b.DrainTo(0)
	if len(rest) != 1 || rest[0] != "d" {
		t.Errorf("DrainTo(0) = %v, want [d]", rest)
	}

	if b.DrainTo(10) != nil {
		t.Error("DrainTo on empty buffer should return nil")
	}
}

func TestBufferClose(t *testing.T) {
	b := NewGrowableBuffer[int](4)
	b.Send(1)
	b.Close()

	if b.Send(2) {
		t.Error("Send after Close should return false")
	}

	// Remaining item still drains before the closed signal.
	if got, ok := b.Receive(); !ok || got != 1 {
		t.Errorf("Receive() = (%d, %v), want (1, true)", got, ok)
	}
	if _, ok := b.Receive(); ok {
		t.Error("Receive on drained closed buffer should report closed")
	}
}

func TestBufferConcurrent(t *testing.T) {
	b := NewGrowableBuffer[int](16)
	const n = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			b.Send(i)
		}
		b.Close()
	}()

	seen := 0
	for {
		_, ok := b.Receive()
		if !ok {
			break
		}
		seen++
	}
	wg.Wait()

	if seen != n {
		t.Errorf("received %d items, want %d", seen, n)
	}
}
