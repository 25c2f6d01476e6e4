package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestPCMQueue_PushDropsOldest(t *testing.T) {
	q := newPCMQueue(4)

	if dropped := q.Push([]byte{1, 2, 3}); dropped != 0 {
		t.Errorf("Expected no drop, got %d", dropped)
	}
	if dropped := q.Push([]byte{4, 5, 6}); dropped != 2 {
		t.Errorf("Expected 2 dropped bytes, got %d", dropped)
	}

	out := make([]byte, 4)
	n := q.Fill(out)
	if n != 4 || !bytes.Equal(out, []byte{3, 4, 5, 6}) {
		t.Errorf("Expected newest bytes [3 4 5 6], got %v", out[:n])
	}
	if q.Dropped() != 2 {
		t.Errorf("Expected dropped counter 2, got %d", q.Dropped())
	}
}

func TestPCMQueue_ReadFullBlocksForData(t *testing.T) {
	q := newPCMQueue(16)

	go func() {
		q.Push([]byte{1, 2})
		time.Sleep(10 * time.Millisecond)
		q.Push([]byte{3, 4})
	}()

	p := make([]byte, 4)
	n, err := q.ReadFull(p)
	if err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if n != 4 || !bytes.Equal(p, []byte{1, 2, 3, 4}) {
		t.Errorf("Expected [1 2 3 4], got %v", p[:n])
	}
}

func TestPCMQueue_ReadAfterClose(t *testing.T) {
	q := newPCMQueue(16)
	q.Push([]byte{9})
	q.Close()

	p := make([]byte, 4)
	n, err := q.ReadFull(p)
	if err != nil || n != 1 {
		t.Errorf("Expected remaining byte, got n=%d err=%v", n, err)
	}

	n, err = q.ReadFull(p)
	if n != 0 || !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Expected io.ErrClosedPipe on empty closed queue, got n=%d err=%v", n, err)
	}
}

func TestPCMQueue_WriteBlocksUntilConsumed(t *testing.T) {
	q := newPCMQueue(2)
	done := make(chan struct{})

	go func() {
		defer close(done)
		n, err := q.Write([]byte{1, 2, 3, 4})
		if err != nil || n != 4 {
			t.Errorf("Expected full write, got n=%d err=%v", n, err)
		}
	}()

	var got []byte
	out := make([]byte, 2)
	deadline := time.Now().Add(time.Second)
	for len(got) < 4 && time.Now().Before(deadline) {
		n := q.Fill(out)
		got = append(got, out[:n]...)
		time.Sleep(time.Millisecond)
	}
	<-done

	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("Expected [1 2 3 4], got %v", got)
	}
}

func TestPCMQueue_WriteAfterClose(t *testing.T) {
	q := newPCMQueue(2)
	q.Close()

	if _, err := q.Write([]byte{1}); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Expected io.ErrClosedPipe, got: %v", err)
	}
}

func TestPCMQueue_DrainTimeout(t *testing.T) {
	q := newPCMQueue(8)
	q.Push([]byte{1, 2})

	start := time.Now()
	if q.Drain(20 * time.Millisecond) {
		t.Error("Expected Drain to report pending data")
	}
	if time.Since(start) > time.Second {
		t.Error("Drain did not honour its timeout")
	}

	q.Fill(make([]byte, 2))
	if !q.Drain(time.Millisecond) {
		t.Error("Expected empty queue to drain immediately")
	}
}
