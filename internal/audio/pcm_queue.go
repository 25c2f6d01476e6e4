package audio

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// pcmQueue hands PCM bytes between a callback driven device and a caller
// doing blocking reads or writes. The device side never blocks.
type pcmQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     bytes.Buffer
	maxSize int
	closed  bool
	dropped int
}

func newPCMQueue(maxSize int) *pcmQueue {
	q := &pcmQueue{maxSize: maxSize}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends data from the device. When the queue is full the oldest
// bytes are discarded. It returns the number of bytes discarded.
func (q *pcmQueue) Push(data []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return len(data)
	}

	dropped := 0
	if len(data) > q.maxSize {
		dropped += len(data) - q.maxSize
		data = data[len(data)-q.maxSize:]
	}
	if excess := q.buf.Len() + len(data) - q.maxSize; excess > 0 {
		q.buf.Next(excess)
		dropped += excess
	}
	q.buf.Write(data)
	q.dropped += dropped

	q.cond.Broadcast()
	return dropped
}

// Fill copies queued bytes into out without blocking and returns the count.
func (q *pcmQueue) Fill(out []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n, _ := q.buf.Read(out)
	if n > 0 {
		q.cond.Broadcast()
	}
	return n
}

// ReadFull blocks until len(p) bytes are queued or the queue is closed.
// After close it returns what is left, then io.ErrClosedPipe.
func (q *pcmQueue) ReadFull(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.buf.Len() < len(p) && !q.closed {
		q.cond.Wait()
	}
	if q.buf.Len() == 0 && q.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := q.buf.Read(p)
	q.cond.Broadcast()
	return n, nil
}

// Write blocks until all of p is queued or the queue is closed.
func (q *pcmQueue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	written := 0
	for written < len(p) {
		for q.buf.Len() >= q.maxSize && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			return written, io.ErrClosedPipe
		}
		chunk := min(q.maxSize-q.buf.Len(), len(p)-written)
		q.buf.Write(p[written : written+chunk])
		written += chunk
		q.cond.Broadcast()
	}
	return written, nil
}

// Drain waits until the device consumed everything queued, the queue is
// closed, or timeout passes. It reports whether the queue is empty.
func (q *pcmQueue) Drain(timeout time.Duration) bool {
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.buf.Len() > 0 && !q.closed && time.Now().Before(deadline) {
		q.cond.Wait()
	}
	return q.buf.Len() == 0
}

func (q *pcmQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *pcmQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Len()
}

func (q *pcmQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
