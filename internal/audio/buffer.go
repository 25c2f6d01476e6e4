package audio

// Buffer is the reusable byte region moved between a device and storage.
// Capture and playback never run at the same time, so one Buffer serves both.
type Buffer struct {
	data []byte
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = BufferSize
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Bytes returns the full region. Callers slice it to the transferred length.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Cap() int {
	return len(b.data)
}
