package stream

import (
	"time"

	"github.com/google/uuid"
)

type Status uint8

const (
	InProgress Status = iota
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// RecordingSession describes one capture, from device start to teardown.
// Only the worker touches it.
type RecordingSession struct {
	ID        uuid.UUID
	Name      string
	StartedAt time.Time
	StoppedAt time.Time
	Bytes     int64
	Status    Status
}

// Elapsed is zero until the capture both started and stopped.
func (s *RecordingSession) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.StoppedAt.IsZero() {
		return 0
	}
	return s.StoppedAt.Sub(s.StartedAt)
}

type PlaybackSession struct {
	ID     uuid.UUID
	Name   string
	Bytes  int64
	Status Status
}

func newRecordingSession() *RecordingSession {
	return &RecordingSession{ID: uuid.New(), Status: InProgress}
}

func newPlaybackSession(name string) *PlaybackSession {
	return &PlaybackSession{ID: uuid.New(), Name: name, Status: InProgress}
}
