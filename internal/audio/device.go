package audio

import (
	"errors"
)

// Direction selects the capture or playback side of a backend.
type Direction uint8

const (
	Capture Direction = iota + 1
	Playback
)

func (d Direction) String() string {
	switch d {
	case Capture:
		return "capture"
	case Playback:
		return "playback"
	default:
		return "unknown"
	}
}

// Device error classes. Backends wrap their native errors with one of these.
var (
	ErrInvalidOperation = errors.New("audio: invalid operation")
	ErrBadValue         = errors.New("audio: bad value")
	ErrDeadObject       = errors.New("audio: dead object")

	ErrUnsupportedBackend = errors.New("audio: unsupported backend")
)

// IsWriteFailure reports whether err belongs to one of the classes that end
// a playback session.
func IsWriteFailure(err error) bool {
	return errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrBadValue) ||
		errors.Is(err, ErrDeadObject)
}

// DeviceInfo describes an input or output device reported by a backend
type DeviceInfo struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	IsDefault bool   `json:"is_default" yaml:"is_default"`
}

// CaptureDevice is an open input device handle.
//
// Read blocks until up to len(p) bytes of PCM have been captured. A count of
// zero or less, or a non-nil error, means the device can no longer deliver.
type CaptureDevice interface {
	Start() error
	Read(p []byte) (int, error)
	Stop() error
	Release() error
}

// PlaybackDevice is an open output device handle in streaming mode.
//
// Write blocks until p has been handed to the device. Errors matching
// IsWriteFailure are fatal for the stream; other errors are advisory.
type PlaybackDevice interface {
	Play() error
	Write(p []byte) (int, error)
	Stop() error
	Release() error
}
