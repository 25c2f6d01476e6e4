package audio

import (
	"fmt"
	"runtime"
	"strings"
)

// BackendType represents the type of audio backend
type BackendType string

const (
	BackendTypeMalgo     BackendType = "malgo"
	BackendTypePortAudio BackendType = "portaudio"
	BackendTypePipeWire  BackendType = "pipewire"
	BackendTypeNull      BackendType = "null"
	BackendTypeAuto      BackendType = "auto"
)

// Backend opens capture and playback devices.
//
// Backends are not safe for concurrent use. All device work must happen on
// one goroutine at a time.
type Backend interface {
	// Get the backend type
	Type() BackendType

	// MinBufferSize is the smallest device buffer, in bytes, the backend
	// accepts for the given direction and parameters.
	MinBufferSize(dir Direction, params Params) (int, error)

	OpenCapture(cfg DeviceConfig) (CaptureDevice, error)
	OpenPlayback(cfg DeviceConfig) (PlaybackDevice, error)

	// List available devices
	Devices(dir Direction) ([]DeviceInfo, error)

	// Close releases backend wide resources
	Close() error
}

// NewBackend creates the backend named in configuration
func NewBackend(name string) (Backend, error) {
	backendType, err := determineBackend(name)
	if err != nil {
		return nil, err
	}

	switch backendType {
	case BackendTypePortAudio:
		backend, err := NewPortAudioBackend()
		if err != nil {
			return nil, err
		}
		return backend, nil
	case BackendTypePipeWire:
		backend, err := NewPipeWireBackend()
		if err != nil {
			return nil, err
		}
		return backend, nil
	case BackendTypeNull:
		return NewNullBackend(), nil
	default:
		backend, err := NewMalgoBackend()
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
}

// determineBackend determines which backend to use based on configuration
func determineBackend(name string) (BackendType, error) {
	switch BackendType(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendTypeAuto, BackendTypeMalgo:
		return BackendTypeMalgo, nil
	case BackendTypePortAudio:
		return BackendTypePortAudio, nil
	case BackendTypePipeWire:
		return BackendTypePipeWire, nil
	case BackendTypeNull:
		return BackendTypeNull, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}
}

// ValidateBackend checks a configured backend name without opening it
func ValidateBackend(name string) error {
	_, err := determineBackend(name)
	return err
}

// AvailableBackends returns the backends compiled into this binary
func AvailableBackends() []BackendType {
	backends := []BackendType{BackendTypeMalgo}
	if portAudioAvailable {
		backends = append(backends, BackendTypePortAudio)
	}
	if runtime.GOOS == "linux" {
		backends = append(backends, BackendTypePipeWire)
	}
	return append(backends, BackendTypeNull)
}
