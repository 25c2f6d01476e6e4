package audio

import (
	"errors"
	"testing"
)

func TestDetermineBackend(t *testing.T) {
	tests := []struct {
		name string
		want BackendType
	}{
		{"", BackendTypeMalgo},
		{"auto", BackendTypeMalgo},
		{"MALGO", BackendTypeMalgo},
		{"portaudio", BackendTypePortAudio},
		{" null ", BackendTypeNull},
		{"PipeWire", BackendTypePipeWire},
	}

	for _, tt := range tests {
		got, err := determineBackend(tt.name)
		if err != nil {
			t.Errorf("determineBackend(%q) returned error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("determineBackend(%q) = %s, expected %s", tt.name, got, tt.want)
		}
	}
}

func TestDetermineBackend_Unknown(t *testing.T) {
	_, err := determineBackend("pulse")
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Errorf("Expected ErrUnsupportedBackend, got: %v", err)
	}
	if ValidateBackend("jack") == nil {
		t.Error("Expected ValidateBackend to reject jack")
	}
}

func TestNewBackend_Null(t *testing.T) {
	backend, err := NewBackend("null")
	if err != nil {
		t.Fatalf("Expected null backend, got error: %v", err)
	}
	defer backend.Close()

	if backend.Type() != BackendTypeNull {
		t.Errorf("Expected null backend type, got %s", backend.Type())
	}
}

func TestNullBackend_Lifecycle(t *testing.T) {
	backend := &NullBackend{Unpaced: true}
	cfg := DeviceConfig{Params: DefaultParams(), BufferSize: BufferSize, ChunkSize: BufferSize}

	capture, err := backend.OpenCapture(cfg)
	if err != nil {
		t.Fatalf("OpenCapture failed: %v", err)
	}

	buf := []byte{1, 2, 3, 4}
	if _, err := capture.Read(buf); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Expected read before start to fail with ErrInvalidOperation, got: %v", err)
	}

	if err := capture.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	n, err := capture.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Expected %d bytes, got %d (err %v)", len(buf), n, err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Errorf("Expected silence at %d, got %d", i, b)
		}
	}

	if err := capture.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := capture.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if err := capture.Release(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Expected second release to fail, got: %v", err)
	}
}

func TestNullBackend_RejectsParams(t *testing.T) {
	backend := &NullBackend{Unpaced: true}
	params := DefaultParams()
	params.Channels = 2

	if _, err := backend.OpenPlayback(DeviceConfig{Params: params, BufferSize: 4096, ChunkSize: 2048}); !errors.Is(err, ErrBadValue) {
		t.Errorf("Expected ErrBadValue for stereo, got: %v", err)
	}
	if _, err := backend.MinBufferSize(Playback, params); !errors.Is(err, ErrBadValue) {
		t.Errorf("Expected ErrBadValue from MinBufferSize, got: %v", err)
	}
}

func TestAvailableBackends(t *testing.T) {
	backends := AvailableBackends()
	if backends[0] != BackendTypeMalgo || backends[len(backends)-1] != BackendTypeNull {
		t.Errorf("Expected malgo first and null last, got %v", backends)
	}

	for _, b := range backends {
		if b == BackendTypePortAudio && !portAudioAvailable {
			t.Error("PortAudio listed without the portaudio build tag")
		}
	}
}
