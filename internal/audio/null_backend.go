package audio

import (
	"fmt"
	"sync"
	"time"
)

// NullBackend has one silent input and one discarding output. Transfers are
// paced at the stream rate so durations behave like a real device. It is
// meant for machines without audio hardware and for tests.
type NullBackend struct {
	// Unpaced disables real-time pacing.
	Unpaced bool
}

func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

func (b *NullBackend) Type() BackendType {
	return BackendTypeNull
}

func (b *NullBackend) MinBufferSize(_ Direction, params Params) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	return params.FrameSize(), nil
}

func (b *NullBackend) OpenCapture(cfg DeviceConfig) (CaptureDevice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &nullDevice{params: cfg.Params, paced: !b.Unpaced}, nil
}

func (b *NullBackend) OpenPlayback(cfg DeviceConfig) (PlaybackDevice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &nullDevice{params: cfg.Params, paced: !b.Unpaced}, nil
}

func (b *NullBackend) Devices(dir Direction) ([]DeviceInfo, error) {
	name := "NullInput"
	if dir == Playback {
		name = "NullOutput"
	}
	return []DeviceInfo{{ID: "0", Name: name, IsDefault: true}}, nil
}

func (b *NullBackend) Close() error {
	return nil
}

// nullDevice serves as both the capture and the playback handle.
type nullDevice struct {
	mu     sync.Mutex
	params Params
	paced  bool
	status deviceStatus
}

func (d *nullDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status != statusInactive {
		return fmt.Errorf("%w: start in state %d", ErrInvalidOperation, d.status)
	}
	d.status = statusActive
	return nil
}

func (d *nullDevice) Play() error {
	return d.Start()
}

func (d *nullDevice) transfer(n int) error {
	d.mu.Lock()
	status := d.status
	d.mu.Unlock()

	if status != statusActive {
		return fmt.Errorf("%w: transfer on inactive device", ErrInvalidOperation)
	}
	if d.paced {
		time.Sleep(d.params.Duration(int64(n)))
	}
	return nil
}

func (d *nullDevice) Read(p []byte) (int, error) {
	if err := d.transfer(len(p)); err != nil {
		return 0, err
	}
	clear(p)
	return len(p), nil
}

func (d *nullDevice) Write(p []byte) (int, error) {
	if err := d.transfer(len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *nullDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status == statusActive {
		d.status = statusStopped
	}
	return nil
}

func (d *nullDevice) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status == statusReleased {
		return fmt.Errorf("%w: already released", ErrInvalidOperation)
	}
	d.status = statusReleased
	return nil
}
