package audio

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	malgoPeriods      = 3
	malgoPeriodMillis = 10

	// Upper bound for letting queued playback reach the speaker before stop.
	malgoDrainTimeout = 2 * time.Second
)

type deviceStatus uint8

const (
	statusInactive deviceStatus = iota
	statusActive
	statusStopped
	statusReleased
)

// MalgoBackend drives devices through miniaudio. miniaudio only offers a
// callback API, so each device pairs the callback with a pcmQueue to give
// the blocking Read and Write the sessions expect.
type MalgoBackend struct {
	ctx *malgo.AllocatedContext
}

func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init malgo context: %v", ErrDeadObject, err)
	}

	return &MalgoBackend{
		ctx: ctx,
	}, nil
}

func (b *MalgoBackend) Type() BackendType {
	return BackendTypeMalgo
}

// MinBufferSize is the size of the period ring miniaudio sets up by default.
func (b *MalgoBackend) MinBufferSize(_ Direction, params Params) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	frames := params.SampleRate * malgoPeriodMillis / 1000
	return frames * params.FrameSize() * malgoPeriods, nil
}

func (b *MalgoBackend) deviceConfig(deviceType malgo.DeviceType, cfg DeviceConfig) malgo.DeviceConfig {
	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.SampleRate = uint32(cfg.Params.SampleRate)
	deviceConfig.Periods = malgoPeriods
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferSize / cfg.Params.FrameSize() / malgoPeriods)
	deviceConfig.Alsa.NoMMap = 1

	switch deviceType {
	case malgo.Capture:
		deviceConfig.Capture.Format = malgo.FormatType(cfg.Params.Format)
		deviceConfig.Capture.Channels = uint32(cfg.Params.Channels)
	case malgo.Playback:
		deviceConfig.Playback.Format = malgo.FormatType(cfg.Params.Format)
		deviceConfig.Playback.Channels = uint32(cfg.Params.Channels)
	}
	return deviceConfig
}

func (b *MalgoBackend) OpenCapture(cfg DeviceConfig) (CaptureDevice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	capture := &malgoCapture{
		queue: newPCMQueue(2 * cfg.BufferSize),
	}

	device, err := malgo.InitDevice(b.ctx.Context, b.deviceConfig(malgo.Capture, cfg), malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			capture.queue.Push(input)
		},
		Stop: func() {
			capture.queue.Close()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init capture device: %v", ErrDeadObject, err)
	}

	capture.device = device
	return capture, nil
}

func (b *MalgoBackend) OpenPlayback(cfg DeviceConfig) (PlaybackDevice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	playback := &malgoPlayback{
		queue: newPCMQueue(cfg.BufferSize),
	}

	device, err := malgo.InitDevice(b.ctx.Context, b.deviceConfig(malgo.Playback, cfg), malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			n := playback.queue.Fill(output)
			clear(output[n:])
		},
		Stop: func() {
			playback.queue.Close()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init playback device: %v", ErrDeadObject, err)
	}

	playback.device = device
	return playback, nil
}

func (b *MalgoBackend) Devices(dir Direction) ([]DeviceInfo, error) {
	deviceType := malgo.Capture
	if dir == Playback {
		deviceType = malgo.Playback
	}

	infos, err := b.ctx.Devices(deviceType)
	if err != nil {
		return nil, fmt.Errorf("list %s devices: %w", dir, err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        strconv.Itoa(i),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

func (b *MalgoBackend) Close() error {
	err := b.ctx.Uninit()
	b.ctx.Free()
	return err
}

type malgoCapture struct {
	mu     sync.Mutex
	device *malgo.Device
	queue  *pcmQueue
	status deviceStatus
}

func (c *malgoCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != statusInactive {
		return fmt.Errorf("%w: start capture in state %d", ErrInvalidOperation, c.status)
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("%w: start capture: %v", ErrDeadObject, err)
	}
	c.status = statusActive
	return nil
}

func (c *malgoCapture) Read(p []byte) (int, error) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if status != statusActive {
		return 0, fmt.Errorf("%w: read from inactive capture", ErrInvalidOperation)
	}

	n, err := c.queue.ReadFull(p)
	if err != nil {
		return n, fmt.Errorf("%w: capture device stopped", ErrDeadObject)
	}
	return n, nil
}

func (c *malgoCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != statusActive {
		return nil
	}
	c.status = statusStopped
	c.queue.Close()
	if dropped := c.queue.Dropped(); dropped > 0 {
		slog.Debug("capture queue overflowed", "dropped_bytes", dropped)
	}
	return c.device.Stop()
}

func (c *malgoCapture) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == statusReleased {
		return fmt.Errorf("%w: capture already released", ErrInvalidOperation)
	}
	c.status = statusReleased
	c.queue.Close()
	c.device.Uninit()
	return nil
}

type malgoPlayback struct {
	mu     sync.Mutex
	device *malgo.Device
	queue  *pcmQueue
	status deviceStatus
}

func (p *malgoPlayback) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != statusInactive {
		return fmt.Errorf("%w: play in state %d", ErrInvalidOperation, p.status)
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("%w: start playback: %v", ErrDeadObject, err)
	}
	p.status = statusActive
	return nil
}

func (p *malgoPlayback) Write(data []byte) (int, error) {
	p.mu.Lock()
	status := p.status
	p.mu.Unlock()

	if status != statusActive {
		return 0, fmt.Errorf("%w: write to inactive playback", ErrInvalidOperation)
	}

	n, err := p.queue.Write(data)
	if err != nil {
		return n, fmt.Errorf("%w: playback device stopped", ErrDeadObject)
	}
	return n, nil
}

// Stop lets queued audio play out before stopping the device.
func (p *malgoPlayback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != statusActive {
		return nil
	}
	if !p.queue.Drain(malgoDrainTimeout) {
		slog.Debug("playback queue not drained before stop", "pending_bytes", p.queue.Len())
	}
	p.status = statusStopped
	p.queue.Close()
	return p.device.Stop()
}

func (p *malgoPlayback) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == statusReleased {
		return fmt.Errorf("%w: playback already released", ErrInvalidOperation)
	}
	p.status = statusReleased
	p.queue.Close()
	p.device.Uninit()
	return nil
}
