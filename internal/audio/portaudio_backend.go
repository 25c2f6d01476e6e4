//go:build portaudio

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gordonklaus/portaudio"
)

const portAudioAvailable = true

// PortAudioBackend uses PortAudio blocking streams, which map directly onto
// the Read and Write calls of the device interfaces.
type PortAudioBackend struct{}

func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", portAudioError(err))
	}
	return &PortAudioBackend{}, nil
}

func (b *PortAudioBackend) Type() BackendType {
	return BackendTypePortAudio
}

// MinBufferSize derives the minimum from the default device's low latency.
func (b *PortAudioBackend) MinBufferSize(dir Direction, params Params) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	device, err := defaultPortAudioDevice(dir)
	if err != nil {
		return 0, err
	}

	latency := device.DefaultLowOutputLatency
	if dir == Capture {
		latency = device.DefaultLowInputLatency
	}
	frames := int(latency.Seconds() * float64(params.SampleRate))
	return frames * params.FrameSize(), nil
}

func (b *PortAudioBackend) streamParameters(dir Direction, cfg DeviceConfig) (portaudio.StreamParameters, error) {
	device, err := defaultPortAudioDevice(dir)
	if err != nil {
		return portaudio.StreamParameters{}, err
	}

	latency := bufferLatency(cfg)
	var params portaudio.StreamParameters
	if dir == Capture {
		params = portaudio.LowLatencyParameters(device, nil)
		params.Input.Channels = cfg.Params.Channels
		params.Input.Latency = latency
		params.Output.Device = nil
		params.Output.Channels = 0
	} else {
		params = portaudio.LowLatencyParameters(nil, device)
		params.Output.Channels = cfg.Params.Channels
		params.Output.Latency = latency
		params.Input.Device = nil
		params.Input.Channels = 0
	}
	params.SampleRate = float64(cfg.Params.SampleRate)
	params.FramesPerBuffer = cfg.ChunkSize / cfg.Params.FrameSize()
	return params, nil
}

func (b *PortAudioBackend) OpenCapture(cfg DeviceConfig) (CaptureDevice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	params, err := b.streamParameters(Capture, cfg)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, params.FramesPerBuffer*cfg.Params.Channels)
	stream, err := portaudio.OpenStream(params, samples)
	if err != nil {
		return nil, fmt.Errorf("open capture stream: %w", portAudioError(err))
	}

	return &portAudioCapture{stream: stream, samples: samples}, nil
}

func (b *PortAudioBackend) OpenPlayback(cfg DeviceConfig) (PlaybackDevice, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	params, err := b.streamParameters(Playback, cfg)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, params.FramesPerBuffer*cfg.Params.Channels)
	stream, err := portaudio.OpenStream(params, samples)
	if err != nil {
		return nil, fmt.Errorf("open playback stream: %w", portAudioError(err))
	}

	return &portAudioPlayback{stream: stream, samples: samples}, nil
}

func (b *PortAudioBackend) Devices(dir Direction) ([]DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", portAudioError(err))
	}

	defaultDevice, _ := defaultPortAudioDevice(dir)

	var devices []DeviceInfo
	for i, info := range infos {
		if dir == Capture && info.MaxInputChannels < 1 {
			continue
		}
		if dir == Playback && info.MaxOutputChannels < 1 {
			continue
		}
		devices = append(devices, DeviceInfo{
			ID:        strconv.Itoa(i),
			Name:      info.Name,
			IsDefault: defaultDevice != nil && info.Name == defaultDevice.Name,
		})
	}
	return devices, nil
}

func (b *PortAudioBackend) Close() error {
	return portaudio.Terminate()
}

func defaultPortAudioDevice(dir Direction) (*portaudio.DeviceInfo, error) {
	var (
		device *portaudio.DeviceInfo
		err    error
	)
	if dir == Capture {
		device, err = portaudio.DefaultInputDevice()
	} else {
		device, err = portaudio.DefaultOutputDevice()
	}
	if err != nil {
		return nil, fmt.Errorf("no default %s device: %w", dir, portAudioError(err))
	}
	return device, nil
}

func bufferLatency(cfg DeviceConfig) time.Duration {
	return time.Duration(int64(cfg.BufferSize) * int64(time.Second) / int64(cfg.Params.BytesPerSecond()))
}

// portAudioError sorts PortAudio errors into the device error classes.
func portAudioError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, portaudio.StreamIsStopped),
		errors.Is(err, portaudio.StreamIsNotStopped),
		errors.Is(err, portaudio.BadStreamPtr),
		errors.Is(err, portaudio.NotInitialized):
		return fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	case errors.Is(err, portaudio.InvalidSampleRate),
		errors.Is(err, portaudio.InvalidChannelCount),
		errors.Is(err, portaudio.SampleFormatNotSupported),
		errors.Is(err, portaudio.BufferTooSmall),
		errors.Is(err, portaudio.BufferTooBig):
		return fmt.Errorf("%w: %v", ErrBadValue, err)
	case errors.Is(err, portaudio.InvalidDevice),
		errors.Is(err, portaudio.DeviceUnavailable):
		return fmt.Errorf("%w: %v", ErrDeadObject, err)
	default:
		return err
	}
}

type portAudioCapture struct {
	stream  *portaudio.Stream
	samples []int16
}

func (c *portAudioCapture) Start() error {
	return portAudioError(c.stream.Start())
}

// Read captures one stream buffer and returns it as little-endian bytes.
func (c *portAudioCapture) Read(p []byte) (int, error) {
	if err := c.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return 0, portAudioError(err)
		}
		slog.Debug("capture input overflowed")
	}

	n := min(len(p), len(c.samples)*2) &^ 1
	for i := 0; i < n/2; i++ {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(c.samples[i]))
	}
	return n, nil
}

func (c *portAudioCapture) Stop() error {
	return portAudioError(c.stream.Stop())
}

func (c *portAudioCapture) Release() error {
	return portAudioError(c.stream.Close())
}

type portAudioPlayback struct {
	stream  *portaudio.Stream
	samples []int16
}

func (p *portAudioPlayback) Play() error {
	return portAudioError(p.stream.Start())
}

// Write sends one stream buffer. A short final chunk is padded with silence.
func (p *portAudioPlayback) Write(data []byte) (int, error) {
	if len(data) > len(p.samples)*2 {
		return 0, fmt.Errorf("%w: chunk of %d bytes exceeds stream buffer", ErrBadValue, len(data))
	}

	n := len(data) / 2
	for i := 0; i < n; i++ {
		p.samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	clear(p.samples[n:])

	if err := p.stream.Write(); err != nil {
		if !errors.Is(err, portaudio.OutputUnderflowed) {
			return 0, portAudioError(err)
		}
		slog.Debug("playback output underflowed")
	}
	return len(data), nil
}

func (p *portAudioPlayback) Stop() error {
	return portAudioError(p.stream.Stop())
}

func (p *portAudioPlayback) Release() error {
	return portAudioError(p.stream.Close())
}
