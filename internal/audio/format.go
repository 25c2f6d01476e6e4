package audio

import (
	"fmt"
	"time"
)

// FormatType follows the sample format numbering used by the device layers
type FormatType uint8

const (
	FormatUnknown FormatType = iota
	FormatU8
	FormatS16
	FormatS24
	FormatS32
	FormatF32
)

const (
	// SampleRate is the most broadly supported capture rate.
	SampleRate = 44100
	Channels   = 1

	// BufferSize is the Fixed Buffer capacity in bytes. It bounds memory use
	// per transfer while keeping the number of device calls per second low.
	BufferSize = 2048
)

func FormatSize(format FormatType) int {
	if format < 4 {
		return int(format)
	}
	return 4
}

func (f FormatType) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16le"
	case FormatS24:
		return "s24le"
	case FormatS32:
		return "s32le"
	case FormatF32:
		return "f32le"
	default:
		return "unknown"
	}
}

// Params describes the PCM stream a device is opened with.
type Params struct {
	SampleRate int
	Channels   int
	Format     FormatType
}

// DefaultParams returns mono, 16-bit linear PCM at 44.1 kHz.
func DefaultParams() Params {
	return Params{
		SampleRate: SampleRate,
		Channels:   Channels,
		Format:     FormatS16,
	}
}

// FrameSize is the number of bytes in one interleaved frame.
func (p Params) FrameSize() int {
	return p.Channels * FormatSize(p.Format)
}

// BytesPerSecond is the data rate of the stream.
func (p Params) BytesPerSecond() int {
	return p.SampleRate * p.FrameSize()
}

// Duration converts a byte count of raw PCM into playing time.
func (p Params) Duration(bytes int64) time.Duration {
	bps := int64(p.BytesPerSecond())
	if bps <= 0 {
		return 0
	}
	return time.Duration(bytes * int64(time.Second) / bps)
}

// Validate rejects anything other than the single supported stream layout.
// Sample rate, channel count and encoding are not negotiated.
func (p Params) Validate() error {
	if p.SampleRate != SampleRate {
		return fmt.Errorf("%w: sample rate %d (only %d is supported)", ErrBadValue, p.SampleRate, SampleRate)
	}
	if p.Channels != Channels {
		return fmt.Errorf("%w: %d channels (only mono is supported)", ErrBadValue, p.Channels)
	}
	if p.Format != FormatS16 {
		return fmt.Errorf("%w: format %s (only s16le is supported)", ErrBadValue, p.Format)
	}
	return nil
}

// DeviceBufferSize sizes a device buffer so that it satisfies the device
// minimum and is never smaller than one transfer.
func DeviceBufferSize(deviceMinimum, capacity int) int {
	return max(deviceMinimum, capacity)
}

// DeviceConfig is what a backend needs to open a capture or playback device.
type DeviceConfig struct {
	Params Params

	// BufferSize is the device side buffer in bytes.
	BufferSize int

	// ChunkSize is the number of bytes moved by one Read or Write call.
	ChunkSize int
}

func (c DeviceConfig) validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	frame := c.Params.FrameSize()
	if c.ChunkSize <= 0 || c.ChunkSize%frame != 0 {
		return fmt.Errorf("%w: chunk size %d is not a positive multiple of %d", ErrBadValue, c.ChunkSize, frame)
	}
	if c.BufferSize < c.ChunkSize {
		return fmt.Errorf("%w: device buffer %d smaller than chunk %d", ErrBadValue, c.BufferSize, c.ChunkSize)
	}
	return nil
}
