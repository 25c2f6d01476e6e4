//go:build !portaudio

package audio

import "fmt"

// PortAudio needs the system library, so it is only linked with the
// portaudio build tag.
const portAudioAvailable = false

// PortAudioBackend is unavailable in this build; NewPortAudioBackend always fails.
type PortAudioBackend struct {
	NullBackend
}

func NewPortAudioBackend() (*PortAudioBackend, error) {
	return nil, fmt.Errorf("%w: portaudio (rebuild with -tags portaudio)", ErrUnsupportedBackend)
}

func (b *PortAudioBackend) Type() BackendType {
	return BackendTypePortAudio
}
