package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/audiolibrelab/voicememo/internal/audio"
	"github.com/audiolibrelab/voicememo/internal/storage"
)

// WAVExtension is appended to exported recordings.
const WAVExtension = ".wav"

// wavPCM is the WAVE format tag for integer PCM.
const wavPCM = 1

type Exporter struct {
	store *storage.Store
	fs    afero.Fs
}

func New(store *storage.Store) *Exporter {
	return &Exporter{
		store: store,
		fs:    store.Fs(),
	}
}

// DefaultPath places the export next to the recording.
func DefaultPath(rec *storage.Recording) string {
	return strings.TrimSuffix(rec.Path, storage.Extension) + WAVExtension
}

// Export writes the named recording as a WAV file and returns its path. An
// empty outPath uses DefaultPath. The raw recording is left untouched.
func (e *Exporter) Export(name, outPath string) (path string, err error) {
	rec, err := e.store.Stat(name)
	if err != nil {
		return "", err
	}
	if outPath == "" {
		outPath = DefaultPath(rec)
	}
	if filepath.Clean(outPath) == filepath.Clean(rec.Path) {
		return "", fmt.Errorf("export would overwrite recording %s", rec.Name)
	}

	in, err := e.store.Open(name)
	if err != nil {
		return "", err
	}
	defer in.Close()

	if err := e.fs.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	out, err := e.fs.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer func() {
		err = multierr.Append(err, out.Close())
		if err != nil {
			e.fs.Remove(outPath)
		}
	}()

	params := e.store.Params()
	bitDepth := audio.FormatSize(params.Format) * 8
	encoder := wav.NewEncoder(out, params.SampleRate, bitDepth, params.Channels, wavPCM)

	samples, err := encode(encoder, in, params, bitDepth)
	if err != nil {
		return "", multierr.Append(fmt.Errorf("failed to encode %s: %w", rec.Name, err), encoder.Close())
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to finish %s: %w", outPath, err)
	}

	slog.Info("Exported recording", "recording", rec.Name, "file", outPath, "samples", samples)
	return outPath, nil
}

// encode streams little-endian 16-bit samples from r into the encoder one
// Fixed Buffer at a time. A trailing odd byte is dropped.
func encode(encoder *wav.Encoder, r io.Reader, params audio.Params, bitDepth int) (int, error) {
	chunk := audio.NewBuffer(audio.BufferSize).Bytes()
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: params.Channels,
			SampleRate:  params.SampleRate,
		},
		Data:           make([]int, 0, len(chunk)/2),
		SourceBitDepth: bitDepth,
	}

	total := 0
	for {
		n, err := io.ReadFull(r, chunk)
		if n >= 2 {
			buf.Data = buf.Data[:0]
			for i := 0; i+1 < n; i += 2 {
				buf.Data = append(buf.Data, int(int16(binary.LittleEndian.Uint16(chunk[i:]))))
			}
			if werr := encoder.Write(buf); werr != nil {
				return total, werr
			}
			total += len(buf.Data)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return total, nil
		default:
			return total, err
		}
	}
}
