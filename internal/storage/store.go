package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

// Extension of raw PCM recordings. The files carry no header.
const Extension = ".pcm"

var (
	ErrNotFound    = errors.New("recording not found")
	ErrInvalidName = errors.New("invalid recording name")
)

// Recording describes one stored recording
type Recording struct {
	Name      string        `json:"name" yaml:"name"`
	Path      string        `json:"path" yaml:"path"`
	Size      int64         `json:"size" yaml:"size"`
	SizeHuman string        `json:"size_human" yaml:"size_human"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	ModTime   time.Time     `json:"mod_time" yaml:"mod_time"`
}

// Store keeps one raw PCM file per recording in a single directory, named
// after the capture start time in Unix milliseconds.
type Store struct {
	fs     afero.Fs
	dir    string
	params audio.Params
}

func New(fs afero.Fs, dir string) *Store {
	return &Store{
		fs:     fs,
		dir:    dir,
		params: audio.DefaultParams(),
	}
}

// NewOS returns a Store on the local filesystem.
func NewOS(dir string) *Store {
	return New(afero.NewOsFs(), dir)
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Params is the sample format every recording in the store is written in.
func (s *Store) Params() audio.Params {
	return s.params
}

// Create opens a new, empty recording for writing.
func (s *Store) Create(startedAt time.Time) (string, io.WriteCloser, error) {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}

	name := strconv.FormatInt(startedAt.UnixMilli(), 10) + Extension
	f, err := s.fs.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create recording %s: %w", name, err)
	}
	return name, f, nil
}

func (s *Store) Open(name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) Stat(name string) (*Recording, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return s.recording(info), nil
}

// List returns all recordings, newest first.
func (s *Store) List() ([]Recording, error) {
	exists, err := afero.DirExists(s.fs, s.dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	files, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	var recordings []Recording
	for _, info := range files {
		if info.IsDir() || !strings.EqualFold(filepath.Ext(info.Name()), Extension) {
			continue
		}
		recordings = append(recordings, *s.recording(info))
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].StartedAt.After(recordings[j].StartedAt)
	})
	return recordings, nil
}

// Latest returns the most recent recording.
func (s *Store) Latest() (*Recording, error) {
	recordings, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(recordings) == 0 {
		return nil, ErrNotFound
	}
	return &recordings[0], nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *Store) recording(info fs.FileInfo) *Recording {
	return &Recording{
		Name:      info.Name(),
		Path:      filepath.Join(s.dir, info.Name()),
		Size:      info.Size(),
		SizeHuman: formatBytes(info.Size()),
		StartedAt: startedAt(info),
		Duration:  s.params.Duration(info.Size()),
		ModTime:   info.ModTime(),
	}
}

// startedAt reads the start time from the file name, falling back to the
// modification time for files named some other way.
func startedAt(info fs.FileInfo) time.Time {
	base := strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))
	millis, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return info.ModTime()
	}
	return time.UnixMilli(millis)
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
