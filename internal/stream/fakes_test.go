package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeCapture struct {
	t      *testing.T
	events *eventLog
	read   func(call int, p []byte) (int, error)

	calls    int
	starts   int
	stops    int
	releases atomic.Int32
}

func (d *fakeCapture) Start() error {
	d.starts++
	return nil
}

func (d *fakeCapture) Read(p []byte) (int, error) {
	d.calls++
	if d.read == nil {
		return len(p), nil
	}
	return d.read(d.calls, p)
}

func (d *fakeCapture) Stop() error {
	d.stops++
	return nil
}

func (d *fakeCapture) Release() error {
	if n := d.releases.Add(1); n > 1 {
		d.t.Errorf("Capture device released %d times", n)
	}
	d.events.add("capture release")
	return nil
}

type fakePlayback struct {
	t      *testing.T
	events *eventLog
	write  func(call int, p []byte) (int, error)

	calls    int
	written  bytes.Buffer
	plays    int
	stops    int
	releases atomic.Int32
}

func (d *fakePlayback) Play() error {
	d.plays++
	return nil
}

func (d *fakePlayback) Write(p []byte) (int, error) {
	d.calls++
	if d.write != nil {
		n, err := d.write(d.calls, p)
		if err != nil {
			return n, err
		}
	}
	d.written.Write(p)
	return len(p), nil
}

func (d *fakePlayback) Stop() error {
	d.stops++
	return nil
}

func (d *fakePlayback) Release() error {
	if n := d.releases.Add(1); n > 1 {
		d.t.Errorf("Playback device released %d times", n)
	}
	d.events.add("playback release")
	return nil
}

// fakeBackend hands out scripted devices and records the order of opens
// and releases.
type fakeBackend struct {
	t         *testing.T
	events    eventLog
	minBuffer int
	openErr   error

	mu        sync.Mutex
	configs   []audio.DeviceConfig
	captures  []*fakeCapture
	playbacks []*fakePlayback

	newCapture  func() *fakeCapture
	newPlayback func() *fakePlayback
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, minBuffer: 3528}
}

func (b *fakeBackend) Type() audio.BackendType {
	return audio.BackendTypeNull
}

func (b *fakeBackend) MinBufferSize(audio.Direction, audio.Params) (int, error) {
	return b.minBuffer, nil
}

func (b *fakeBackend) OpenCapture(cfg audio.DeviceConfig) (audio.CaptureDevice, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}

	d := &fakeCapture{}
	if b.newCapture != nil {
		d = b.newCapture()
	}
	d.t, d.events = b.t, &b.events

	b.mu.Lock()
	b.configs = append(b.configs, cfg)
	b.captures = append(b.captures, d)
	b.mu.Unlock()

	b.events.add("capture open")
	return d, nil
}

func (b *fakeBackend) OpenPlayback(cfg audio.DeviceConfig) (audio.PlaybackDevice, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}

	d := &fakePlayback{}
	if b.newPlayback != nil {
		d = b.newPlayback()
	}
	d.t, d.events = b.t, &b.events

	b.mu.Lock()
	b.configs = append(b.configs, cfg)
	b.playbacks = append(b.playbacks, d)
	b.mu.Unlock()

	b.events.add("playback open")
	return d, nil
}

func (b *fakeBackend) Devices(audio.Direction) ([]audio.DeviceInfo, error) {
	return nil, nil
}

func (b *fakeBackend) Close() error {
	return nil
}

type memFile struct {
	bytes.Buffer
	closed bool
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

type memReader struct {
	*bytes.Reader
	store *memStore
}

func (r *memReader) Close() error {
	r.store.readersClosed.Add(1)
	return nil
}

type memStore struct {
	mu            sync.Mutex
	files         map[string]*memFile
	createErr     error
	readersClosed atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string]*memFile)}
}

func (s *memStore) Create(startedAt time.Time) (string, io.WriteCloser, error) {
	if s.createErr != nil {
		return "", nil, s.createErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := strconv.FormatInt(startedAt.UnixMilli(), 10) + ".pcm"
	if _, ok := s.files[name]; ok {
		return "", nil, fmt.Errorf("%s: file exists", name)
	}
	f := &memFile{}
	s.files[name] = f
	return name, f, nil
}

func (s *memStore) Open(name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[name]
	if !ok {
		return nil, errors.New(name + ": not found")
	}
	return &memReader{Reader: bytes.NewReader(f.Bytes()), store: s}, nil
}

func (s *memStore) put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &memFile{closed: true}
	f.Write(data)
	s.files[name] = f
}

func (s *memStore) file(t *testing.T, name string) *memFile {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[name]
	if !ok {
		names := make([]string, 0, len(s.files))
		for n := range s.files {
			names = append(names, n)
		}
		sort.Strings(names)
		t.Fatalf("Expected recording %q, have %v", name, names)
	}
	return f
}

// notifications is only touched on the test goroutine, through Mailbox.Drain.
type notifications struct {
	succeeded       []int
	recordingFailed int
	playbackFailed  int
	tooShort        []time.Duration
}

func (n *notifications) OnRecordingSucceeded(seconds int) {
	n.succeeded = append(n.succeeded, seconds)
}

func (n *notifications) OnRecordingFailed() {
	n.recordingFailed++
}

func (n *notifications) OnPlaybackFailed() {
	n.playbackFailed++
}

func (n *notifications) OnRecordingTooShort(elapsed time.Duration) {
	n.tooShort = append(n.tooShort, elapsed)
}

type harness struct {
	engine  *Engine
	backend *fakeBackend
	store   *memStore
	clock   *fakeClock
	mailbox *Mailbox
	notes   *notifications
}

func newHarness(t *testing.T, backend *fakeBackend, configure ...func(*Options)) *harness {
	t.Helper()

	h := &harness{
		backend: backend,
		store:   newMemStore(),
		clock:   newFakeClock(),
		mailbox: NewMailbox(),
		notes:   &notifications{},
	}

	opts := Options{
		Backend:    backend,
		Store:      h.store,
		Notifier:   h.notes,
		Dispatcher: h.mailbox,
		Clock:      h.clock.Now,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	engine, err := New(opts)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(engine.Close)

	h.engine = engine
	return h
}

// settle waits for the worker to go idle and applies posted notifications.
func (h *harness) settle(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.engine.Sync(ctx); err != nil {
		t.Fatalf("Worker did not settle: %v", err)
	}
	h.mailbox.Drain()
}

func (h *harness) recordingName() string {
	return strconv.FormatInt(h.clock.Now().UnixMilli(), 10) + ".pcm"
}
