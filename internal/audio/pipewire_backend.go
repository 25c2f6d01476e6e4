package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// PipeWireBackend streams raw PCM through the pw-record and pw-play tools.
// Each device is one child process whose stdout or stdin carries the data.
type PipeWireBackend struct{}

// NewPipeWireBackend checks that the PipeWire tools are installed.
func NewPipeWireBackend() (*PipeWireBackend, error) {
	for _, tool := range []string{pwRecordTool, pwPlayTool} {
		if _, err := exec.LookPath(tool); err != nil {
			return nil, fmt.Errorf("%w: %s not found: %v", ErrDeadObject, tool, err)
		}
	}
	return &PipeWireBackend{}, nil
}

func (b *PipeWireBackend) Type() BackendType {
	return BackendTypePipeWire
}

// MinBufferSize is one graph quantum.
func (b *PipeWireBackend) MinBufferSize(_ Direction, params Params) (int, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	return pipewireQuantum * params.FrameSize(), nil
}

func (b *PipeWireBackend) OpenCapture(cfg DeviceConfig) (CaptureDevice, error) {
	cmd, err := pwCatCommand(pwRecordTool, cfg)
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create stdout pipe: %v", ErrDeadObject, err)
	}
	return &pipewireCapture{cmd: cmd, stdout: stdout}, nil
}

func (b *PipeWireBackend) OpenPlayback(cfg DeviceConfig) (PlaybackDevice, error) {
	cmd, err := pwCatCommand(pwPlayTool, cfg)
	if err != nil {
		return nil, err
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create stdin pipe: %v", ErrDeadObject, err)
	}
	return &pipewirePlayback{cmd: cmd, stdin: stdin}, nil
}

func pwCatCommand(tool string, cfg DeviceConfig) (*exec.Cmd, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	args, err := pwCatArgs(cfg)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(tool, args...)
	cmd.Env = pwCatEnv(cfg)
	cmd.Stderr = debugWriter{tool: tool}
	return cmd, nil
}

// Devices lists the graph nodes owning ports of the given direction. The
// streams themselves always go to the session manager's default node.
func (b *PipeWireBackend) Devices(dir Direction) ([]DeviceInfo, error) {
	ports, err := ListPorts(dir)
	if err != nil {
		return nil, err
	}

	nodes := portNodes(ports)
	devices := make([]DeviceInfo, 0, len(nodes))
	for i, node := range nodes {
		devices = append(devices, DeviceInfo{
			ID:   strconv.Itoa(i),
			Name: node,
		})
	}
	return devices, nil
}

func (b *PipeWireBackend) Close() error {
	return nil
}

type pipewireCapture struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	status deviceStatus
}

func (c *pipewireCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != statusInactive {
		return fmt.Errorf("%w: start capture in state %d", ErrInvalidOperation, c.status)
	}

	slog.Debug("Starting PipeWire capture", "command", c.cmd.String())
	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrDeadObject, pwRecordTool, err)
	}
	c.status = statusActive
	return nil
}

// Read blocks until p is filled from the capture stream.
func (c *pipewireCapture) Read(p []byte) (int, error) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if status != statusActive {
		return 0, fmt.Errorf("%w: read from inactive capture", ErrInvalidOperation)
	}

	n, err := io.ReadFull(c.stdout, p)
	if err != nil {
		return n, pipeError("read capture stream", err)
	}
	return n, nil
}

// Stop interrupts pw-record and discards what it flushes while exiting.
func (c *pipewireCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != statusActive {
		return nil
	}
	c.status = statusStopped

	if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to interrupt capture, killing", "error", err)
		c.cmd.Process.Kill()
	}

	drained := make(chan struct{})
	go func() {
		io.Copy(io.Discard, c.stdout)
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(pipewireStopTimeout):
		slog.Warn("Capture stream did not end within timeout, force killing")
		c.cmd.Process.Kill()
		<-drained
	}

	return waitProcess(c.cmd, pipewireStopTimeout)
}

func (c *pipewireCapture) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == statusReleased {
		return fmt.Errorf("%w: capture already released", ErrInvalidOperation)
	}
	if c.status == statusActive {
		c.cmd.Process.Kill()
		c.cmd.Wait()
	}
	c.status = statusReleased
	return nil
}

type pipewirePlayback struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	status deviceStatus
}

func (p *pipewirePlayback) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != statusInactive {
		return fmt.Errorf("%w: play in state %d", ErrInvalidOperation, p.status)
	}

	slog.Debug("Starting PipeWire playback", "command", p.cmd.String())
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrDeadObject, pwPlayTool, err)
	}
	p.status = statusActive
	return nil
}

func (p *pipewirePlayback) Write(data []byte) (int, error) {
	p.mu.Lock()
	status := p.status
	p.mu.Unlock()

	if status != statusActive {
		return 0, fmt.Errorf("%w: write to inactive playback", ErrInvalidOperation)
	}

	n, err := p.stdin.Write(data)
	if err != nil {
		return n, pipeError("write playback stream", err)
	}
	return n, nil
}

// Stop closes stdin so pw-play plays out what it holds, then waits for it.
func (p *pipewirePlayback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != statusActive {
		return nil
	}
	p.status = statusStopped

	if err := p.stdin.Close(); err != nil {
		slog.Debug("Failed to close playback stream", "error", err)
	}
	return waitProcess(p.cmd, pipewireStopTimeout)
}

func (p *pipewirePlayback) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == statusReleased {
		return fmt.Errorf("%w: playback already released", ErrInvalidOperation)
	}
	if p.status == statusActive {
		p.stdin.Close()
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	p.status = statusReleased
	return nil
}
