package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

const (
	pwRecordTool = "pw-record"
	pwPlayTool   = "pw-play"
	pwLinkTool   = "pw-link"

	// pipewireQuantum is the node latency, in frames, requested from the graph.
	pipewireQuantum = 256

	// Upper bound for a pw-cat process to flush and exit after stop.
	pipewireStopTimeout = 5 * time.Second
)

// ListPorts returns the PipeWire ports of one direction. Capture reads from
// output ports and playback writes to input ports.
func ListPorts(dir Direction) ([]string, error) {
	flag := "-o"
	if dir == Playback {
		flag = "-i"
	}

	output, err := exec.Command(pwLinkTool, flag).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list PipeWire ports: %w", err)
	}
	return parsePorts(string(output)), nil
}

// parsePorts extracts port names from pw-link listing output.
func parsePorts(output string) []string {
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Input ports:") || strings.HasPrefix(line, "Output ports:") {
			continue
		}
		ports = append(ports, line)
	}
	return ports
}

// portNodes groups ports by the node that owns them. Monitor ports are
// skipped since they mirror a sink rather than being a device of their own.
func portNodes(ports []string) []string {
	seen := make(map[string]bool)
	var nodes []string
	for _, port := range ports {
		node, name, ok := strings.Cut(port, ":")
		if !ok || node == "" {
			continue
		}
		if strings.HasPrefix(name, "monitor_") {
			continue
		}
		if !seen[node] {
			seen[node] = true
			nodes = append(nodes, node)
		}
	}
	sort.Strings(nodes)
	return nodes
}

// pwFormat names a sample format the way pw-cat expects it.
func pwFormat(format FormatType) (string, error) {
	switch format {
	case FormatU8:
		return "u8", nil
	case FormatS16:
		return "s16", nil
	case FormatS24:
		return "s24", nil
	case FormatS32:
		return "s32", nil
	case FormatF32:
		return "f32", nil
	default:
		return "", fmt.Errorf("%w: no pipewire format for %s", ErrBadValue, format)
	}
}

// pwCatArgs builds the argument list for pw-record or pw-play streaming raw
// PCM through stdout or stdin.
func pwCatArgs(cfg DeviceConfig) ([]string, error) {
	format, err := pwFormat(cfg.Params.Format)
	if err != nil {
		return nil, err
	}
	return []string{
		"--raw",
		"--rate", fmt.Sprintf("%d", cfg.Params.SampleRate),
		"--channels", fmt.Sprintf("%d", cfg.Params.Channels),
		"--format", format,
		"-",
	}, nil
}

// pwCatEnv sets the graph quantum and latency for one stream.
func pwCatEnv(cfg DeviceConfig) []string {
	frames := cfg.BufferSize / cfg.Params.FrameSize()
	env := os.Environ()
	env = append(env, fmt.Sprintf("PIPEWIRE_QUANTUM=%d/%d", pipewireQuantum, cfg.Params.SampleRate))
	env = append(env, fmt.Sprintf("PIPEWIRE_LATENCY=%d/%d", frames, cfg.Params.SampleRate))
	return env
}

// debugWriter logs process stderr at debug level.
type debugWriter struct {
	tool string
}

func (w debugWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line != "" {
			slog.Debug("PipeWire tool output", "tool", w.tool, "line", line)
		}
	}
	return len(p), nil
}

// waitProcess waits for cmd to exit, killing it after timeout. An exit
// caused by our own interrupt counts as success.
func waitProcess(cmd *exec.Cmd, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err == nil || interruptedExit(err) {
			return nil
		}
		return fmt.Errorf("%s exited: %w", cmd.Path, err)

	case <-time.After(timeout):
		slog.Warn("PipeWire tool did not exit within timeout, force killing", "tool", cmd.Path)
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
		return nil
	}
}

func interruptedExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 255 {
		return true
	}
	if exitErr.ProcessState != nil {
		state := exitErr.ProcessState.String()
		return state == "signal: interrupt" || state == "signal: killed"
	}
	return false
}

// pipeError sorts pipe failures into the device error classes. A closed
// pipe means the tool went away underneath us.
func pipeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, os.ErrClosed):
		return fmt.Errorf("%w: %s: %v", ErrDeadObject, op, err)
	default:
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return fmt.Errorf("%w: %s: %v", ErrDeadObject, op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
}
