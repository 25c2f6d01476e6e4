package play

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

// Players that can read headerless PCM, in order of preference.
var players = []string{"ffplay", "mpv", "aplay"}

// Player hands a recording to an external media player instead of the
// audio backend.
type Player struct {
	params   audio.Params
	lookPath func(string) (string, error)
}

func New(params audio.Params) *Player {
	return &Player{
		params:   params,
		lookPath: exec.LookPath,
	}
}

// Play runs the first available player on path and waits for it to exit.
// Cancelling ctx kills the player.
func (p *Player) Play(ctx context.Context, path string) error {
	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	args, err := p.args(player, path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, player, args...)
	slog.Debug("Running external player", "command", strings.Join(cmd.Args, " "))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}
	return nil
}

// args describes the raw stream to each player, since the files carry no
// header.
func (p *Player) args(player, path string) ([]string, error) {
	rate := strconv.Itoa(p.params.SampleRate)
	channels := strconv.Itoa(p.params.Channels)

	switch player {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "error",
			"-f", p.params.Format.String(), "-ar", rate, "-ac", channels, path}, nil
	case "mpv":
		return []string{"--no-video", "--demuxer=rawaudio",
			"--demuxer-rawaudio-format=" + p.params.Format.String(),
			"--demuxer-rawaudio-rate=" + rate,
			"--demuxer-rawaudio-channels=" + channels, path}, nil
	case "aplay":
		if p.params.Format != audio.FormatS16 {
			return nil, fmt.Errorf("aplay does not support format %s", p.params.Format)
		}
		return []string{"-q", "-t", "raw", "-f", "S16_LE", "-r", rate, "-c", channels, path}, nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}

func (p *Player) findAudioPlayer() (string, error) {
	for _, player := range players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}
