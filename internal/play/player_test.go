package play

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

func lookPathFor(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestFindAudioPlayer_Preference(t *testing.T) {
	tests := []struct {
		available []string
		want      string
	}{
		{[]string{"aplay", "mpv", "ffplay"}, "ffplay"},
		{[]string{"aplay", "mpv"}, "mpv"},
		{[]string{"aplay"}, "aplay"},
	}

	for _, tt := range tests {
		p := New(audio.DefaultParams())
		p.lookPath = lookPathFor(tt.available...)

		got, err := p.findAudioPlayer()
		if err != nil {
			t.Errorf("findAudioPlayer with %v returned error: %v", tt.available, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Expected %s with %v, got %s", tt.want, tt.available, got)
		}
	}
}

func TestPlay_NoPlayer(t *testing.T) {
	p := New(audio.DefaultParams())
	p.lookPath = lookPathFor()

	err := p.Play(context.Background(), "/memos/1.pcm")
	if err == nil || !strings.Contains(err.Error(), "no suitable audio player") {
		t.Errorf("Expected missing player error, got: %v", err)
	}
}

func TestArgs_DescribeRawStream(t *testing.T) {
	p := New(audio.DefaultParams())

	tests := []struct {
		player string
		want   string
	}{
		{"ffplay", "-nodisp -autoexit -loglevel error -f s16le -ar 44100 -ac 1 /memos/1.pcm"},
		{"mpv", "--no-video --demuxer=rawaudio --demuxer-rawaudio-format=s16le --demuxer-rawaudio-rate=44100 --demuxer-rawaudio-channels=1 /memos/1.pcm"},
		{"aplay", "-q -t raw -f S16_LE -r 44100 -c 1 /memos/1.pcm"},
	}

	for _, tt := range tests {
		args, err := p.args(tt.player, "/memos/1.pcm")
		if err != nil {
			t.Errorf("args(%s) returned error: %v", tt.player, err)
			continue
		}
		if got := strings.Join(args, " "); got != tt.want {
			t.Errorf("Expected %s args %q, got %q", tt.player, tt.want, got)
		}
	}

	if _, err := p.args("vlc", "/memos/1.pcm"); err == nil {
		t.Error("Expected error for unsupported player")
	}
}
