package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voicememo/internal/audio"
)

// EnvPrefix prefixes environment overrides, e.g. VOICEMEMO_AUDIO_BACKEND.
const EnvPrefix = "VOICEMEMO"

type Config struct {
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Worker    WorkerConfig    `mapstructure:"worker" yaml:"worker"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`

	// File the configuration was read from, empty when only defaults apply.
	File string `mapstructure:"-" yaml:"-"`
}

type AudioConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`         // "auto", "malgo", "portaudio", "pipewire", "null"
	BufferSize int    `mapstructure:"buffer_size" yaml:"buffer_size"` // bytes per transfer
}

type RecordingConfig struct {
	Directory   string        `mapstructure:"directory" yaml:"directory"`
	MinDuration time.Duration `mapstructure:"min_duration" yaml:"min_duration"`
}

// MarshalYAML writes min_duration as a duration string such as "3s".
func (r RecordingConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Directory   string `yaml:"directory"`
		MinDuration string `yaml:"min_duration"`
	}{
		Directory:   r.Directory,
		MinDuration: r.MinDuration.String(),
	}, nil
}

type WorkerConfig struct {
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "none", "error", "warn", "info", "debug"
	File  string `mapstructure:"file" yaml:"file"`
}

var logLevels = []string{"none", "error", "warn", "info", "debug"}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Backend:    string(audio.BackendTypeAuto),
			BufferSize: audio.BufferSize,
		},
		Recording: RecordingConfig{
			Directory:   filepath.Join("~", "Audio", "VoiceMemo"),
			MinDuration: 3 * time.Second,
		},
		Worker: WorkerConfig{
			QueueSize: 8,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath is $HOME/.config/voicememo.yaml.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "voicememo.yaml"
	}
	return filepath.Join(homeDir, ".config", "voicememo.yaml")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.buffer_size", d.Audio.BufferSize)
	v.SetDefault("recording.directory", d.Recording.Directory)
	v.SetDefault("recording.min_duration", d.Recording.MinDuration)
	v.SetDefault("worker.queue_size", d.Worker.QueueSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Load reads configFile, applies environment overrides and validates the
// result. With an empty configFile the default path is tried and a missing
// file leaves the defaults in place.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		configFile = DefaultPath()
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	used := configFile
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		used = ""
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = used
	cfg.Recording.Directory = ExpandPath(cfg.Recording.Directory)
	cfg.Log.File = ExpandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := audio.ValidateBackend(c.Audio.Backend); err != nil {
		return err
	}
	if c.Audio.BufferSize <= 0 || c.Audio.BufferSize%audio.DefaultParams().FrameSize() != 0 {
		return fmt.Errorf("audio.buffer_size %d must be a positive multiple of %d", c.Audio.BufferSize, audio.DefaultParams().FrameSize())
	}
	if c.Recording.Directory == "" {
		return fmt.Errorf("recording.directory is required")
	}
	if c.Recording.MinDuration < 0 {
		return fmt.Errorf("recording.min_duration %s must not be negative", c.Recording.MinDuration)
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker.queue_size %d must be positive", c.Worker.QueueSize)
	}
	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level %q must be one of %s", c.Log.Level, strings.Join(logLevels, ", "))
	}
	return nil
}

// YAML renders the configuration as it would be written to a file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration to configFile, creating its directory.
func (c *Config) Save(configFile string) error {
	data, err := c.YAML()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range logLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

// ExpandPath replaces a leading "~" with the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
