package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Encoder contains external encoder settings.
type Encoder struct {
	// FFmpegBinary overrides ffmpeg discovery. When empty, an ffmpeg placed
	// next to the mxf2proxy executable wins over the one on PATH.
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	// HardwareCodec is used for sources narrower than WidthThreshold. An
	// empty value forces the software path for every clip.
	HardwareCodec  string `toml:"hardware_codec"`
	WidthThreshold int    `toml:"width_threshold"`
	// FontFile is handed to drawtext for custom text watermarks.
	FontFile string `toml:"font_file"`
}

// Output contains the proxy container choice.
type Output struct {
	Format string `toml:"format"`
}

// LUT contains colour lookup table settings.
type LUT struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	File    string `toml:"file"`
}

// Watermark contains watermark settings.
type Watermark struct {
	Enabled    bool   `toml:"enabled"`
	Mode       string `toml:"mode"`
	CustomText string `toml:"custom_text"`
	Image      string `toml:"image"`
}

// Prompts configures how destination and duplicate questions are answered
// when no operator is attached to the terminal.
type Prompts struct {
	Duplicate      string `toml:"duplicate"`
	Destination    string `toml:"destination"`
	AnswerTimeout  int    `toml:"answer_timeout"`
	DestinationDir string `toml:"destination_dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	BatchComplete  bool   `toml:"batch_complete"`
	BatchAborted   bool   `toml:"batch_aborted"`
}

// Events configures the progress event publisher.
type Events struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Channel       string `toml:"channel"`
}

// API contains HTTP API settings beyond the bind address.
type API struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Watch configures camera card ingest.
type Watch struct {
	CardIngest bool     `toml:"card_ingest"`
	ClipDirs   []string `toml:"clip_dirs"`
	MountWait  int      `toml:"mount_wait"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mxf2proxy.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and API bind address
//   - Encoder: ffmpeg/ffprobe binaries and the hardware/software split
//   - Output, LUT, Watermark: defaults for the per-batch settings snapshot
//   - Prompts: non-interactive answers for destination and duplicate prompts
//   - Notifications: ntfy push notification settings
//   - Events: redis pub/sub progress events
//   - API: CORS origins for the HTTP API
//   - Watch: camera card ingest through udev
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Encoder       Encoder       `toml:"encoder"`
	Output        Output        `toml:"output"`
	LUT           LUT           `toml:"lut"`
	Watermark     Watermark     `toml:"watermark"`
	Prompts       Prompts       `toml:"prompts"`
	Notifications Notifications `toml:"notifications"`
	Events        Events        `toml:"events"`
	API           API           `toml:"api"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mxf2proxy.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.LUT.Enabled && strings.TrimSpace(c.LUT.Dir) != "" {
		if err := os.MkdirAll(c.LUT.Dir, 0o755); err != nil {
			return fmt.Errorf("create lut directory %q: %w", c.LUT.Dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the history/preferences database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "mxf2proxy.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "mxf2proxy.sock")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mxf2proxy.lock")
}

// LUTPath joins the configured LUT directory and file name. Returns "" when
// no file is configured.
func (c *Config) LUTPath() string {
	file := strings.TrimSpace(c.LUT.File)
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.LUT.Dir, file)
}

// FFprobeBinary returns the ffprobe executable used for width probing.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Encoder.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
