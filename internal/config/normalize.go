package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEncoder(); err != nil {
		return err
	}
	if err := c.normalizeEnhancements(); err != nil {
		return err
	}
	if err := c.normalizePrompts(); err != nil {
		return err
	}
	c.normalizeIntegrations()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MXF2PROXY_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEncoder() error {
	var err error
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		if value, ok := os.LookupEnv("MXF2PROXY_FFMPEG"); ok {
			c.Encoder.FFmpegBinary = strings.TrimSpace(value)
		}
	}
	if strings.ContainsRune(c.Encoder.FFmpegBinary, os.PathSeparator) {
		if c.Encoder.FFmpegBinary, err = expandPath(c.Encoder.FFmpegBinary); err != nil {
			return fmt.Errorf("encoder.ffmpeg_binary: %w", err)
		}
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	c.Encoder.HardwareCodec = strings.TrimSpace(c.Encoder.HardwareCodec)
	if c.Encoder.WidthThreshold <= 0 {
		c.Encoder.WidthThreshold = defaultWidthThreshold
	}
	if font := strings.TrimSpace(c.Encoder.FontFile); font != "" {
		if c.Encoder.FontFile, err = expandPath(font); err != nil {
			return fmt.Errorf("encoder.font_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeEnhancements() error {
	var err error
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	if strings.TrimSpace(c.LUT.Dir) == "" {
		c.LUT.Dir = defaultLUTDir
	}
	if c.LUT.Dir, err = expandPath(c.LUT.Dir); err != nil {
		return fmt.Errorf("lut.dir: %w", err)
	}
	c.LUT.File = strings.TrimSpace(c.LUT.File)
	c.Watermark.Mode = strings.ToLower(strings.TrimSpace(c.Watermark.Mode))
	if c.Watermark.Mode == "" {
		c.Watermark.Mode = defaultWatermarkMode
	}
	if image := strings.TrimSpace(c.Watermark.Image); image != "" {
		if c.Watermark.Image, err = expandPath(image); err != nil {
			return fmt.Errorf("watermark.image: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePrompts() error {
	c.Prompts.Duplicate = strings.ToLower(strings.TrimSpace(c.Prompts.Duplicate))
	if c.Prompts.Duplicate == "" {
		c.Prompts.Duplicate = defaultDuplicatePolicy
	}
	c.Prompts.Destination = strings.ToLower(strings.TrimSpace(c.Prompts.Destination))
	if c.Prompts.Destination == "" {
		c.Prompts.Destination = defaultDestinationPolicy
	}
	if c.Prompts.AnswerTimeout < 0 {
		c.Prompts.AnswerTimeout = 0
	}
	if dir := strings.TrimSpace(c.Prompts.DestinationDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("prompts.destination_dir: %w", err)
		}
		c.Prompts.DestinationDir = expanded
	}
	return nil
}

func (c *Config) normalizeIntegrations() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Events.RedisAddr = strings.TrimSpace(c.Events.RedisAddr)
	c.Events.Channel = strings.TrimSpace(c.Events.Channel)
	if c.Events.Channel == "" {
		c.Events.Channel = defaultEventsChannel
	}
	origins := c.API.AllowedOrigins[:0]
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
	dirs := c.Watch.ClipDirs[:0]
	for _, dir := range c.Watch.ClipDirs {
		if trimmed := strings.Trim(strings.TrimSpace(dir), "/"); trimmed != "" {
			dirs = append(dirs, trimmed)
		}
	}
	c.Watch.ClipDirs = dirs
	if c.Watch.MountWait <= 0 {
		c.Watch.MountWait = defaultMountWait
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
