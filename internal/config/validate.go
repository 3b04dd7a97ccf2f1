package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWatermark(); err != nil {
		return err
	}
	if err := c.validatePrompts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case FormatMOV, FormatMXF:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatMOV, FormatMXF, c.Output.Format)
	}
	if c.LUT.Enabled && c.LUT.File == "" {
		return errors.New("lut.file must be set when lut.enabled is true")
	}
	return nil
}

func (c *Config) validateWatermark() error {
	switch c.Watermark.Mode {
	case WatermarkModeDefault:
		if c.Watermark.Enabled && c.Watermark.Image == "" {
			return errors.New("watermark.image must be set when the default watermark is enabled")
		}
	case WatermarkModeCustom:
		if err := ValidateCustomText(c.Watermark.CustomText); err != nil && c.Watermark.Enabled {
			return fmt.Errorf("watermark.custom_text: %w", err)
		}
	default:
		return fmt.Errorf("watermark.mode must be %q or %q, got %q", WatermarkModeDefault, WatermarkModeCustom, c.Watermark.Mode)
	}
	return nil
}

// ValidateCustomText checks a custom watermark text against the UI limits.
func ValidateCustomText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.New("custom text is empty")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxCustomTextLength {
		return fmt.Errorf("custom text is %d characters, limit is %d", n, MaxCustomTextLength)
	}
	return nil
}

func (c *Config) validatePrompts() error {
	switch c.Prompts.Duplicate {
	case DuplicateSkip, DuplicateOverwrite, DuplicateCancel:
	default:
		return fmt.Errorf("prompts.duplicate must be one of skip, overwrite, cancel; got %q", c.Prompts.Duplicate)
	}
	switch c.Prompts.Destination {
	case DestinationDefault:
	case DestinationFixed:
		if c.Prompts.DestinationDir == "" {
			return errors.New("prompts.destination_dir must be set when prompts.destination is \"fixed\"")
		}
	default:
		return fmt.Errorf("prompts.destination must be %q or %q, got %q", DestinationDefault, DestinationFixed, c.Prompts.Destination)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error; got %q", c.Logging.Level)
	}
	return nil
}
