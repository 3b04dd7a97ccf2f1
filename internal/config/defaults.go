package config

const (
	defaultConfigPath          = "~/.config/mxf2proxy/config.toml"
	defaultStateDir            = "~/.local/share/mxf2proxy"
	defaultLogDir              = "~/.local/share/mxf2proxy/logs"
	defaultLUTDir              = "~/.local/share/mxf2proxy/luts"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultWidthThreshold      = 4096
	defaultHardwareCodec       = "h264_nvenc"
	defaultWatermarkMode       = WatermarkModeDefault
	defaultDuplicatePolicy     = DuplicateSkip
	defaultDestinationPolicy   = DestinationDefault
	defaultAnswerTimeout       = 300
	defaultNotifyTimeout       = 10
	defaultEventsChannel       = "mxf2proxy:events"
	defaultMountWait           = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultOutputFormat        = FormatMOV
	maxCustomWatermarkTextRune = 48
)

// Output format values.
const (
	FormatMOV = "mov"
	FormatMXF = "mxf"
)

// Watermark mode values.
const (
	WatermarkModeDefault = "default"
	WatermarkModeCustom  = "custom"
)

// Duplicate policies answer collisions when nobody is attached to a prompt.
const (
	DuplicateSkip      = "skip"
	DuplicateOverwrite = "overwrite"
	DuplicateCancel    = "cancel"
)

// Destination policies answer the destination question non-interactively.
const (
	DestinationDefault = "default"
	DestinationFixed   = "fixed"
)

// MaxCustomTextLength is the longest custom watermark text accepted by the
// CLI and API surfaces.
const MaxCustomTextLength = maxCustomWatermarkTextRune

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Encoder: Encoder{
			HardwareCodec:  defaultHardwareCodec,
			WidthThreshold: defaultWidthThreshold,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		LUT: LUT{
			Dir: defaultLUTDir,
		},
		Watermark: Watermark{
			Mode: defaultWatermarkMode,
		},
		Prompts: Prompts{
			Duplicate:     defaultDuplicatePolicy,
			Destination:   defaultDestinationPolicy,
			AnswerTimeout: defaultAnswerTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			BatchComplete:  true,
			BatchAborted:   true,
		},
		Events: Events{
			Channel: defaultEventsChannel,
		},
		Watch: Watch{
			ClipDirs:  []string{"CONTENTS/CLIP", "XDROOT/Clip", "PRIVATE/XDROOT/Clip"},
			MountWait: defaultMountWait,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
