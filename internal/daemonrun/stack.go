package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mxf2proxy/internal/config"
	"mxf2proxy/internal/deps"
	"mxf2proxy/internal/events"
	"mxf2proxy/internal/history"
	"mxf2proxy/internal/logging"
	"mxf2proxy/internal/media/ffprobe"
	"mxf2proxy/internal/notifications"
	"mxf2proxy/internal/pipeline"
	"mxf2proxy/internal/prepass"
	"mxf2proxy/internal/prompt"
	"mxf2proxy/internal/runner"
	"mxf2proxy/internal/settings"
)

// Stack holds the collaborators a batch needs, independent of who answers
// prompts.
type Stack struct {
	Config       *config.Config
	Logger       *slog.Logger
	History      *history.Store
	Settings     *settings.Resolver
	Notifier     notifications.Service
	Publisher    events.Publisher
	Dependencies []deps.Status

	ffmpeg  string
	ffprobe string
	runner  *runner.Exec
	redis   *events.RedisPublisher
}

// NewStack opens the history store and wires every event sink the
// configuration enables. A redis server that cannot be reached is logged and
// skipped.
func NewStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	statuses := deps.Check(cfg)
	ffmpeg := deps.ResolveFFmpeg(cfg.Encoder.FFmpegBinary)
	if !ffmpeg.Available {
		logging.WarnWithContext(logger, "ffmpeg not found; clips will fail until it is installed", "ffmpeg_missing",
			logging.String("ffmpeg_binary", ffmpeg.Command),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set encoder.ffmpeg_binary"),
			logging.String(logging.FieldImpact, "every clip in a batch is reported as FAILED"),
		)
	}

	notifier := notifications.NewService(cfg)
	sinks := events.Fanout{
		events.NewLogPublisher(logger),
		history.NewRecorder(store, logger),
		notifications.NewPublisher(notifier, logger),
	}

	stack := &Stack{
		Config:       cfg,
		Logger:       logger,
		History:      store,
		Settings:     settings.NewResolver(cfg, store),
		Notifier:     notifier,
		Dependencies: statuses,
		ffmpeg:       ffmpeg.Command,
		ffprobe:      deps.ResolveFFprobe(cfg.Encoder.FFprobeBinary, ffmpeg.Command),
		runner:       runner.New(logger),
	}

	if cfg.Events.RedisAddr != "" {
		redisPub, err := events.NewRedisPublisher(ctx, events.RedisOptions{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
			Channel:  cfg.Events.Channel,
		}, logger)
		if err != nil {
			logging.WarnWithContext(logger, "redis events disabled", "redis_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check events.redis_addr and that redis is running"),
				logging.String(logging.FieldImpact, "remote dashboards will not receive progress"),
			)
		} else {
			stack.redis = redisPub
			sinks = append(sinks, redisPub)
		}
	}
	stack.Publisher = sinks
	return stack, nil
}

// Orchestrator builds a pipeline orchestrator that asks prompter for
// destination and duplicate decisions.
func (s *Stack) Orchestrator(prompter prompt.Prompter) *pipeline.Orchestrator {
	cfg := s.Config
	return pipeline.New(pipeline.Options{
		FFmpeg:         s.ffmpeg,
		HardwareCodec:  cfg.Encoder.HardwareCodec,
		WidthThreshold: cfg.Encoder.WidthThreshold,
		FontFile:       cfg.Encoder.FontFile,
	}, pipeline.Dependencies{
		Settings:  s.Settings,
		Prompter:  prompter,
		Runner:    s.runner,
		Prepass:   &prepass.FFmpeg{Binary: s.ffmpeg, Runner: s.runner, Logger: s.Logger},
		Prober:    ffprobe.Prober{Binary: s.ffprobe},
		Publisher: s.Publisher,
		Logger:    s.Logger,
	})
}

// FFmpeg returns the resolved ffmpeg binary.
func (s *Stack) FFmpeg() string {
	return s.ffmpeg
}

// Close releases the redis connection and the history store.
func (s *Stack) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.History != nil {
		errs = append(errs, s.History.Close())
	}
	return errors.Join(errs...)
}
