// Package logs builds the process-wide slog logger from env.log.
package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"citas/config"
	"citas/internal/domain/constants"
	"citas/internal/errors"

	"go.uber.org/fx"
)

// accessCodeKey is the attribute holding a resumable access code.
const accessCodeKey = "accessCode"

// Params defines the parameters required for the logger
type Params struct {
	fx.In

	Config *config.Config
}

// New writes JSON lines to stdout, or text when env.log.pretty is set.
// Access codes resume a client's session, so outside local runs only their last group is logged.
func New(params Params) (*slog.Logger, error) {
	return newLogger(os.Stdout, params.Config)
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.Env.Log.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Env.Env != constants.EnvLocal {
		opts.ReplaceAttr = maskAccessCode
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg.Env.Log.Pretty {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if cfg.Env.ServiceName != "" {
		logger = logger.With(slog.String("service", cfg.Env.ServiceName))
	}

	return logger, nil
}

func maskAccessCode(_ []string, a slog.Attr) slog.Attr {
	if a.Key != accessCodeKey || a.Value.Kind() != slog.KindString {
		return a
	}
	code := a.Value.String()
	if idx := strings.LastIndexByte(code, '-'); idx >= 0 {
		return slog.String(a.Key, "EXM-****-****"+code[idx:])
	}

	return slog.String(a.Key, "****")
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
	}
}
