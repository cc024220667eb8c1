// Package logging configures the default slog logger: JSON lines to a writer,
// fanned out to Sentry for warnings and errors when a DSN is configured.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/amirrezaask/randomset/errors"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

type Config struct {
	LogLevel     slog.Level
	Output       io.Writer
	SentryConfig sentry.ClientOptions
}

func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError
	}
}

// New builds a logger from c. Sentry is only initialized when both the DSN and
// the environment are set.
func New(c Config) (*slog.Logger, error) {
	if c.Output == nil {
		c.Output = os.Stdout
	}
	handlers := []slog.Handler{
		slog.NewJSONHandler(c.Output, &slog.HandlerOptions{
			Level:     c.LogLevel,
			AddSource: true,
		}),
	}

	if c.SentryConfig.Dsn != "" && c.SentryConfig.Environment != "" {
		if err := sentry.Init(c.SentryConfig); err != nil {
			return nil, errors.Wrap(err, "cannot initialize sentry")
		}
		handlers = append(handlers, slogsentry.Option{
			Level:     slog.LevelWarn,
			AddSource: true,
		}.NewSentryHandler())
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// Init installs the logger built from c as the slog default.
func Init(c Config) error {
	logger, err := New(c)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
