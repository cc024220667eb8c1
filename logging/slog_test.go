package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestParseLevel(t *testing.T) {
	is := is.New(t)
	is.Equal(ParseLevel("debug"), slog.LevelDebug)
	is.Equal(ParseLevel("info"), slog.LevelInfo)
	is.Equal(ParseLevel("warn"), slog.LevelWarn)
	is.Equal(ParseLevel("error"), slog.LevelError)
	is.Equal(ParseLevel("verbose"), slog.LevelError)
}

func TestNewWritesJSONAboveLevel(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	logger, err := New(Config{LogLevel: slog.LevelInfo, Output: &buf})
	is.NoErr(err)

	logger.Debug("hidden")
	logger.Info("inserted element", "element", 6)

	out := buf.String()
	is.True(!strings.Contains(out, "hidden"))
	is.True(strings.Contains(out, `"msg":"inserted element"`))
	is.True(strings.Contains(out, `"element":6`))
}
