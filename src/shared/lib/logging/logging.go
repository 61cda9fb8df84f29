package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/cockroachdb/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level string
	// FilePath enables a rotated log file next to stderr when set.
	FilePath string
}

// Setup installs the apex text handler as the process-wide log handler.
// The returned closer releases the log file, if any.
func Setup(config Config) (io.Closer, error) {
	level := log.InfoLevel
	if config.Level != "" {
		parsed, err := log.ParseLevel(config.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid log level %q", config.Level)
		}
		level = parsed
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, errors.Wrap(err, "Failed to create log directory")
		}

		rotated := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		out = io.MultiWriter(os.Stderr, rotated)
		closer = rotated
	}

	log.SetHandler(text.New(out))
	log.SetLevel(level)

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
