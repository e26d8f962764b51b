package logsvc

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/trezcool/shule/core"
)

// NewRotatingWriter returns a writer to conf.Log.File, rotated by size.
func NewRotatingWriter(conf core.LogConfig) (*lumberjack.Logger, error) {
	if conf.File == "" {
		return nil, errors.New("log file path must not be empty")
	}

	if conf.MaxSizeMB <= 0 {
		conf.MaxSizeMB = 10
	}
	if conf.MaxFiles <= 0 {
		conf.MaxFiles = 5
	}

	if err := os.MkdirAll(filepath.Dir(conf.File), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating log directory")
	}

	return &lumberjack.Logger{
		Filename:   conf.File,
		MaxSize:    conf.MaxSizeMB,
		MaxBackups: conf.MaxFiles,
	}, nil
}

// New returns the app logger: stdout (and the rotating log file when configured), reporting to Rollbar outside debug.
// The returned closer flushes the log file.
func New(prefix string, conf *core.Config) (*RollbarLogger, io.Closer, error) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if conf.Log.File != "" {
		rw, err := NewRotatingWriter(conf.Log)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, rw)
		closer = rw
	}

	std := log.New(out, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && !conf.TestMode && conf.RollbarToken != "")
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewDiscardLogger returns a logger that prints nothing and reports nothing; used in tests.
func NewDiscardLogger() *RollbarLogger {
	logger := &RollbarLogger{std: log.New(io.Discard, "", 0), minimal: true}
	logger.Enable(false)
	return logger
}
