package monitoring

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileOptions configures the rotating log file.
type LogFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultLogFileOptions returns the rotation policy used by tracksim.
func DefaultLogFileOptions(path string) LogFileOptions {
	return LogFileOptions{
		Path:       path,
		MaxSizeMB:  64,
		MaxBackups: 4,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// TeeStdLog sends the standard logger to stderr and to a rotating file.
// The returned closer flushes and closes the file; callers should restore
// log output before closing if logging continues afterwards.
func TeeStdLog(opts LogFileOptions) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, err
	}
	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, w))
	return w, nil
}
