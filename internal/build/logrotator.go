package build

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultMaxLogFiles is the number of rotated log files kept on disk.
	DefaultMaxLogFiles = 5

	// DefaultMaxLogFileSize is the log file size in MB that triggers
	// rotation.
	DefaultMaxLogFileSize = 10

	// DefaultLogFilename is the log file name inside the log directory.
	DefaultLogFilename = "lexdesk.log"
)

// LogFileConfig selects the rotating log file.
type LogFileConfig struct {
	// Dir is the directory the log file is written to.
	Dir string

	// MaxFiles is the number of rotated files to keep. Zero keeps a
	// single file that grows without bound.
	MaxFiles int

	// MaxFileSize is the rotation threshold in megabytes.
	MaxFileSize int

	// Filename overrides DefaultLogFilename.
	Filename string
}

// RotatingLogWriter feeds log output through a pipe into a jrick/logrotate
// rotator. Rotated files are gzip compressed.
type RotatingLogWriter struct {
	pipe *io.PipeWriter

	// done is closed once the rotator goroutine has drained the pipe.
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// OpenRotatingLogWriter creates the log directory and starts the rotator.
func OpenRotatingLogWriter(cfg LogFileConfig) (*RotatingLogWriter, error) {
	if cfg.Filename == "" {
		cfg.Filename = DefaultLogFilename
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxLogFileSize
	}

	logFile := filepath.Join(cfg.Dir, cfg.Filename)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// The rotator takes its threshold in kilobytes.
	rot, err := rotator.New(
		logFile, int64(cfg.MaxFileSize*1024), false, cfg.MaxFiles,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create file rotator: %w", err)
	}
	rot.SetCompressor(gzip.NewWriter(nil), ".gz")

	pr, pw := io.Pipe()
	w := &RotatingLogWriter{
		pipe: pw,
		done: make(chan struct{}),
	}

	go func() {
		defer close(w.done)

		// The rotator is the log destination, so its own failures can
		// only go to stderr.
		if err := rot.Run(pr); err != nil {
			_, _ = fmt.Fprintf(
				os.Stderr, "failed to run file rotator: %v\n",
				err,
			)
		}
	}()

	return w, nil
}

// Write implements io.Writer.
func (w *RotatingLogWriter) Write(b []byte) (int, error) {
	return w.pipe.Write(b)
}

// Close ends the pipe and waits until the rotator has written everything
// to disk.
func (w *RotatingLogWriter) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.pipe.Close()
		<-w.done
	})

	return w.closeErr
}

// nopCloser is returned when there is no log file to close.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }
