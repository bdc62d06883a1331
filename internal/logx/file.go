package logx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// OpenFile returns a rotating writer for cfg.Path.
func OpenFile(cfg FileConfig) (io.WriteCloser, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("log file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

// Tee writes log output to stderr and, when configured, to the rotating file.
// The returned closer must be closed on shutdown.
func Tee(stderr io.Writer, cfg FileConfig) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return stderr, nopCloser{}, nil
	}
	file, err := OpenFile(cfg)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(stderr, file), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
