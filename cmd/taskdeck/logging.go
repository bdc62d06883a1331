package main

import (
	"io"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/internal/appconfig"
	"pkt.systems/taskdeck/internal/logx"
)

func newLogger(w io.Writer) pslog.Logger {
	return pslog.LoggerFromEnv(
		pslog.WithEnvWriter(w),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
}

// fileLogger returns a logger that also writes to the configured rotating
// log file. The closer is a no-op when no file is configured.
func fileLogger(stderr io.Writer, cfg appconfig.LoggingConfig) (pslog.Logger, io.Closer, error) {
	writer, closer, err := logx.Tee(stderr, logx.FileConfig{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, nil, err
	}
	return newLogger(writer), closer, nil
}
