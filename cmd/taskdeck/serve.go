package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck"
	"pkt.systems/taskdeck/core"
	"pkt.systems/taskdeck/httpapi"
	"pkt.systems/taskdeck/internal/appconfig"
	"pkt.systems/taskdeck/internal/telemetry"
	"pkt.systems/taskdeck/internal/version"
)

const (
	stopTimeout    = 10 * time.Second
	upkeepInterval = time.Minute
	stateMaxAge    = 30 * 24 * time.Hour
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the taskdeck HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			if cfg.Logging.File != "" {
				fileLog, closer, err := fileLogger(os.Stderr, cfg.Logging)
				if err != nil {
					return err
				}
				defer func() { _ = closer.Close() }()
				logger = fileLog
				ctx = pslog.ContextWithLogger(ctx, logger)
				logger.Info("log file enabled", "path", cfg.Logging.File)
			}

			reporter, err := telemetry.New(telemetry.Config{
				DSN:         cfg.Sentry.DSN,
				Environment: cfg.Sentry.Environment,
				Release:     version.Current(),
			})
			if err != nil {
				return err
			}
			defer reporter.Flush(2 * time.Second)
			logger.Info("failure reporting", "sentry", reporter.Enabled())

			server, err := taskdeck.New(toServerConfig(cfg), taskdeck.ServerDeps{
				Failures: []core.FailureReporter{reporter},
				Logger:   logger,
			}, taskdeck.WithHTTP(), taskdeck.WithUpkeep(upkeepInterval, stateMaxAge))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := server.Start(ctx); err != nil {
				return err
			}

			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(server.Wait)
			group.Go(func() error {
				<-groupCtx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("server stop failed", "err", err)
					return err
				}
				return nil
			})
			return group.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "override http.addr")
	return cmd
}

func toServerConfig(cfg appconfig.Config) taskdeck.ServerConfig {
	return taskdeck.ServerConfig{
		HTTP: httpapi.Config{
			Addr:          cfg.HTTP.Addr,
			BaseURL:       cfg.HTTP.BaseURL,
			BasePath:      cfg.HTTP.BasePath,
			VisitorCookie: cfg.HTTP.VisitorCookie,
			MaxUploadMB:   cfg.HTTP.MaxUploadMB,
			Home:          cfg.HomeConfig(),
		},
		GitHub: taskdeck.GitHubConfig{
			APIURL:       cfg.GitHub.APIURL,
			ClientSecret: cfg.GitHub.ClientSecret,
			AuthURL:      cfg.GitHub.AuthURL,
			TokenURL:     cfg.GitHub.TokenURL,
			Scopes:       cfg.GitHub.Scopes,
			Timeout:      time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
			UserAgent:    "taskdeck/" + version.Current(),
		},
		State: taskdeck.StateConfig{
			Backend:  cfg.State.Backend,
			Path:     cfg.State.Path,
			StateDir: cfg.StateDir,
		},
		ImportTTL: time.Duration(cfg.HTTP.ImportTTLMinutes) * time.Minute,
	}
}
