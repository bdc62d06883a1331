// Package taskdeck composes the home route server from its collaborators.
package taskdeck

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/core"
	"pkt.systems/taskdeck/httpapi"
	"pkt.systems/taskdeck/internal/github"
	"pkt.systems/taskdeck/internal/persist"
)

// Server runs the HTTP surface and its background upkeep.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	HTTP      httpapi.Config
	GitHub    GitHubConfig
	State     StateConfig
	ImportTTL time.Duration
}

// GitHubConfig configures the GitHub API client and OAuth app.
type GitHubConfig struct {
	APIURL       string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
	UserAgent    string
}

// StateConfig selects the visitor state backend.
type StateConfig struct {
	Backend  string
	Path     string
	StateDir string
}

// ServerDeps captures optional dependencies. Nil fields are built from config.
type ServerDeps struct {
	State        core.StateStore
	Repositories core.RepositoryLister
	Users        core.UserResolver
	OAuth        interface {
		core.AuthURLBuilder
		httpapi.TokenExchanger
	}
	Failures   []core.FailureReporter
	HTTPClient *http.Client
	Logger     pslog.Logger
	// Listener overrides HTTP.Addr when set.
	Listener net.Listener
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP    bool
	sweepInterval time.Duration
	stateMaxAge   time.Duration
}

// WithHTTP enables the HTTP server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithUpkeep runs a periodic sweep of expired imports and, when the state
// backend supports it, prunes visitor state older than maxAge.
func WithUpkeep(interval, maxAge time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.sweepInterval = interval
		o.stateMaxAge = maxAge
	}
}

type statePruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// New constructs a composable taskdeck server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP {
		return nil, errors.New("no services enabled")
	}

	ownsState := false
	state := deps.State
	if state == nil {
		store, err := persist.Open(cfg.State.Backend, cfg.State.Path, cfg.State.StateDir, deps.Logger)
		if err != nil {
			return nil, err
		}
		state = store
		ownsState = true
	}
	closeOwned := func() {
		if ownsState {
			_ = state.Close()
		}
	}

	repos, users := deps.Repositories, deps.Users
	if repos == nil || users == nil {
		client, err := github.NewClient(github.Config{
			APIURL:    cfg.GitHub.APIURL,
			Timeout:   cfg.GitHub.Timeout,
			UserAgent: cfg.GitHub.UserAgent,
		}, deps.HTTPClient)
		if err != nil {
			closeOwned()
			return nil, err
		}
		if repos == nil {
			repos = client
		}
		if users == nil {
			users = client
		}
	}

	oauth := deps.OAuth
	if oauth == nil {
		oauth = github.NewOAuth(github.OAuthConfig{
			ClientSecret: cfg.GitHub.ClientSecret,
			AuthURL:      cfg.GitHub.AuthURL,
			TokenURL:     cfg.GitHub.TokenURL,
			Scopes:       cfg.GitHub.Scopes,
			BaseURL:      cfg.HTTP.BaseURL,
			BasePath:     cfg.HTTP.BasePath,
		}, deps.HTTPClient)
	}

	imports := core.NewImportRegistry(cfg.ImportTTL)
	httpSrv, err := httpapi.NewServer(cfg.HTTP, httpapi.Deps{
		HomeDeps: core.HomeDeps{
			Repositories: repos,
			Users:        users,
			OAuth:        oauth,
			State:        state,
			Imports:      imports,
			Failures:     fanoutFailures(deps.Failures...),
		},
		Tokens: oauth,
	})
	if err != nil {
		closeOwned()
		return nil, err
	}

	return &compositeServer{
		cfg:       cfg,
		options:   options,
		httpSrv:   httpSrv,
		listener:  deps.Listener,
		state:     state,
		ownsState: ownsState,
		imports:   imports,
	}, nil
}

type compositeServer struct {
	cfg       ServerConfig
	options   serverOptions
	httpSrv   *httpapi.Server
	listener  net.Listener
	state     core.StateStore
	ownsState bool
	imports   *core.ImportRegistry
	logger    pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	done    chan struct{}
	started bool
	stopped bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.done = make(chan struct{})
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_url", s.cfg.HTTP.BaseURL,
		"http_base_path", s.cfg.HTTP.BasePath,
		"app_mode", s.cfg.HTTP.Home.AppMode,
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		if s.listener != nil {
			err = httpapi.Serve(s.ctx, s.listener, s.httpSrv.Handler())
		} else {
			err = httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler())
		}
		if err != nil {
			log.Error("http server failed", "err", err)
			s.errCh <- err
		}
	}()
	if s.options.sweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.upkeep(s.ctx, s.options.sweepInterval)
		}()
	}
	go func() {
		wg.Wait()
		close(s.done)
	}()
	return nil
}

func (s *compositeServer) upkeep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runUpkeep(ctx)
		}
	}
}

func (s *compositeServer) runUpkeep(ctx context.Context) {
	log := pslog.Ctx(ctx)
	if swept := s.imports.Sweep(); swept > 0 {
		log.Debug("upkeep imports swept", "count", swept)
	}
	pruner, ok := s.state.(statePruner)
	if !ok || s.options.stateMaxAge <= 0 {
		return
	}
	removed, err := pruner.PruneBefore(ctx, time.Now().Add(-s.options.stateMaxAge))
	if err != nil {
		log.Warn("upkeep state prune failed", "err", err)
		return
	}
	if removed > 0 {
		log.Info("upkeep state pruned", "count", removed)
	}
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	stopped := s.stopped
	done := s.done
	log := s.logger
	s.stopped = true
	s.mu.Unlock()
	if !started || stopped {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
	}
	if s.ownsState && s.state != nil {
		if err := s.state.Close(); err != nil {
			log.Warn("server state close failed", "err", err)
		} else {
			log.Info("server state close ok")
		}
	}
	log.Info("server stopped")
	return nil
}
