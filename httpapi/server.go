package httpapi

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/core"
	"pkt.systems/taskdeck/schema"
)

// TokenExchanger trades an OAuth authorization code for a GitHub access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, clientID, code string, requestURL *url.URL) (string, error)
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	core.HomeDeps
	Tokens TokenExchanger
}

const healthTimeout = 2 * time.Second

// Server serves the home route, its form targets, and the app stub.
type Server struct {
	cfg       Config
	home      schema.HomeConfig
	loader    *core.Loader
	root      *core.RootLoader
	action    *core.Action
	importer  *core.Importer
	state     core.StateStore
	tokens    TokenExchanger
	failures  core.FailureReporter
	templates *template.Template
	basePath  string
	baseHref  string
	maxUpload int64
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	home, err := schema.NormalizeHomeConfig(cfg.Home)
	if err != nil {
		return nil, err
	}
	loader, err := core.NewLoader(home, deps.HomeDeps)
	if err != nil {
		return nil, err
	}
	action, err := core.NewAction(home, deps.State)
	if err != nil {
		return nil, err
	}
	if deps.Imports == nil {
		deps.Imports = core.NewImportRegistry(core.DefaultImportTTL)
	}
	importer, err := core.NewImporter(home, deps.Imports)
	if err != nil {
		return nil, err
	}
	if home.OAuthEnabled() && deps.Tokens == nil {
		return nil, errors.New("oauth token exchanger is required in saas mode")
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if strings.TrimSpace(cfg.VisitorCookie) == "" {
		cfg.VisitorCookie = DefaultVisitorCookie
	}
	if cfg.VisitorCookie == home.SessionCookie || cfg.VisitorCookie == home.GitHubTokenCookie {
		return nil, fmt.Errorf("visitor cookie %q collides with a credential cookie", cfg.VisitorCookie)
	}
	maxUpload := cfg.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadMB
	}
	return &Server{
		cfg:       cfg,
		home:      home,
		loader:    loader,
		root:      core.NewRootLoader(deps.Users),
		action:    action,
		importer:  importer,
		state:     deps.State,
		tokens:    deps.Tokens,
		failures:  deps.Failures,
		templates: templates,
		basePath:  normalizeBasePath(cfg.BasePath),
		baseHref:  buildBaseHref(cfg.BaseURL, cfg.BasePath),
		maxUpload: int64(maxUpload) << 20,
	}, nil
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	router.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS)))).Methods(http.MethodGet, http.MethodHead)

	page := func(path string, handler http.HandlerFunc, methods ...string) {
		router.Handle(path, s.withVisitor(handler)).Methods(methods...)
	}
	page("/", s.handleHome, http.MethodGet, http.MethodHead)
	page("/", s.handleSubmit, http.MethodPost)
	page("/repository", s.handleSelectRepository, http.MethodPost)
	page("/import", s.handleImport, http.MethodPost)
	page(s.home.AppPath, s.handleApp, http.MethodGet)
	page("/reset", s.handleReset, http.MethodPost)
	page("/oauth/github/callback", s.handleOAuthCallback, http.MethodGet)

	handler := withRequestLogging(router)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := mux.NewRouter()
	root.PathPrefix(prefix + "/").Handler(http.StripPrefix(prefix, handler))
	root.Path(prefix).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

type statePinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := s.state.(statePinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			pslog.Ctx(ctx).Warn("health state ping failed", "err", err)
			writeText(w, http.StatusServiceUnavailable, "state unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// redirect answers a form post or page load with 303 See Other so the
// browser follows with a GET.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, route string) {
	http.Redirect(w, r, withBasePath(s.basePath, route), http.StatusSeeOther)
}

func (s *Server) report(ctx context.Context, op string, err error) {
	if s.failures == nil || err == nil {
		return
	}
	s.failures.ReportFailure(ctx, op, err)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg + "\n"))
}
