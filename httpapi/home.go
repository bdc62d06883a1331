package httpapi

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/core"
	"pkt.systems/taskdeck/internal/github"
	"pkt.systems/taskdeck/internal/logx"
	"pkt.systems/taskdeck/schema"
)

const maxFormBytes = 1 << 20

const repositoriesSlot = "repositories"

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := pslog.Ctx(ctx)
	creds := s.credentials(r)
	result, err := s.loader.Load(ctx, core.LoadRequest{
		Credentials: creds,
		RequestURL:  requestURL(r, s.basePath),
	})
	if err != nil {
		log.Warn("home load failed", "err", err)
		writeText(w, http.StatusInternalServerError, "home page unavailable")
		return
	}
	if result.Redirect != "" {
		s.redirect(w, r, result.Redirect)
		return
	}

	rootData, err := s.root.Load(ctx, creds)
	if err != nil {
		log.Warn("home root load failed", "err", err)
		s.report(ctx, "current_user", err)
	}
	log = logx.WithUser(log, rootData.User)

	page := homePage{
		BaseHref:  s.baseHref,
		User:      rootData.User,
		Streaming: result.Repositories != nil,
	}
	if result.AuthURL != nil {
		page.AuthURL = *result.AuthURL
	}
	if !page.Streaming {
		page.Repositories = repositoryPanel{AuthURL: page.AuthURL}
	}
	if file, ok := s.importer.Current(visitorFrom(ctx)); ok {
		page.Pending = &importSummary{Name: file.Name, Size: file.Size, ReceivedAt: file.ReceivedAt}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "home", page); err != nil {
		log.Warn("home render failed", "err", err)
		return
	}
	if result.Repositories != nil {
		flush(w)
		s.streamRepositories(ctx, w, result.Repositories, page.AuthURL)
	}
	if err := s.templates.ExecuteTemplate(w, "page_end", nil); err != nil {
		log.Debug("home render end failed", "err", err)
	}
}

// streamRepositories waits for the repository fetch and writes the resolved
// panel as a template that replaces the fallback slot in place.
func (s *Server) streamRepositories(ctx context.Context, w http.ResponseWriter, deferred *core.Deferred[[]schema.Repository], authURL string) {
	log := pslog.Ctx(ctx)
	repos, err := deferred.Await(ctx)
	panel := repositoryPanel{SignedIn: true, AuthURL: authURL}
	switch {
	case err == nil:
		panel.Repositories = repos
		logx.WithRepositories(log, repos).Debug("home repositories resolved")
	case ctx.Err() != nil:
		log.Debug("home repositories abandoned", "err", ctx.Err())
		return
	case errors.Is(err, schema.ErrGitHubUnauthorized):
		panel.Unauthorized = true
		log.Info("home repositories token rejected")
	case github.IsRateLimited(err):
		panel.Error = "GitHub rate limit reached. Try again in a few minutes."
		log.Warn("home repositories rate limited", "err", err)
	default:
		panel.Error = "Could not load your repositories. Try again in a moment."
		log.Warn("home repositories failed", "err", err)
		s.report(ctx, "list_repositories", err)
	}
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "repositories", panel); err != nil {
		log.Warn("home repositories render failed", "err", err)
		return
	}
	chunk := streamChunk{Slot: repositoriesSlot, Body: template.HTML(body.String())}
	if err := s.templates.ExecuteTemplate(w, "stream_resolve", chunk); err != nil {
		log.Debug("home repositories write failed", "err", err)
		return
	}
	flush(w)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		pslog.Ctx(ctx).Warn("home submit decode failed", "err", err)
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}
	target, err := s.action.Submit(ctx, visitorFrom(ctx), r.PostForm)
	if err != nil {
		s.report(ctx, "submit_query", err)
		writeText(w, http.StatusInternalServerError, "could not save task")
		return
	}
	s.redirect(w, r, target)
}

func (s *Server) handleSelectRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		pslog.Ctx(ctx).Warn("home repository decode failed", "err", err)
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}
	target, err := s.action.SelectRepository(ctx, visitorFrom(ctx), r.PostForm.Get("full_name"))
	if err != nil {
		if errors.Is(err, schema.ErrInvalidRequest) {
			writeText(w, http.StatusBadRequest, "repository name must look like owner/name")
			return
		}
		s.report(ctx, "select_repository", err)
		writeText(w, http.StatusInternalServerError, "could not save repository")
		return
	}
	s.redirect(w, r, target)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
