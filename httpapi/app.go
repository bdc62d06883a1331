package httpapi

import (
	"net/http"

	"pkt.systems/pslog"
)

// handleApp is the landing point after the home route. It shows what the
// home route handed over and consumes the pending archive.
func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := pslog.Ctx(ctx)
	visitor := visitorFrom(ctx)
	query, err := s.state.InitialQuery(ctx, visitor)
	if err != nil {
		log.Warn("app state read failed", "err", err)
		s.report(ctx, "read_state", err)
		writeText(w, http.StatusInternalServerError, "state unavailable")
		return
	}
	repo, err := s.state.SelectedRepository(ctx, visitor)
	if err != nil {
		log.Warn("app state read failed", "err", err)
		s.report(ctx, "read_state", err)
		writeText(w, http.StatusInternalServerError, "state unavailable")
		return
	}
	page := appPage{
		BaseHref:     s.baseHref,
		InitialQuery: query,
		Repository:   repo,
		SignedIn:     cookieValue(r, s.home.SessionCookie) != "",
	}
	if file, ok := s.importer.Claim(visitor); ok {
		page.Import = &importSummary{Name: file.Name, Size: file.Size, ReceivedAt: file.ReceivedAt}
		log.Info("app import claimed", "name", file.Name, "bytes", file.Size)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.templates.ExecuteTemplate(w, "app", page); err != nil {
		log.Warn("app render failed", "err", err)
	}
}

// handleReset discards the handed-over task, repository and archive.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitor := visitorFrom(ctx)
	target, err := s.action.Reset(ctx, visitor)
	if err != nil {
		s.report(ctx, "reset_state", err)
		writeText(w, http.StatusInternalServerError, "could not reset")
		return
	}
	s.importer.Discard(visitor)
	s.redirect(w, r, target)
}
