package httpapi

import (
	"net/http"
	"time"

	"pkt.systems/pslog"
)

const githubTokenMaxAge = 30 * 24 * time.Hour

// handleOAuthCallback completes the GitHub authorization started from the
// sign-in link on the home page.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := pslog.Ctx(ctx)
	if !s.home.OAuthEnabled() || s.tokens == nil {
		http.NotFound(w, r)
		return
	}
	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		log.Info("oauth denied", "reason", reason)
		s.redirect(w, r, "/")
		return
	}
	code := query.Get("code")
	if code == "" {
		writeText(w, http.StatusBadRequest, "missing authorization code")
		return
	}
	target := requestURL(r, s.basePath)
	token, err := s.tokens.Exchange(ctx, s.home.GitHubClientID, code, target)
	if err != nil {
		log.Warn("oauth exchange failed", "err", err)
		s.report(ctx, "oauth_exchange", err)
		writeText(w, http.StatusBadGateway, "github sign-in failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.home.GitHubTokenCookie,
		Value:    token,
		Path:     s.cookiePath(),
		MaxAge:   int(githubTokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   target.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	})
	log.Info("oauth exchange ok")
	s.redirect(w, r, "/")
}
