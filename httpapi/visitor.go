package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/internal/logx"
	"pkt.systems/taskdeck/schema"
)

const visitorCookieMaxAge = 365 * 24 * time.Hour

// withVisitor binds an anonymous visitor id to the request, issuing a new
// one when the cookie is missing or malformed.
func (s *Server) withVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitor := s.visitorFromCookie(r)
		if visitor == "" {
			visitor = schema.VisitorID(uuid.NewString())
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.VisitorCookie,
				Value:    string(visitor),
				Path:     s.cookiePath(),
				MaxAge:   int(visitorCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   requestURL(r, s.basePath).Scheme == "https",
				SameSite: http.SameSiteLaxMode,
			})
			pslog.Ctx(r.Context()).Debug("http visitor issued", "visitor", visitor)
		}
		log := pslog.Ctx(r.Context()).With("visitor", visitor)
		ctx := logx.ContextWithVisitorLogger(r.Context(), log, visitor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) visitorFromCookie(r *http.Request) schema.VisitorID {
	cookie, err := r.Cookie(s.cfg.VisitorCookie)
	if err != nil {
		return ""
	}
	visitor := schema.VisitorID(strings.TrimSpace(cookie.Value))
	if err := schema.ValidateVisitorID(visitor); err != nil {
		return ""
	}
	return visitor
}

func visitorFrom(ctx context.Context) schema.VisitorID {
	return logx.VisitorFromContext(ctx)
}

func (s *Server) cookiePath() string {
	if s.basePath == "" {
		return "/"
	}
	return s.basePath + "/"
}

// cookieCredentials reads the visitor's tokens from request cookies.
type cookieCredentials struct {
	session string
	github  string
}

func (c cookieCredentials) SessionToken() string { return c.session }
func (c cookieCredentials) GitHubToken() string  { return c.github }

func (s *Server) credentials(r *http.Request) cookieCredentials {
	return cookieCredentials{
		session: cookieValue(r, s.home.SessionCookie),
		github:  cookieValue(r, s.home.GitHubTokenCookie),
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
