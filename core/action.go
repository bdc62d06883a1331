package core

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"pkt.systems/taskdeck/internal/logx"
	"pkt.systems/taskdeck/schema"
)

// QueryField is the form field carrying the task text.
const QueryField = "q"

// Action handles submissions from the home route.
type Action struct {
	state   StateStore
	appPath string
}

// NewAction constructs an action writing to state.
func NewAction(cfg schema.HomeConfig, state StateStore) (*Action, error) {
	normalized, err := schema.NormalizeHomeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, errors.New("state store is required")
	}
	return &Action{state: state, appPath: normalized.AppPath}, nil
}

// Submit stores a non-empty task query for the visitor and always redirects to the app.
func (a *Action) Submit(ctx context.Context, visitor schema.VisitorID, form url.Values) (string, error) {
	log := logx.WithVisitor(ctx, visitor)
	query := form.Get(QueryField)
	if query == "" {
		log.Debug("home submit without query")
		return a.appPath, nil
	}
	if err := a.state.SetInitialQuery(ctx, visitor, query); err != nil {
		log.Warn("home submit state write failed", "err", err)
		return "", err
	}
	log.Info("home submit ok", "query_len", len(query))
	return a.appPath, nil
}

// SelectRepository stores the repository picked from the repository panel.
func (a *Action) SelectRepository(ctx context.Context, visitor schema.VisitorID, fullName string) (string, error) {
	log := logx.WithVisitor(ctx, visitor)
	name := strings.TrimSpace(fullName)
	if name == "" || !strings.Contains(name, "/") {
		return "", schema.ErrInvalidRequest
	}
	if err := a.state.SetSelectedRepository(ctx, visitor, name); err != nil {
		log.Warn("home repository select failed", "err", err)
		return "", err
	}
	log.Info("home repository selected", "repo", name)
	return a.appPath, nil
}

// Reset forgets everything the home route handed over for visitor and
// sends them back to the home route.
func (a *Action) Reset(ctx context.Context, visitor schema.VisitorID) (string, error) {
	log := logx.WithVisitor(ctx, visitor)
	if err := a.state.Clear(ctx, visitor); err != nil {
		log.Warn("home reset failed", "err", err)
		return "", err
	}
	log.Info("home reset ok")
	return "/", nil
}
