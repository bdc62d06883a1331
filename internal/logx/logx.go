package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/schema"
)

type contextKey int

const (
	visitorKey contextKey = iota
)

// WithVisitor annotates the logger with the visitor id if present.
func WithVisitor(ctx context.Context, visitor schema.VisitorID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if visitor != "" {
		if current, ok := ctx.Value(visitorKey).(schema.VisitorID); ok && current == visitor {
			return log
		}
		log = log.With("visitor", visitor)
	}
	return log
}

// WithRepositories annotates the logger with a repository count.
func WithRepositories(log pslog.Logger, repos []schema.Repository) pslog.Logger {
	return log.With("repositories", len(repos))
}

// WithUser annotates the logger with a GitHub login when available.
func WithUser(log pslog.Logger, user *schema.User) pslog.Logger {
	if user != nil && user.Login != "" {
		log = log.With("github_user", user.Login)
	}
	return log
}

// ContextWithVisitor stores the visitor marker on the context for log de-duplication.
func ContextWithVisitor(ctx context.Context, visitor schema.VisitorID) context.Context {
	if ctx == nil || visitor == "" {
		return ctx
	}
	return context.WithValue(ctx, visitorKey, visitor)
}

// ContextWithVisitorLogger attaches the logger and visitor marker to the context.
func ContextWithVisitorLogger(ctx context.Context, log pslog.Logger, visitor schema.VisitorID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithVisitor(ctx, visitor)
}

// VisitorFromContext returns the visitor marker, if any.
func VisitorFromContext(ctx context.Context) schema.VisitorID {
	if ctx == nil {
		return ""
	}
	visitor, _ := ctx.Value(visitorKey).(schema.VisitorID)
	return visitor
}
