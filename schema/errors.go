package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidVisitor indicates an invalid visitor identifier.
	ErrInvalidVisitor = errors.New("invalid visitor")
	// ErrNoFile indicates the upload carried no file (dialog cancelled).
	ErrNoFile = errors.New("no file selected")
	// ErrInvalidArchive indicates the upload is not a zip archive.
	ErrInvalidArchive = errors.New("file must be a zip archive")
	// ErrUnsupportedAppMode indicates an unknown app_mode value.
	ErrUnsupportedAppMode = errors.New("unsupported app mode")
	// ErrGitHubUnauthorized indicates GitHub rejected the access token.
	ErrGitHubUnauthorized = errors.New("github token rejected")
)
