package schema

import (
	"fmt"
	"strings"
)

// NormalizeAppMode validates an app mode; empty means self-hosted.
func NormalizeAppMode(value string) (AppMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(AppModeOSS):
		return AppModeOSS, nil
	case string(AppModeSaaS):
		return AppModeSaaS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAppMode, value)
	}
}

// ValidateVisitorID ensures a visitor id is a short token of [a-z0-9-].
func ValidateVisitorID(id VisitorID) error {
	raw := string(id)
	if raw == "" || len(raw) > 64 {
		return ErrInvalidVisitor
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' {
			continue
		}
		return ErrInvalidVisitor
	}
	return nil
}
