package httpapi

import "pkt.systems/taskdeck/schema"

// Config defines HTTP surface settings.
type Config struct {
	Addr          string
	BaseURL       string
	BasePath      string
	VisitorCookie string
	MaxUploadMB   int
	Home          schema.HomeConfig
}

// DefaultVisitorCookie names the cookie holding the anonymous visitor id.
const DefaultVisitorCookie = "taskdeck_visitor"

// DefaultMaxUploadMB caps archive uploads when no limit is configured.
const DefaultMaxUploadMB = 64
