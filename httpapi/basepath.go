package httpapi

import (
	"net/http"
	"net/url"
	"strings"
)

func normalizeBasePath(value string) string {
	path := strings.TrimSpace(value)
	if path == "" || path == "/" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "/" {
		return ""
	}
	return path
}

// buildBaseHref returns the <base href> for rendered pages. Pages always get
// one so relative form actions resolve under the base path.
func buildBaseHref(baseURL, basePath string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	path := normalizeBasePath(basePath)
	if base == "" && path == "" {
		return "/"
	}
	if base == "" {
		return ensureTrailingSlash(path)
	}
	return ensureTrailingSlash(base + path)
}

func ensureTrailingSlash(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}

// withBasePath prefixes an absolute route path with the base path.
func withBasePath(basePath, route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return basePath + route
}

// requestURL reconstructs the absolute URL the client used, honoring
// reverse proxy headers.
func requestURL(r *http.Request, basePath string) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(proto)
	}
	host := r.Host
	if forwarded := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); forwarded != "" {
		host = forwarded
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     basePath + r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}

func firstHeaderValue(value string) string {
	if value == "" {
		return ""
	}
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}
