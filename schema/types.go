package schema

import "time"

// VisitorID identifies an anonymous browser visiting the home route.
type VisitorID string

// AppMode selects how the deployment is operated.
type AppMode string

const (
	// AppModeSaaS marks the hosted, multi-tenant deployment.
	AppModeSaaS AppMode = "saas"
	// AppModeOSS marks a self-hosted deployment.
	AppModeOSS AppMode = "oss"
)

// Repository describes a repository as reported by GitHub.
type Repository struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	Description     string `json:"description,omitempty"`
	HTMLURL         string `json:"html_url"`
	CloneURL        string `json:"clone_url,omitempty"`
	Private         bool   `json:"private"`
	Fork            bool   `json:"fork"`
	DefaultBranch   string `json:"default_branch,omitempty"`
	Language        string `json:"language,omitempty"`
	StargazersCount int    `json:"stargazers_count"`
}

// User is the GitHub account behind an access token.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	HTMLURL   string `json:"html_url,omitempty"`
}

// ImportedFile is a project archive handed from the upload panel to the app.
type ImportedFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
	ReceivedAt  time.Time
}
