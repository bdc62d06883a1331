package httpapi

import (
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"pkt.systems/taskdeck/schema"
)

type homePage struct {
	BaseHref     string
	User         *schema.User
	AuthURL      string
	Streaming    bool
	Repositories repositoryPanel
	Pending      *importSummary
}

// repositoryPanel is the content of the repository panel once known.
type repositoryPanel struct {
	SignedIn     bool
	Unauthorized bool
	Error        string
	AuthURL      string
	Repositories []schema.Repository
}

type streamChunk struct {
	Slot string
	Body template.HTML
}

type appPage struct {
	BaseHref     string
	InitialQuery string
	Repository   string
	SignedIn     bool
	Import       *importSummary
}

type importSummary struct {
	Name       string
	Size       int64
	ReceivedAt time.Time
}

func parseTemplates() (*template.Template, error) {
	return template.New("taskdeck").Funcs(template.FuncMap{
		"humanBytes": func(n int64) string { return humanize.IBytes(uint64(n)) },
	}).ParseFS(templateFS, "templates/*.html")
}
