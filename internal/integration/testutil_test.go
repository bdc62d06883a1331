package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pkt.systems/taskdeck/core"
	"pkt.systems/taskdeck/httpapi"
	"pkt.systems/taskdeck/internal/github"
	"pkt.systems/taskdeck/internal/persist"
	"pkt.systems/taskdeck/internal/telemetry"
	"pkt.systems/taskdeck/schema"
)

const (
	testGitHubToken = "gho_integration"
	testClientID    = "Iv1.integration"
)

// fakeGitHub serves the subset of the GitHub REST and OAuth endpoints the
// home route talks to.
type fakeGitHub struct {
	server    *httptest.Server
	repoCalls atomic.Int32
	delay     atomic.Int64
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	gh := &fakeGitHub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		gh.repoCalls.Add(1)
		if !gh.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		if delay := time.Duration(gh.delay.Load()); delay > 0 {
			time.Sleep(delay)
		}
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		if page == "" || page == "1" {
			next := *r.URL
			query := next.Query()
			query.Set("page", "2")
			next.RawQuery = query.Encode()
			w.Header().Set("Link", `<`+gh.server.URL+next.Path+"?"+next.RawQuery+`>; rel="next"`)
			_ = json.NewEncoder(w).Encode([]schema.Repository{
				{ID: 1, Name: "widgets", FullName: "octo/widgets", Description: "Widget factory"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode([]schema.Repository{
			{ID: 2, Name: "gadgets", FullName: "octo/gadgets", Private: true},
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !gh.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(schema.User{ID: 7, Login: "octocat"})
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + testGitHubToken + `","token_type":"bearer","scope":"repo,user,workflow"}`))
	})
	gh.server = httptest.NewServer(mux)
	t.Cleanup(gh.server.Close)
	return gh
}

func (g *fakeGitHub) authorized(r *http.Request) bool {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") == testGitHubToken
}

type testServer struct {
	httpSrv *httpapi.Server
	state   *persist.SQLiteStore
	imports *core.ImportRegistry
	github  *fakeGitHub
}

func newTestServer(t *testing.T, mode schema.AppMode) *testServer {
	t.Helper()
	gh := newFakeGitHub(t)
	client, err := github.NewClient(github.Config{APIURL: gh.server.URL, Timeout: 5 * time.Second}, gh.server.Client())
	if err != nil {
		t.Fatalf("github client: %v", err)
	}
	oauth := github.NewOAuth(github.OAuthConfig{
		ClientSecret: "secret",
		AuthURL:      gh.server.URL + "/login/oauth/authorize",
		TokenURL:     gh.server.URL + "/login/oauth/access_token",
	}, gh.server.Client())
	state, err := persist.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })
	reporter, err := telemetry.New(telemetry.Config{})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	imports := core.NewImportRegistry(time.Minute)
	srv, err := httpapi.NewServer(httpapi.Config{
		Home: schema.HomeConfig{AppMode: mode, GitHubClientID: testClientID},
	}, httpapi.Deps{
		HomeDeps: core.HomeDeps{
			Repositories: client,
			Users:        client,
			OAuth:        oauth,
			State:        state,
			Imports:      imports,
			Failures:     reporter,
		},
		Tokens: oauth,
	})
	if err != nil {
		t.Fatalf("http server: %v", err)
	}
	return &testServer{httpSrv: srv, state: state, imports: imports, github: gh}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
