package integration_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"pkt.systems/taskdeck/schema"
)

func TestHomeStreamsRepositoriesFromGitHub(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeOSS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	base, _ := url.Parse(server.URL)
	client.Jar.SetCookies(base, []*http.Cookie{{Name: schema.DefaultGitHubTokenCookie, Value: testGitHubToken}})

	body := get(t, client, server.URL+"/")
	for _, want := range []string{"Loading repositories...", "octo/widgets", "octo/gadgets", `taskdeckResolve("repositories")`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in home page:\n%s", want, body)
		}
	}
	if got := env.github.repoCalls.Load(); got != 2 {
		t.Fatalf("expected two paginated repository calls, got %d", got)
	}
}

func TestHomeExpiredGitHubTokenOffersReconnect(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeSaaS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	base, _ := url.Parse(server.URL)
	client.Jar.SetCookies(base, []*http.Cookie{{Name: schema.DefaultGitHubTokenCookie, Value: "stale"}})

	body := get(t, client, server.URL+"/")
	if !strings.Contains(body, "Reconnect to GitHub") {
		t.Fatalf("expected reconnect prompt:\n%s", body)
	}
	if !strings.Contains(body, "client_id="+url.QueryEscape(testClientID)) {
		t.Fatalf("expected auth url with client id:\n%s", body)
	}
}

func TestSessionTokenRedirectsWithoutGitHubCalls(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeOSS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	base, _ := url.Parse(server.URL)
	client.Jar.SetCookies(base, []*http.Cookie{
		{Name: schema.DefaultSessionCookie, Value: "session"},
		{Name: schema.DefaultGitHubTokenCookie, Value: testGitHubToken},
	})

	resp, err := client.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/app" {
		t.Fatalf("expected 303 to /app, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if got := env.github.repoCalls.Load(); got != 0 {
		t.Fatalf("expected no repository calls, got %d", got)
	}
}

func TestTaskSubmissionReachesApp(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeOSS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	_ = get(t, client, server.URL+"/")

	resp, err := client.PostForm(server.URL+"/", url.Values{"q": {"  add a changelog  "}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := readBody(t, resp)
	if resp.Request.URL.Path != "/app" {
		t.Fatalf("expected to land on /app, got %s", resp.Request.URL.Path)
	}
	if !strings.Contains(body, "  add a changelog  ") {
		t.Fatalf("expected untrimmed query on app page:\n%s", body)
	}
}

func TestRepositorySelectionPersists(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeOSS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	_ = get(t, client, server.URL+"/")
	resp, err := client.PostForm(server.URL+"/repository", url.Values{"full_name": {"octo/widgets"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "octo/widgets") {
		t.Fatalf("expected selected repository on app page:\n%s", body)
	}
	base, _ := url.Parse(server.URL)
	var visitor string
	for _, cookie := range client.Jar.Cookies(base) {
		if cookie.Name == "taskdeck_visitor" {
			visitor = cookie.Value
		}
	}
	if visitor == "" {
		t.Fatalf("expected visitor cookie")
	}
	got, err := env.state.SelectedRepository(context.Background(), schema.VisitorID(visitor))
	if err != nil || got != "octo/widgets" {
		t.Fatalf("expected stored repository, got %q err=%v", got, err)
	}
}

func TestZipUploadIsHandedToApp(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeOSS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	_ = get(t, client, server.URL+"/")

	payload, contentType := multipartZip(t, "project.zip")
	resp, err := client.Post(server.URL+"/import", contentType, payload)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := readBody(t, resp)
	if resp.Request.URL.Path != "/app" || !strings.Contains(body, "project.zip") {
		t.Fatalf("expected import on app page, path=%s:\n%s", resp.Request.URL.Path, body)
	}
	if env.imports.Len() != 0 {
		t.Fatalf("expected import to be consumed by the app page")
	}
}

func TestOAuthCallbackStoresGitHubToken(t *testing.T) {
	requireLong(t)
	env := newTestServer(t, schema.AppModeSaaS)
	server := httptest.NewServer(env.httpSrv.Handler())
	defer server.Close()

	client := newClient(t)
	body := get(t, client, server.URL+"/oauth/github/callback?code=good-code")
	if !strings.Contains(body, "octo/widgets") {
		t.Fatalf("expected repositories after sign-in:\n%s", body)
	}
	base, _ := url.Parse(server.URL)
	var token string
	for _, cookie := range client.Jar.Cookies(base) {
		if cookie.Name == schema.DefaultGitHubTokenCookie {
			token = cookie.Value
		}
	}
	if token != testGitHubToken {
		t.Fatalf("expected github token cookie, got %q", token)
	}
}

func get(t *testing.T, client *http.Client, target string) string {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("get %s: %v", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("get %s: status %d: %s", target, resp.StatusCode, body)
	}
	return readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func multipartZip(t *testing.T, name string) (*bytes.Buffer, string) {
	t.Helper()
	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	entry, err := zw.Create("README.md")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	_, _ = entry.Write([]byte("# project\n"))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("multipart part: %v", err)
	}
	_, _ = part.Write(archive.Bytes())
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &body, mw.FormDataContentType()
}
