package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trajector/portal/internal/config"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/store"
)

// fakeAPI stands in for the remote documents service.
type fakeAPI struct {
	mu          sync.Mutex
	uploadCode  int
	foldersCode int
	folders     model.FolderResponse
	parts       []string
	fields      url.Values
	messages    []map[string]string
	headers     http.Header
	uploaded    chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{uploadCode: http.StatusOK, foldersCode: http.StatusOK, uploaded: make(chan struct{}, 4)}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = r.Header.Clone()

	switch r.URL.Path {
	case "/api/documents/folders":
		w.WriteHeader(f.foldersCode)
		_ = json.NewEncoder(w).Encode(f.folders)
	case "/api/documents/send-message":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.messages = append(f.messages, body)
	case "/api/documents/upload":
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for _, fh := range r.MultipartForm.File["file"] {
				f.parts = append(f.parts, fh.Filename)
			}
			f.fields = r.MultipartForm.Value
		}
		w.WriteHeader(f.uploadCode)
		f.uploaded <- struct{}{}
	default:
		http.NotFound(w, r)
	}
}

type portal struct {
	app *App
	srv *httptest.Server
	api *fakeAPI
}

func newPortal(t *testing.T, mutate func(*config.Config)) *portal {
	t.Helper()
	api := newFakeAPI()
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	cfg := &config.Config{
		Port:               "0",
		Env:                "test",
		APIHost:            apiSrv.URL,
		PublicBaseURL:      "https://portal.example.org",
		StorageDriver:      "memory",
		IntakeMarker:       "intake",
		StagingDir:         t.TempDir(),
		DefaultName:        "Akbar",
		DefaultPhone:       "919670867797",
		RateLimitPerMinute: 1000,
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := build(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	srv.Client().CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &portal{app: a, srv: srv, api: api}
}

func (p *portal) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := p.srv.Client().Get(p.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (p *portal) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := p.srv.Client().PostForm(p.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (p *portal) postFiles(t *testing.T, path string, files ...string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range files {
		part, _ := mw.CreateFormFile("files", name)
		_, _ = io.WriteString(part, "content of "+name)
	}
	mw.Close()

	resp, err := p.srv.Client().Post(p.srv.URL+path, mw.FormDataContentType(), body)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (p *portal) login(t *testing.T, email string) *http.Response {
	t.Helper()
	return p.postForm(t, "/login", url.Values{"email": {email}, "password": {"anything"}})
}

// waitNotification polls until a notification arrives or the deadline passes.
func (p *portal) waitNotification(t *testing.T) model.Notification {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if items := p.app.notices.Drain(); len(items) > 0 {
			return items[len(items)-1]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no notification arrived")
	return model.Notification{}
}

func expectRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != want {
		t.Fatalf("expected redirect to %q, got %q", want, loc)
	}
}

func TestLoginLandsByRole(t *testing.T) {
	cases := []struct {
		email   string
		role    model.Role
		landing string
	}{
		{"intake@example.com", model.RoleIntake, "/admin"},
		{"Jane.INTAKE@corp.io", model.RoleIntake, "/admin"},
		{"bob@example.com", model.RoleClient, "/client"},
	}

	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			p := newPortal(t, nil)

			expectRedirect(t, p.login(t, tc.email), tc.landing)

			s := p.app.sessions.Current()
			if s == nil || s.Identity != tc.email || s.Role != tc.role {
				t.Fatalf("unexpected session %+v", s)
			}

			raw, err := p.app.slot.Get(context.Background(), store.SessionKey)
			if err != nil {
				t.Fatalf("read slot: %v", err)
			}
			want := `{"email":"` + tc.email + `","role":"` + string(tc.role) + `"}`
			if string(raw) != want {
				t.Errorf("expected persisted %s, got %s", want, raw)
			}

			expectRedirect(t, p.get(t, "/"), tc.landing)
		})
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	p := newPortal(t, nil)

	resp := p.postForm(t, "/login", url.Values{"email": {"bob@example.com"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Please enter both email and password") {
		t.Errorf("expected inline message, got:\n%s", body)
	}
	if p.app.sessions.Current() != nil {
		t.Error("expected no session")
	}
}

func TestGuardedViews(t *testing.T) {
	cases := []struct {
		name  string
		login string
		path  string
		want  int
		loc   string
	}{
		{"anonymous client view", "", "/client", http.StatusSeeOther, "/login"},
		{"anonymous admin view", "", "/admin", http.StatusSeeOther, "/login"},
		{"anonymous landing", "", "/", http.StatusSeeOther, "/login"},
		{"client on admin", "bob@example.com", "/admin", http.StatusSeeOther, "/login"},
		{"intake on client", "intake@example.com", "/client/upload", http.StatusSeeOther, "/login"},
		{"intake on admin", "intake@example.com", "/admin", http.StatusOK, ""},
		{"client on upload", "bob@example.com", "/client/upload", http.StatusOK, ""},
		{"anonymous deep link", "", "/upload?name=Dana&phone=1555", http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPortal(t, nil)
			if tc.login != "" {
				p.login(t, tc.login)
			}
			resp := p.get(t, tc.path)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
			if loc := resp.Header.Get("Location"); loc != tc.loc {
				t.Errorf("expected Location %q, got %q", tc.loc, loc)
			}
		})
	}
}

func TestForbiddenViewEndsOnLoginForm(t *testing.T) {
	p := newPortal(t, nil)
	p.login(t, "bob@example.com")

	follow := &http.Client{}
	resp, err := follow.Get(p.srv.URL + "/admin")
	if err != nil {
		t.Fatalf("GET /admin: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Request.URL.Path; got != "/login" {
		t.Fatalf("expected to end on /login, got %s", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `name="password"`) {
		t.Error("expected the login form")
	}

	if s := p.app.sessions.Current(); s == nil || s.Identity != "bob@example.com" {
		t.Errorf("expected session to survive, got %+v", s)
	}
	expectRedirect(t, p.get(t, "/"), "/client")
}

func TestHealthReportsUnreachableMail(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	p := newPortal(t, func(c *config.Config) {
		c.SMTPHost = "127.0.0.1"
		c.SMTPPort = port
		c.SMTPFromEmail = "noreply@example.org"
	})

	resp := p.get(t, "/api/health")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Checks["mail"] != "unreachable" || body.Checks["storage"] != "ok" {
		t.Errorf("unexpected checks %+v", body.Checks)
	}
}

func TestUploadPageStagesOnDrop(t *testing.T) {
	p := newPortal(t, nil)

	page, _ := io.ReadAll(p.get(t, "/upload?name=Dana").Body)
	if !strings.Contains(string(page), `action="/upload/files?name=Dana" enctype="multipart/form-data" class="dropzone"`) {
		t.Errorf("expected dropzone form posting to the staging action, got:\n%s", page)
	}

	script, _ := io.ReadAll(p.get(t, "/static/app.js").Body)
	for _, want := range []string{`querySelectorAll("form.dropzone")`, `addEventListener("drop"`, "input.files = e.dataTransfer.files", "form.submit()"} {
		if !strings.Contains(string(script), want) {
			t.Errorf("expected %q in app.js", want)
		}
	}

	expectRedirect(t, p.postFiles(t, "/upload/files?name=Dana", "dropped.pdf"), "/upload?name=Dana")
	if n := p.app.deepUploads.Len(); n != 1 {
		t.Errorf("expected dropped file staged, got %d", n)
	}
}

func TestLogout(t *testing.T) {
	p := newPortal(t, nil)
	p.login(t, "bob@example.com")

	expectRedirect(t, p.postForm(t, "/logout", nil), "/login")

	if p.app.sessions.Current() != nil {
		t.Error("expected session cleared")
	}
	if _, err := p.app.slot.Get(context.Background(), store.SessionKey); err == nil {
		t.Error("expected slot emptied")
	}
	if n := p.waitNotification(t); n.Message != "Logged out" {
		t.Errorf("unexpected notification %q", n.Message)
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "portal.db")
	useSQLite := func(c *config.Config) {
		c.StorageDriver = "sqlite"
		c.DatabaseURL = dsn
		c.SessionSealKey = "a-long-enough-passphrase"
	}

	first := newPortal(t, useSQLite)
	first.login(t, "intake@example.com")
	first.app.Close()

	second := newPortal(t, useSQLite)
	s := second.app.sessions.Current()
	if s == nil || s.Role != model.RoleIntake {
		t.Fatalf("expected restored intake session, got %+v", s)
	}
	expectRedirect(t, second.get(t, "/"), "/admin")
}

func TestDeepLinkUpload(t *testing.T) {
	p := newPortal(t, nil)
	q := "?name=Dana+Smith&phone=15550001111"

	expectRedirect(t, p.postFiles(t, "/upload/files"+q, "a.pdf"), "/upload"+q)
	expectRedirect(t, p.postFiles(t, "/upload/files"+q, "b.png"), "/upload"+q)
	if n := p.app.deepUploads.Len(); n != 2 {
		t.Fatalf("expected 2 staged files, got %d", n)
	}

	expectRedirect(t, p.postForm(t, "/upload/submit"+q, nil), "/upload"+q)
	if n := p.app.deepUploads.Len(); n != 0 {
		t.Fatalf("expected buffer drained on submit, got %d", n)
	}

	n := p.waitNotification(t)
	if n.Kind != model.NotifySuccess || n.Message != "2 documents uploaded to Trajector." {
		t.Errorf("unexpected notification %+v", n)
	}

	p.api.mu.Lock()
	defer p.api.mu.Unlock()
	if strings.Join(p.api.parts, ",") != "a.pdf,b.png" {
		t.Errorf("expected parts in staging order, got %v", p.api.parts)
	}
	if p.api.fields.Get("name") != "Dana Smith" || p.api.fields.Get("phone") != "15550001111" {
		t.Errorf("unexpected identity fields %v", p.api.fields)
	}
}

func TestSignedInUploadUsesSessionIdentity(t *testing.T) {
	p := newPortal(t, nil)
	p.login(t, "bob@example.com")

	p.postFiles(t, "/client/upload/files", "id.jpg")
	p.postForm(t, "/client/upload/submit", nil)
	<-p.api.uploaded
	p.waitNotification(t)

	p.api.mu.Lock()
	defer p.api.mu.Unlock()
	if p.api.fields.Get("name") != "bob@example.com" || p.api.fields.Get("phone") != "919670867797" {
		t.Errorf("unexpected identity fields %v", p.api.fields)
	}
}

func TestUploadFailureLosesSelection(t *testing.T) {
	p := newPortal(t, nil)
	p.api.uploadCode = http.StatusInternalServerError

	p.postFiles(t, "/upload/files", "a.pdf")
	p.postForm(t, "/upload/submit", nil)
	if n := p.app.deepUploads.Len(); n != 0 {
		t.Fatalf("expected buffer cleared before the response, got %d", n)
	}

	n := p.waitNotification(t)
	if n.Kind != model.NotifyError || n.Message != "Upload failed. Please try again." {
		t.Errorf("unexpected notification %+v", n)
	}
	if got := p.app.deepUploads.Len(); got != 0 {
		t.Errorf("expected selection lost, got %d staged", got)
	}
}

func TestUploadFailureRestoresSelectionWhenEnabled(t *testing.T) {
	p := newPortal(t, func(c *config.Config) { c.RestoreOnFailure = true })
	p.api.uploadCode = http.StatusBadGateway

	p.postFiles(t, "/upload/files", "a.pdf")
	p.postForm(t, "/upload/submit", nil)
	p.waitNotification(t)

	deadline := time.Now().Add(time.Second)
	for p.app.deepUploads.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := p.app.deepUploads.Len(); got != 1 {
		t.Errorf("expected failed batch restored, got %d staged", got)
	}
}

func TestRemoveStagedFile(t *testing.T) {
	p := newPortal(t, nil)
	p.postFiles(t, "/upload/files", "a.pdf", "b.pdf", "c.pdf")

	p.postForm(t, "/upload/files/1/remove", nil)
	p.postForm(t, "/upload/files/9/remove", nil)
	p.postForm(t, "/upload/files/x/remove", nil)

	files := p.app.deepUploads.Files()
	if len(files) != 2 || files[0].Name != "a.pdf" || files[1].Name != "c.pdf" {
		t.Errorf("unexpected staged files %+v", files)
	}
}

func TestEmptySubmitIsIgnored(t *testing.T) {
	p := newPortal(t, nil)
	expectRedirect(t, p.postForm(t, "/upload/submit", nil), "/upload")

	select {
	case <-p.api.uploaded:
		t.Fatal("expected no upload request")
	case <-time.After(50 * time.Millisecond):
	}
	if p.app.notices.Len() != 0 {
		t.Error("expected no notification")
	}
}

func TestClientPortal(t *testing.T) {
	p := newPortal(t, func(c *config.Config) {
		c.APIHeaders = map[string]string{"bypass-tunnel-reminder": "true"}
	})
	p.api.folders = model.FolderResponse{
		Success: true,
		Folders: model.FolderBuckets{
			Accepted: []model.FolderGroup{{TotalFiles: 3, Senders: []model.Sender{{
				SenderName: "Bob",
				Files:      []model.DocumentFile{{Filename: "w2.pdf", Size: 2048}},
			}}}},
			Rejected: []model.FolderGroup{{TotalFiles: 1}},
		},
	}
	p.login(t, "bob@example.com")

	resp := p.get(t, "/client")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"w2.pdf", "2.0 KiB", "Approved"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in page", want)
		}
	}

	p.api.mu.Lock()
	defer p.api.mu.Unlock()
	if p.api.headers.Get("Bypass-Tunnel-Reminder") != "true" {
		t.Errorf("expected configured header on API request, got %v", p.api.headers)
	}
}

func TestClientPortalErrorView(t *testing.T) {
	p := newPortal(t, nil)
	p.api.foldersCode = http.StatusServiceUnavailable
	p.login(t, "bob@example.com")

	resp := p.get(t, "/client")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Failed to fetch folders") {
		t.Errorf("expected error view, got:\n%s", body)
	}
	if strings.Contains(string(body), "Document Overview") {
		t.Error("expected no partial render")
	}
}

func TestIntakeMagicLinkRequest(t *testing.T) {
	p := newPortal(t, nil)
	p.login(t, "intake@example.com")

	resp := p.postForm(t, "/admin/requests", url.Values{
		"client_name":  {"Dana"},
		"client_email": {"dana@example.org"},
		"client_phone": {"+1 (555) 000-1111"},
		"method":       {"magic_link"},
	})
	expectRedirect(t, resp, "/admin")

	n := p.waitNotification(t)
	if n.Message != "Upload request sent! Sent magic link request to dana@example.org" {
		t.Errorf("unexpected notification %q", n.Message)
	}

	p.api.mu.Lock()
	defer p.api.mu.Unlock()
	if len(p.api.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(p.api.messages))
	}
	msg := p.api.messages[0]
	if msg["to"] != "15550001111" {
		t.Errorf("expected digits-only phone, got %q", msg["to"])
	}
	if !strings.Contains(msg["message"], "https://portal.example.org/upload?name=Dana&phone=15550001111") {
		t.Errorf("expected deep link in message, got %q", msg["message"])
	}
}

func TestIntakeRequestMissingFields(t *testing.T) {
	p := newPortal(t, nil)
	p.login(t, "intake@example.com")

	p.postForm(t, "/admin/requests", url.Values{"client_email": {"dana@example.org"}})

	if n := p.waitNotification(t); n.Message != "Please fill in all required fields" {
		t.Errorf("unexpected notification %q", n.Message)
	}
	p.api.mu.Lock()
	defer p.api.mu.Unlock()
	if len(p.api.messages) != 0 {
		t.Error("expected no network call")
	}
}

func TestAPISessionAndHealth(t *testing.T) {
	p := newPortal(t, nil)

	var body struct {
		Session *model.Session `json:"session"`
	}
	_ = json.NewDecoder(p.get(t, "/api/session").Body).Decode(&body)
	if body.Session != nil {
		t.Errorf("expected null session, got %+v", body.Session)
	}

	p.login(t, "bob@example.com")
	_ = json.NewDecoder(p.get(t, "/api/session").Body).Decode(&body)
	if body.Session == nil || body.Session.Identity != "bob@example.com" {
		t.Errorf("unexpected session %+v", body.Session)
	}

	if resp := p.get(t, "/api/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected healthy, got %d", resp.StatusCode)
	}
}
