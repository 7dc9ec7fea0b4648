package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	mu     sync.Mutex
	calls  []string
	bodies []string
	// down makes /health answer 503.
	down atomic.Bool
}

func (s *server) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *server) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if s.down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.bodies = append(s.bodies, string(body))
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks":
			w.Write([]byte(`[{"id":"t1","title":"Stretch","completed":true,"refreshType":"daily","subtasks":[{"id":"s1","title":"Neck","completed":false,"taskId":"t1"}]}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/announcement":
			w.Write([]byte(`null`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks/t1/subtasks":
			w.Write([]byte(`[{"id":"s1","title":"Neck","completed":true,"taskId":"t1","deadline":"2026-02-19T00:00:00Z"}]`))
		case r.URL.Path == "/api/tasks/refresh/daily":
			w.Write([]byte(`{"message":"Daily tasks refreshed"}`))
		case r.URL.Path == "/api/tasks/cleanup/completed":
			w.Write([]byte(`{"message":"Completed tasks cleaned up"}`))
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"new1","title":"x"}`))
		default:
			w.Write([]byte(`{}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	for _, k := range []string{"TASKCTL_API", "TASKCTL_TOKEN", "TASKCTL_STORE", "TASKCTL_TIMEOUT", "TASKCTL_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(context.Background(), args, &out)
	return out.String(), err
}

func TestOfflineAddIsReplayedOnNextRun(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "taskctl.db")

	out, err := run(t, "--api", deadURL(t), "--store", store, "--timeout", "2s", "tasks", "add", "Water", "plants", "-r", "daily")
	require.NoError(t, err)
	assert.Contains(t, out, "offline: queued for sync (1 pending)")

	out, err = run(t, "--api", deadURL(t), "--store", store, "queue", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "POST")
	assert.Contains(t, out, "/api/tasks")

	api := &server{}
	srv := api.start(t)
	out, err = run(t, "--api", srv.URL, "--store", store, "--token", "tok", "tasks", "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/tasks", "GET /api/tasks"}, api.calls)
	assert.Contains(t, out, "Stretch")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "Neck")

	out, err = run(t, "--api", srv.URL, "--store", store, "queue", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "queue is empty")
}

func TestListFallsBackToCache(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "taskctl.db")
	api := &server{}
	srv := api.start(t)

	_, err := run(t, "--api", srv.URL, "--store", store, "tasks", "list")
	require.NoError(t, err)

	out, err := run(t, "--api", deadURL(t), "--store", store, "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "showing cached data")
	assert.Contains(t, out, "Stretch")

	_, err = run(t, "--api", deadURL(t), "--store", store, "notes", "list")
	assert.Error(t, err)
}

func TestStatusBanner(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "taskctl.db")

	out, err := run(t, "--api", deadURL(t), "--store", store, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "offline")

	api := &server{}
	srv := api.start(t)
	out, err = run(t, "--api", srv.URL, "--store", store, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "online")
}

func TestAnnouncementAbsent(t *testing.T) {
	dir := isolate(t)
	api := &server{}
	srv := api.start(t)

	out, err := run(t, "--api", srv.URL, "--store", filepath.Join(dir, "taskctl.db"), "announcement", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "no announcement")
}

func TestSettingsFromEnvAndConfigFile(t *testing.T) {
	dir := isolate(t)
	api := &server{}
	srv := api.start(t)

	cfgPath := filepath.Join(dir, "taskctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api: http://127.0.0.1:1\ntoken: from-file\n"), 0o600))
	t.Setenv("TASKCTL_STORE", filepath.Join(dir, "env.db"))
	t.Setenv("TASKCTL_API", srv.URL)

	_, err := run(t, "--config", cfgPath, "categories", "add", "Home")
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/categories"}, api.calls)
	_, err = os.Stat(filepath.Join(dir, "env.db"))
	assert.NoError(t, err)
}

func TestEditCommands(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "taskctl.db")
	api := &server{}
	srv := api.start(t)
	cli := func(args ...string) string {
		t.Helper()
		out, err := run(t, append([]string{"--api", srv.URL, "--store", store}, args...)...)
		require.NoError(t, err)
		return out
	}

	assert.Contains(t, cli("categories", "rename", "c1", "Deep", "Work"), "renamed c1")
	assert.Contains(t, cli("notes", "edit", "n1", "--content", "", "--category", ""), "updated n1")
	assert.Contains(t, cli("notes", "reorder", "n2", "n1"), "reordered 2 note(s)")
	assert.Contains(t, cli("tasks", "refresh", "daily"), "Daily tasks refreshed")
	assert.Contains(t, cli("tasks", "cleanup"), "Completed tasks cleaned up")

	out := cli("subtasks", "list", "t1")
	assert.Contains(t, out, "[x] Neck")
	assert.Contains(t, out, "due 2026-02-19")

	assert.Equal(t, []string{
		"PATCH /api/categories/c1",
		"PATCH /api/notes/n1",
		"PATCH /api/notes/reorder",
		"POST /api/tasks/refresh/daily",
		"POST /api/tasks/cleanup/completed",
		"GET /api/tasks/t1/subtasks",
	}, api.seen())
	assert.JSONEq(t, `{"name":"Deep Work"}`, api.bodies[0])
	assert.JSONEq(t, `{"content":"","categoryId":null}`, api.bodies[1])
	assert.JSONEq(t, `{"ids":["n2","n1"]}`, api.bodies[2])

	_, err := run(t, "--api", srv.URL, "--store", store, "notes", "edit", "n1")
	assert.ErrorContains(t, err, "nothing to change")
	_, err = run(t, "--api", srv.URL, "--store", store, "tasks", "refresh", "monthly")
	assert.Error(t, err)
	assert.Len(t, api.seen(), 6)
}

func TestRefreshWhileOfflineIsQueued(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "taskctl.db")

	out, err := run(t, "--api", deadURL(t), "--store", store, "tasks", "refresh", "weekly")
	require.NoError(t, err)
	assert.Contains(t, out, "offline: queued for sync (1 pending)")
}

// lockedBuffer lets the test read output while the command is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStatusWatchFollowsConnectivity(t *testing.T) {
	dir := isolate(t)
	store := filepath.Join(dir, "taskctl.db")

	_, err := run(t, "--api", deadURL(t), "--store", store, "tasks", "add", "Water", "plants")
	require.NoError(t, err)

	api := &server{}
	api.down.Store(true)
	srv := api.start(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []string{"--api", srv.URL, "--store", store, "--poll-interval", "20ms", "status", "--watch"}, out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "offline · 1 change(s) queued")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, api.seen())

	api.down.Store(false)
	require.Eventually(t, func() bool {
		calls := api.seen()
		return len(calls) == 1 && calls[0] == "POST /api/tasks"
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		return strings.TrimSpace(lines[len(lines)-1]) == "online"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("status --watch did not stop after cancel")
	}
}
