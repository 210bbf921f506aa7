package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/swipedeck/internal/card"
	"github.com/abelbrown/swipedeck/internal/config"
	"github.com/abelbrown/swipedeck/internal/otel"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "swipedeck dev\n", out.String())
}

func runFetch(t *testing.T, cfg config.Config, args ...string) ([]card.Item, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newFetchCmd(&cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var items []card.Item
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var it card.Item
		require.NoError(t, json.Unmarshal(sc.Bytes(), &it))
		items = append(items, it)
	}
	return items, errOut.String()
}

func TestFetchCommandRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"7","author":"A <b>Bold</b> Name","width":10,"height":20,"url":"u","download_url":"https://picsum.photos/id/7/10/20"}]`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Endpoint = server.URL
	cfg.LogDir = t.TempDir()

	items, summary := runFetch(t, cfg, "--pages", "2", "--size", "1")
	require.Len(t, items, 2)
	assert.Equal(t, 7, items[0].ID)
	assert.Equal(t, "A Bold Name", items[0].Title)
	assert.True(t, strings.HasPrefix(summary, "2 remote, 0 fallback"), summary)
	assert.Contains(t, summary, "2 pages stored")
}

func TestFetchCommandLogsShutdownEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"3","author":"A","width":1,"height":1,"url":"u","download_url":"d"}]`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Endpoint = server.URL
	cfg.LogDir = t.TempDir()
	cfg.EventLog = true

	_, summary := runFetch(t, cfg, "--size", "1")
	assert.NotContains(t, summary, "dropped")

	files, err := filepath.Glob(filepath.Join(cfg.LogDir, "events-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var kinds []otel.EventKind
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev otel.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		kinds = append(kinds, ev.Kind)
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, otel.KindStartup, kinds[0])
	assert.Equal(t, otel.KindShutdown, kinds[len(kinds)-1])
	assert.Equal(t, 1, count(kinds, otel.KindShutdown))
}

func TestSessionEndIsIdempotent(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = t.TempDir()
	s, err := openSession(cfg)
	require.NoError(t, err)

	s.end()
	s.end()
	s.shutdown()
	s.Close()

	assert.Equal(t, 1, s.ring.Stats()[otel.KindShutdown])
	assert.Zero(t, s.events.Dropped())
}

func TestSessionReportsSwipesAndLogPath(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = t.TempDir()
	s, err := openSession(cfg)
	require.NoError(t, err)
	defer s.shutdown()

	var out bytes.Buffer
	s.report(&out)
	assert.Contains(t, out.String(), "0 swipes this session")
	assert.Contains(t, out.String(), s.logFile.Path())
}

func count(kinds []otel.EventKind, k otel.EventKind) int {
	n := 0
	for _, got := range kinds {
		if got == k {
			n++
		}
	}
	return n
}

func TestFetchCommandFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Endpoint = server.URL
	cfg.LogDir = t.TempDir()

	items, summary := runFetch(t, cfg, "--size", "3")
	require.Len(t, items, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{items[0].ID, items[1].ID, items[2].ID})
	assert.True(t, strings.HasPrefix(items[0].MediaRef, "data:image/png;base64,"))
	assert.Contains(t, summary, "1 fallback")
}

func TestFetchCommandRejectsBadFlags(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = t.TempDir()
	cmd := newFetchCmd(&cfg)
	cmd.SetArgs([]string{"--pages", "0"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
