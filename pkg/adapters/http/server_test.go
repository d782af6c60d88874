package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/studio"
	"github.com/aretw0/studio/internal/logging"
	studiohttp "github.com/aretw0/studio/pkg/adapters/http"
	"github.com/aretw0/studio/pkg/adapters/memory"
	"github.com/aretw0/studio/pkg/csp"
	"github.com/aretw0/studio/pkg/domain"
	"github.com/aretw0/studio/pkg/journal"
	"github.com/aretw0/studio/pkg/observability"
	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, opts ...studio.Option) *studio.Studio {
	t.Helper()
	transport := memory.NewTransport()
	s := studio.New(transport, opts...)
	t.Cleanup(func() {
		s.Stop()
		_ = transport.Close()
	})
	s.Orchestrator().RegisterStudio("Layout", func() orchestrator.Studio {
		return &orchestrator.BasicStudio{StudioName: "Layout"}
	})
	s.Tick(0)
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndInfo(t *testing.T) {
	h := studiohttp.NewHandler(newApp(t))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, strings.TrimSpace(studio.Version), info["version"])
}

func TestJournalAndUndo(t *testing.T) {
	app := newApp(t)
	h := studiohttp.NewHandler(app)

	app.EnqueueTransaction(domain.NewTransaction("add cube", func() {}))
	app.Tick(0)

	w := do(t, h, http.MethodGet, "/journal", "")
	require.Equal(t, http.StatusOK, w.Code)
	var nodes []journal.NodeView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, journal.RootMessage, nodes[0].Message)
	assert.True(t, nodes[1].Current)

	w = do(t, h, http.MethodPost, "/journal/undo", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	app.Tick(0)
	assert.True(t, app.View().Journal[0].Current)

	w = do(t, h, http.MethodPost, "/journal/redo", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	app.Tick(0)
	assert.True(t, app.View().Journal[1].Current)
}

func TestStudioSwitch(t *testing.T) {
	app := newApp(t)
	h := studiohttp.NewHandler(app)

	w := do(t, h, http.MethodPost, "/studios/Nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/studios/Layout", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	app.Tick(0)

	w = do(t, h, http.MethodGet, "/activities", "")
	var body struct {
		Studio  string   `json:"studio"`
		Studios []string `json:"studios"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Layout", body.Studio)
	assert.Contains(t, body.Studios, orchestrator.EmptyStudioName)
}

func TestPostEvent(t *testing.T) {
	app := newApp(t)
	h := studiohttp.NewHandler(app)

	got := make(chan domain.Message, 1)
	require.NoError(t, app.Engine().RegisterModule(csp.NewModule("ping", csp.Process{
		ID:       77,
		Name:     "Ping",
		Behavior: func(_ context.Context, msg domain.Message) { got <- msg },
	})))

	w := do(t, h, http.MethodPost, "/events", `{"topic":"Ping","id":77}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "engine not running")

	require.NoError(t, app.Start(context.Background()))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"missing id", `{"topic":"Ping"}`, http.StatusBadRequest},
		{"negative delay", `{"topic":"Ping","id":77,"delay_ms":-1}`, http.StatusBadRequest},
		{"reserved id", `{"topic":"Ping","id":0}`, http.StatusBadRequest},
		{"string id", `{"topic":"Ping","id":"77"}`, http.StatusBadRequest},
		{"unknown field", `{"topic":"Ping","id":77,"after":5}`, http.StatusBadRequest},
		{"empty topic", `{"topic":"","id":77}`, http.StatusBadRequest},
		{"delayed", `{"topic":"Ping","id":77,"payload":"hi","delay_ms":5}`, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/events", tt.body)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	select {
	case msg := <-got:
		assert.Equal(t, "hi", string(msg.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHandlerLogging(t *testing.T) {
	app := newApp(t)
	require.NoError(t, app.Start(context.Background()))

	t.Run("silent without a logger", func(t *testing.T) {
		var global bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&global, nil)))
		t.Cleanup(func() { slog.SetDefault(prev) })

		h := studiohttp.NewHandler(app)
		w := do(t, h, http.MethodPost, "/events", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, global.String())
	})

	t.Run("tags records with the component", func(t *testing.T) {
		var buf bytes.Buffer
		h := studiohttp.NewHandler(app, studiohttp.WithLogger(logging.NewWithWriter(&buf, slog.LevelDebug)))
		w := do(t, h, http.MethodPost, "/events", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, buf.String(), "component=http")
		assert.Contains(t, buf.String(), "invalid request body")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	app := newApp(t, studio.WithLifecycleHooks(metrics.Hooks()))
	app.EnqueueTransaction(domain.NewTransaction("a", func() {}))
	app.Tick(0)

	h := studiohttp.NewHandler(app, studiohttp.WithGatherer(reg))
	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `studio_transactions_applied_total{coalesced="false"} 1`)

	w = do(t, studiohttp.NewHandler(app), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStream(t *testing.T) {
	streams := studiohttp.NewStreamManager()
	app := newApp(t, studio.WithLifecycleHooks(streams.Hooks()))
	srv := httptest.NewServer(studiohttp.NewHandler(app, studiohttp.WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream?types=transaction_applied", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	require.Eventually(t, func() bool { return streams.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	app.Orchestrator().ActivateStudio("Layout") // filtered out
	app.EnqueueTransaction(domain.NewTransaction("paint", func() {}))
	app.Tick(0)

	var events []string
	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "data: {") {
			assert.Contains(t, line, `"message":"paint"`)
			break
		}
	}
	assert.Equal(t, []string{"transaction_applied"}, events)
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := studiohttp.NewStreamManager()
	ch, cancel := sm.Subscribe()
	assert.Equal(t, 1, sm.Subscribers())
	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)
}
