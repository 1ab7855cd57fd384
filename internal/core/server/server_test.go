package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/router"
	"github.com/mohammed-shakir/supermarkt-search/internal/metrics"
)

type readyStub struct {
	ok bool
	n  int
}

func (r readyStub) Readiness() (bool, int) { return r.ok, r.n }

type searchStub struct{}

func (searchStub) Search(_ context.Context, q model.SearchQuery) (model.SearchResult, error) {
	return model.SearchResult{Keyword: q.Keyword}, nil
}

type locatorStub struct{}

func (locatorStub) FindNearby(context.Context, model.Coordinate, float64) ([]model.RankedStore, error) {
	return nil, nil
}

func testServer(t *testing.T, ready readyStub) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := router.New(router.Deps{Locator: locatorStub{}, Search: searchStub{}, Logger: log})
	p := metrics.Init(metrics.Config{})
	ts := httptest.NewServer(NewRouter(log, h, ready, p.Handler()))
	t.Cleanup(ts.Close)
	return ts
}

func TestRoutes(t *testing.T) {
	ts := testServer(t, readyStub{ok: true, n: 14})

	cases := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/search?keyword=knorr", "", http.StatusOK},
		{http.MethodGet, "/search", "", http.StatusBadRequest},
		{http.MethodPost, "/supermarkets", `{"latitude":52.37,"longitude":4.89}`, http.StatusOK},
		{http.MethodGet, "/supermarkets", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != tc.code {
			t.Fatalf("%s %s: status=%d want %d", tc.method, tc.path, resp.StatusCode, tc.code)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("%s %s: missing request id", tc.method, tc.path)
		}
	}
}

func TestReady_NotLoaded(t *testing.T) {
	ts := testServer(t, readyStub{})
	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "not_ready" {
		t.Fatalf("body=%v", body)
	}
}

func TestMetrics_RecordsRouteLabel(t *testing.T) {
	ts := testServer(t, readyStub{ok: true})
	resp, err := http.Get(ts.URL + "/search?keyword=soep")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `route="/search"`) {
		t.Fatalf("route label missing from metrics output")
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, addr, http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		c, err := net.Dial("tcp", addr)
		if err == nil {
			_ = c.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
