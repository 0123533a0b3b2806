package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/constellation/pkg/cache"
	"github.com/matzehuels/constellation/pkg/constellation"
	"github.com/matzehuels/constellation/pkg/errors"
	"github.com/matzehuels/constellation/pkg/matrix"
	"github.com/matzehuels/constellation/pkg/observability"
	"github.com/matzehuels/constellation/pkg/palette"
	"github.com/matzehuels/constellation/pkg/pipeline"
	"github.com/matzehuels/constellation/pkg/store"
)

var quietLogger = log.New(io.Discard)

type failingSource struct{}

func (failingSource) Matrix(context.Context, matrix.Filter) (*matrix.Matrix, error) {
	return nil, stderrors.New("connection refused")
}

func (failingSource) Name() string { return "failing" }

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return stderrors.New("mongo unreachable") }

func newTestServer(t *testing.T, src pipeline.Source, opts ServerOptions) *httptest.Server {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(src, fc, nil, quietLogger)
	if opts.Logger == nil {
		opts.Logger = quietLogger
	}
	ts := httptest.NewServer(NewServer(runner, opts))
	t.Cleanup(ts.Close)
	return ts
}

func corpusSource(t *testing.T) pipeline.Source {
	t.Helper()
	c, err := store.LoadCorpusFile("../store/testdata/corpus.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return pipeline.NewStoreSource(store.NewMemoryFrom(c), "memory")
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e
}

func TestMatrixEndpoint(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})

	resp, body := get(t, ts.URL+MatrixPath+"?folder_id=critique")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	m, err := matrix.Unmarshal(body)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := m.Bubble("reason", "kant")
	if !ok || b.Frequency != 3 {
		t.Errorf("Reason/Kant = %+v, %v", b, ok)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestMatrixEndpointBadID(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	resp, body := get(t, ts.URL+MatrixPath+"?folder_id=a%2Fb")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if e := decodeError(t, body); e.Code != string(errors.ErrCodeInvalidID) {
		t.Errorf("code = %q", e.Code)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})

	resp, body := get(t, ts.URL+"/api/constellation/layout?color_by=term")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var lr LayoutResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		t.Fatal(err)
	}
	if lr.ColorMode != palette.ByTerm {
		t.Errorf("color mode = %q", lr.ColorMode)
	}
	if len(lr.Bubbles) == 0 || lr.Message != "" {
		t.Errorf("bubbles = %d, message = %q", len(lr.Bubbles), lr.Message)
	}
	if lr.Bubbles[0].X != lr.Width/2 || lr.Bubbles[0].Y != lr.Height/2 {
		t.Errorf("first bubble not centered: %+v", lr.Bubbles[0])
	}
	if lr.MatrixHash == "" {
		t.Error("missing matrix hash")
	}
}

func TestLayoutEndpointEmpty(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	_, body := get(t, ts.URL+"/api/constellation/layout?folder_id=nowhere")
	var lr LayoutResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		t.Fatal(err)
	}
	if lr.Message != constellation.EmptyMessage {
		t.Errorf("message = %q", lr.Message)
	}
}

func TestLayoutEndpointBadColorMode(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	resp, body := get(t, ts.URL+"/api/constellation/layout?color_by=school")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if e := decodeError(t, body); e.Code != string(errors.ErrCodeInvalidColorMode) {
		t.Errorf("code = %q", e.Code)
	}
}

func TestRenderEndpoint(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})

	resp, body := get(t, ts.URL+"/api/constellation/render.svg?zoom=1.4")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Contains(body, []byte("scale(1.4)")) {
		t.Error("svg does not carry the requested zoom")
	}
	if got := resp.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q", got)
	}

	resp, _ = get(t, ts.URL+"/api/constellation/render.svg?zoom=1.4")
	if got := resp.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q", got)
	}

	resp, body = get(t, ts.URL+"/api/constellation/render.dot?kind=network")
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("graph constellation")) {
		t.Errorf("dot: status %d body %.60q", resp.StatusCode, body)
	}
}

func TestRenderEndpointErrors(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	tests := []struct {
		path string
		code errors.Code
	}{
		{"/api/constellation/render.gif", errors.ErrCodeInvalidFormat},
		{"/api/constellation/render.json?kind=network", errors.ErrCodeInvalidFormat},
		{"/api/constellation/render.svg?zoom=big", errors.ErrCodeInvalidInput},
		{"/api/constellation/render.svg?zoom=NaN", errors.ErrCodeInvalidInput},
		{"/api/constellation/render.svg?scale=NaN", errors.ErrCodeInvalidInput},
		{"/api/constellation/render.svg?zoom=Inf", errors.ErrCodeInvalidInput},
		{"/api/constellation/render.svg?legend=maybe", errors.ErrCodeInvalidInput},
		{"/api/constellation/render.svg?wheel=sideways", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", resp.StatusCode, body)
			}
			if e := decodeError(t, body); e.Code != string(tt.code) {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
		})
	}
}

func TestFetchFailure(t *testing.T) {
	ts := newTestServer(t, failingSource{}, ServerOptions{})

	resp, body := get(t, ts.URL+"/api/constellation/layout")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	e := decodeError(t, body)
	if e.Error != constellation.LoadFailedMessage {
		t.Errorf("error = %q", e.Error)
	}
	if strings.Contains(e.Error, "refused") {
		t.Error("backend error leaked to the client")
	}

	resp, body = get(t, ts.URL+"/api/constellation/render.svg")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("svg status = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(constellation.LoadFailedMessage)) {
		t.Errorf("svg error state missing message: %s", body)
	}
}

func TestClickEndpoint(t *testing.T) {
	var mu sync.Mutex
	var got []string
	ts := newTestServer(t, corpusSource(t), ServerOptions{
		OnBubbleClick: func(termID, thinkerID, thinkerName string) {
			mu.Lock()
			got = append(got, termID, thinkerID, thinkerName)
			mu.Unlock()
		},
	})

	body := `{"term_id":"reason","thinker_id":"kant","thinker_name":"Immanuel Kant"}`
	resp, err := http.Post(ts.URL+"/api/constellation/click", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var cr ClickResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatal(err)
	}
	if cr.Target != "/definitions?term_id=reason&thinker_id=kant" {
		t.Errorf("target = %q", cr.Target)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"reason", "kant", "Immanuel Kant"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("callback got %v, want %v", got, want)
	}
}

func TestClickEndpointRejects(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	for _, body := range []string{
		`not json`,
		`{"term_id":"","thinker_id":"kant"}`,
		`{"term_id":"reason","thinker_id":"kant","extra":1}`,
	} {
		resp, err := http.Post(ts.URL+"/api/constellation/click", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, resp.StatusCode)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{Ready: downPinger{}})

	if resp, _ := get(t, ts.URL+"/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts.URL+"/ready"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d", resp.StatusCode)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

type recordingServerHooks struct {
	observability.NoopServerHooks
	mu     sync.Mutex
	routes []string
	clicks int
}

func (h *recordingServerHooks) OnServe(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func (h *recordingServerHooks) OnClick(context.Context, string, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clicks++
}

func TestServerHooks(t *testing.T) {
	hooks := &recordingServerHooks{}
	observability.SetServerHooks(hooks)
	t.Cleanup(observability.Reset)

	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	get(t, ts.URL+"/api/constellation/render.svg")
	resp, err := http.Post(ts.URL+"/api/constellation/click", "application/json",
		strings.NewReader(`{"term_id":"reason","thinker_id":"kant"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.routes) != 2 {
		t.Fatalf("routes = %v", hooks.routes)
	}
	if !strings.HasSuffix(hooks.routes[0], "render.{format}") {
		t.Errorf("route = %q, want the pattern", hooks.routes[0])
	}
	if hooks.clicks != 1 {
		t.Errorf("clicks = %d", hooks.clicks)
	}
}

func TestClientRoundTrip(t *testing.T) {
	ts := newTestServer(t, corpusSource(t), ServerOptions{})
	c := NewClient(ts.URL + "/")
	if c.Name() != ts.URL {
		t.Errorf("Name() = %q", c.Name())
	}

	m, err := c.Matrix(context.Background(), matrix.Filter{FolderID: "logic"})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := m.Bubble("dialectic", "hegel")
	if !ok || b.Frequency != 2 {
		t.Errorf("Dialectic/Hegel = %+v, %v", b, ok)
	}
}

func TestClientRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"bubbles":[{"term_id":"t","term_name":"T","thinker_id":"k","thinker_name":"K","frequency":2,"sample_snippets":[]}]}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetryPolicy(cache.RetryPolicy{Attempts: 3, Delay: time.Millisecond}))
	m, err := c.Matrix(context.Background(), matrix.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if m.MaxFrequency != 2 {
		t.Errorf("MaxFrequency = %d", m.MaxFrequency)
	}
}

func TestClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("folder_id") {
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		case "bad":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.Write([]byte(`{not json`))
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithRetryPolicy(cache.RetryPolicy{Attempts: 3, Delay: time.Millisecond}))
	ctx := context.Background()

	tests := []struct {
		folder string
		code   errors.Code
	}{
		{"missing", errors.ErrCodeNotFound},
		{"bad", errors.ErrCodeNetwork},
		{"garbage", errors.ErrCodeNetwork},
	}
	for _, tt := range tests {
		calls.Store(0)
		_, err := c.Matrix(ctx, matrix.Filter{FolderID: tt.folder})
		if !errors.Is(err, tt.code) {
			t.Errorf("%s: error = %v, want code %s", tt.folder, err, tt.code)
		}
		if calls.Load() != 1 {
			t.Errorf("%s: %d calls, want no retries", tt.folder, calls.Load())
		}
	}

	if _, err := NewClient("ftp://example.com").Matrix(ctx, matrix.Filter{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad scheme error = %v", err)
	}
}
