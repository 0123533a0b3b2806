package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recorder implements every hook interface; the no-op embeds have
// disjoint method sets.
type recorder struct {
	NoopPipelineHooks
	NoopCacheHooks
	NoopHTTPHooks
	NoopServerHooks

	fetches int
	clicks  []string
}

func (r *recorder) OnFetchStart(context.Context, string, string) { r.fetches++ }

func (r *recorder) OnClick(_ context.Context, termID, thinkerID string) {
	r.clicks = append(r.clicks, termID+"/"+thinkerID)
}

func registered() map[string]any {
	return map[string]any{
		"pipeline": Pipeline(),
		"cache":    Cache(),
		"http":     HTTP(),
		"server":   Server(),
	}
}

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	want := map[string]any{
		"pipeline": NoopPipelineHooks{},
		"cache":    NoopCacheHooks{},
		"http":     NoopHTTPHooks{},
		"server":   NoopServerHooks{},
	}
	for name, got := range registered() {
		if got != want[name] {
			t.Errorf("%s hooks = %T, want no-op", name, got)
		}
	}

	ctx := context.Background()
	Pipeline().OnFetchComplete(ctx, "critique", "", 12, time.Second, errors.New("timeout"))
	Pipeline().OnLayoutComplete(ctx, 12, 1, time.Millisecond)
	Cache().OnCacheSet(ctx, "layout", 2048)
	HTTP().OnError(ctx, "GET", "notes.local", "/api/critical-terms/cooccurrence-matrix", nil)
	Server().OnServe(ctx, "GET", "/health", 200, time.Millisecond)
}

func TestSetAndReset(t *testing.T) {
	t.Cleanup(Reset)
	r := &recorder{}
	SetPipelineHooks(r)
	SetCacheHooks(r)
	SetHTTPHooks(r)
	SetServerHooks(r)

	for name, got := range registered() {
		if got != any(r) {
			t.Errorf("%s hooks = %T, want the recorder", name, got)
		}
	}

	ctx := context.Background()
	Pipeline().OnFetchStart(ctx, "critique", "reason")
	Pipeline().OnFetchStart(ctx, "critique", "")
	Server().OnClick(ctx, "reason", "kant")
	if r.fetches != 2 || len(r.clicks) != 1 || r.clicks[0] != "reason/kant" {
		t.Errorf("recorded fetches = %d, clicks = %v", r.fetches, r.clicks)
	}

	Reset()
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Errorf("after Reset server hooks = %T", Server())
	}
}

func TestSetNilIsIgnored(t *testing.T) {
	t.Cleanup(Reset)
	r := &recorder{}
	SetPipelineHooks(r)
	SetPipelineHooks(nil)
	SetServerHooks(nil)

	if Pipeline() != PipelineHooks(r) {
		t.Error("SetPipelineHooks(nil) replaced the registered hooks")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("SetServerHooks(nil) replaced the no-op")
	}
}
