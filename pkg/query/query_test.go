package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func counting(calls *atomic.Int32) FetchFunc[string] {
	return func(_ context.Context, key string) (string, error) {
		n := calls.Add(1)
		return fmt.Sprintf("%s#%d", key, n), nil
	}
}

func TestMountFetches(t *testing.T) {
	var calls atomic.Int32
	c := New(counting(&calls))
	ctx := context.Background()

	v, err := c.Mount(ctx, "k")
	if err != nil || v != "k#1" {
		t.Fatalf("Mount = %q, %v", v, err)
	}
	got, ok := c.Get("k")
	if !ok || got != "k#1" {
		t.Errorf("Get = %q, %v", got, ok)
	}
	if calls.Load() != 1 {
		t.Errorf("Get should not fetch, calls = %d", calls.Load())
	}
}

func TestRemountRefetches(t *testing.T) {
	var calls atomic.Int32
	c := New(counting(&calls))
	ctx := context.Background()

	if _, err := c.Mount(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	c.Unmount("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Get after Unmount should miss")
	}
	if _, err := c.Mount(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want exactly one extra fetch on remount", calls.Load())
	}
	if v, _ := c.Get("k"); v != "k#2" {
		t.Errorf("Get = %q, want fresh value", v)
	}
}

func TestConcurrentMountsShareFetch(t *testing.T) {
	const n = 8
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(func(_ context.Context, key string) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	})

	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Mount(context.Background(), "k")
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if e, _ := c.State("k"); e.Observers == n {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("mounts did not register")
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	for i, r := range results {
		if r != "value" {
			t.Errorf("result %d = %q", i, r)
		}
	}
}

func TestMountError(t *testing.T) {
	boom := errors.New("boom")
	fail := true
	c := New(func(context.Context, string) (int, error) {
		if fail {
			return 0, boom
		}
		return 42, nil
	})

	if _, err := c.Mount(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("failed fetch should not be served")
	}

	fail = false
	if v, err := c.Refetch(context.Background(), "k"); err != nil || v != 42 {
		t.Errorf("Refetch = %v, %v", v, err)
	}
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Errorf("Get = %v, %v", v, ok)
	}
}

func TestMountCanceled(t *testing.T) {
	release := make(chan struct{})
	c := New(func(ctx context.Context, _ string) (string, error) {
		<-release
		return "late", ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Mount(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	close(release)

	// The shared fetch still completes for other observers.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if e, _ := c.State("k"); e.Fetches == 1 {
			if e.Value != "late" || e.Err != nil {
				t.Errorf("entry = %+v", e)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("fetch never completed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	c := New(counting(&calls))
	c.Mount(context.Background(), "k")
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Get after Invalidate should miss")
	}
	if e, _ := c.State("k"); e.Observers != 1 {
		t.Errorf("observers = %d, want 1", e.Observers)
	}
}

func TestKey(t *testing.T) {
	f, term := SplitKey(Key("folder-1", ""))
	if f != "folder-1" || term != "" {
		t.Errorf("SplitKey = %q, %q", f, term)
	}
}
