package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMonitor_InitialBelief(t *testing.T) {
	m := NewMonitor("http://localhost:1", time.Minute, time.Second)
	if m.Available() {
		t.Error("belief must start unavailable")
	}
	if !m.LastChecked().IsZero() {
		t.Error("LastChecked must be zero before the first probe")
	}
}

func TestMonitor_BecomesAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, 10*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitFor(t, 2*time.Second, m.Available)
	if m.LastChecked().IsZero() {
		t.Error("LastChecked must be set after a probe")
	}
}

func TestMonitor_Non200IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, 10*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitFor(t, 2*time.Second, func() bool { return !m.LastChecked().IsZero() })
	if m.Available() {
		t.Error("a non-200 probe must mark the backend unavailable")
	}
}

func TestMonitor_RecoversAfterOutage(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, 10*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitFor(t, 2*time.Second, func() bool { return !m.LastChecked().IsZero() })
	if m.Available() {
		t.Fatal("expected unavailable during outage")
	}

	healthy.Store(true)
	waitFor(t, 2*time.Second, m.Available)
}

func TestMonitor_UnreachableTargetIsUnavailable(t *testing.T) {
	// Closed server: connections are refused, probe must not panic or hang.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m := NewMonitor(url, 10*time.Millisecond, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitFor(t, 2*time.Second, func() bool { return !m.LastChecked().IsZero() })
	if m.Available() {
		t.Error("unreachable target must be unavailable")
	}
}

func TestMonitor_StopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(srv.URL, 5*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	waitFor(t, 2*time.Second, func() bool { return !m.LastChecked().IsZero() })
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}
}
