package delivery

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sealpost/messaging-go/internal/api"
)

func TestNewAutoStrategy(t *testing.T) {
	t.Parallel()
	a := NewAutoStrategy(Config{})
	if a == nil {
		t.Fatal("NewAutoStrategy returned nil")
	}
}

func TestAutoStrategy_Name(t *testing.T) {
	t.Parallel()
	a := NewAutoStrategy(Config{})

	// Without a current strategy
	if a.Name() != "auto" {
		t.Errorf("Name() = %s, want auto", a.Name())
	}
}

func TestAutoStrategy_Stop_NotStarted(t *testing.T) {
	t.Parallel()
	a := NewAutoStrategy(Config{})
	if err := a.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestAutoStrategy_SelectsSSE(t *testing.T) {
	t.Parallel()
	client := newStreamClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))

	a := NewAutoStrategy(Config{
		APIClient:            client,
		SSEConnectionTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx, func(event *api.ArrivalEvent) error { return nil }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	if a.Name() != "auto:sse" {
		t.Errorf("Name() = %s, want auto:sse", a.Name())
	}
}

func TestAutoStrategy_FallsBackToPolling(t *testing.T) {
	t.Parallel()
	client := newStreamClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"envelopes":[]}`)
	}))

	a := NewAutoStrategy(Config{
		APIClient:              client,
		SSEConnectionTimeout:   100 * time.Millisecond,
		PollingInitialInterval: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx, func(event *api.ArrivalEvent) error { return nil }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	if a.Name() != "auto:polling" {
		t.Errorf("Name() = %s, want auto:polling", a.Name())
	}
}

func TestAutoStrategy_ContextCancelledDuringStart(t *testing.T) {
	t.Parallel()
	client := newStreamClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	a := NewAutoStrategy(Config{
		APIClient:            client,
		SSEConnectionTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Start(ctx, func(event *api.ArrivalEvent) error { return nil })
	if err == nil {
		t.Error("Start() with cancelled context should return an error")
	}
}
