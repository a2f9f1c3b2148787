package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	stop     chan struct{}
	shutdown atomic.Bool
}

func (f *fakeServer) ListenAndServe() error {
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func TestHTTPServiceShutsDownOnCancel(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	svc := NewHTTPService(srv, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	if !srv.shutdown.Load() {
		t.Fatal("Shutdown was not called")
	}
}

func TestPeriodicRunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("test-job", 10*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = p.Serve(ctx)
	if calls.Load() < 2 {
		t.Fatalf("expected repeated runs, got %d", calls.Load())
	}
	if p.String() != "test-job" {
		t.Fatalf("unexpected name %q", p.String())
	}
}

func TestTreeRunsWorkers(t *testing.T) {
	tree := NewTree(TreeConfig{ShutdownTimeout: time.Second})
	ran := make(chan struct{})
	tree.AddWorker(NewPeriodic("probe", time.Hour, func(context.Context) error {
		select {
		case <-ran:
		default:
			close(ran)
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never ran")
	}
	cancel()
	<-errCh
}
