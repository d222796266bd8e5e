package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingService struct {
	starts atomic.Int32
	failN  int32
}

func (s *countingService) Serve(ctx context.Context) error {
	if s.starts.Add(1) <= s.failN {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return "counting" }

func TestTree_RestartsFailingService(t *testing.T) {
	tree := NewTree(zerolog.Nop(), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})
	svc := &countingService{failN: 2}
	tree.AddBackground(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for svc.starts.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("service started %d times, want 3", svc.starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

type fakeServer struct {
	stop     chan struct{}
	listen   error
	shutdown atomic.Bool
}

func (f *fakeServer) ListenAndServe() error {
	if f.listen != nil {
		return f.listen
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func TestHTTPService_ShutsDownOnCancel(t *testing.T) {
	srv := &fakeServer{stop: make(chan struct{})}
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if !srv.shutdown.Load() {
		t.Error("Shutdown was not called")
	}
}

func TestHTTPService_ListenError(t *testing.T) {
	svc := NewHTTPService(&fakeServer{listen: errors.New("address in use")}, 0)

	err := svc.Serve(context.Background())
	if err == nil || err.Error() != "http server failed: address in use" {
		t.Errorf("Serve = %v", err)
	}
	if svc.String() != "http-server" {
		t.Errorf("String = %q", svc.String())
	}
}
