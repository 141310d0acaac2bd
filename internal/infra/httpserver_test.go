package infra

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPServerServesUntilCancelled(t *testing.T) {
	cfg, err := ParseConfig(map[string]string{"JWT_SECRET": "s", "PORT": "0", "HTTP_SHUTDOWN_TIMEOUT_SECONDS": "2"})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := NewHTTPServer(cfg, handler, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var addr string
	select {
	case a := <-srv.Started():
		addr = a.String()
	case err := <-done:
		t.Fatalf("Serve returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestHTTPServerListenError(t *testing.T) {
	cfg, _ := ParseConfig(map[string]string{"JWT_SECRET": "s", "PORT": "not-a-port"})
	err := NewHTTPServer(cfg, http.NotFoundHandler(), zerolog.Nop()).Serve(context.Background())
	if err == nil {
		t.Fatalf("expected listen error")
	}
}
