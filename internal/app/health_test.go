package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// fakeStoreForHealth extends fakeStore with ping functionality
type fakeStoreForHealth struct {
	fakeStore
	pingFn func(context.Context) error
}

func (f *fakeStoreForHealth) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")

	rr := getJSON(t, server.Handler(), "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if payload := decodePayload(t, rr); payload["ok"] != true {
		t.Fatalf("expected ok:true, got %v", payload)
	}
}

func TestReadyEndpointReflectsDatabase(t *testing.T) {
	fs := &fakeStoreForHealth{}
	svc := newTestService(&fakeStore{})
	svc.store = fs
	server := NewHTTPServer(svc, "*")

	rr := getJSON(t, server.Handler(), "/api/ready", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when database pings, got %d", rr.Code)
	}

	fs.pingFn = func(context.Context) error { return errors.New("connection refused") }
	rr = getJSON(t, server.Handler(), "/api/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database is down, got %d", rr.Code)
	}
	payload := decodePayload(t, rr)
	if payload["status"] != "not_ready" {
		t.Fatalf("expected not_ready, got %v", payload)
	}
}
