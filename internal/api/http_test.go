package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tweetwall.live/internal/protocol"
)

func TestHTTPClientFetchItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/boards/B1/items" {
			t.Fatalf("path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("auth header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"T1","x":1,"y":2,"content":"hi","owner_id":"U1","created_at_ms":1,"updated_at_ms":1}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok")
	items, err := c.FetchItems(context.Background(), "B1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].ID != "T1" {
		t.Fatalf("items: %+v", items)
	}
}

func TestHTTPClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"E_AUTH","message":"token expired"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "stale")
	err := c.DeleteItem(context.Background(), "T1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsAuthError(err) {
		t.Fatalf("401 not classified as auth error: %v", err)
	}
}

func TestIsAuthErrorByCode(t *testing.T) {
	if !IsAuthError(&StatusError{Status: 500, Code: protocol.ErrAuth}) {
		t.Fatalf("protocol auth code not classified")
	}
	if IsAuthError(&StatusError{Status: 500, Code: protocol.ErrInternal}) {
		t.Fatalf("internal error classified as auth")
	}
	if IsAuthError(context.Canceled) {
		t.Fatalf("plain error classified as auth")
	}
}
