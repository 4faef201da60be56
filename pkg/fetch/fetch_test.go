package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("no User-Agent set")
		}
		w.Write([]byte("<html><head><title>Hall of Fame</title></head><body>ok</body></html>"))
	}))
	defer srv.Close()

	c, err := New(Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	body, err := c.Page(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if body == "" {
		t.Fatal("empty body")
	}
}

func TestPageNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(Options{RetryMax: -1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Page(context.Background(), srv.URL)
	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("status: %d", fetchErr.StatusCode)
	}
}

func TestNewRejectsBadProxy(t *testing.T) {
	if _, err := New(Options{Proxy: "://nope"}); err == nil {
		t.Fatal("expected error for malformed proxy URL")
	}
}

func TestPageTitle(t *testing.T) {
	title, ok := pageTitle("<html><head><title> Creole Creamery </title></head></html>")
	if !ok || title != "Creole Creamery" {
		t.Errorf("got %q, %v", title, ok)
	}
	if _, ok := pageTitle("<p>untitled</p>"); ok {
		t.Error("found a title where none exists")
	}
}
