package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer srv.Close()

	c := New(Options{})
	resp, err := c.Get(context.Background(), srv.URL+"/feed", AcceptXML)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(resp.Body) != "<rss/>" {
		t.Fatalf("unexpected body %q", resp.Body)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("User-Agent = %q", gotUA)
	}
	if gotAccept != AcceptXML {
		t.Fatalf("Accept = %q", gotAccept)
	}
	if resp.ContentType != "application/rss+xml" {
		t.Fatalf("ContentType = %q", resp.ContentType)
	}
}

func TestGetNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(Options{}).Get(context.Background(), srv.URL, "")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusForbidden {
		t.Fatalf("status code = %d", se.Code)
	}
}

func TestGetFollowsRedirectsAndReportsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/long/article", http.StatusFound)
	})
	mux.HandleFunc("/long/article", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New(Options{}).Get(context.Background(), srv.URL+"/short", AcceptHTML)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if resp.FinalURL != srv.URL+"/long/article" {
		t.Fatalf("FinalURL = %q", resp.FinalURL)
	}
}

func TestGetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(Options{Timeout: 20 * time.Millisecond}).Get(context.Background(), srv.URL, "")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestGetRejectsUnsupportedScheme(t *testing.T) {
	if _, err := New(Options{}).Get(context.Background(), "ftp://example.com/feed", ""); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestGetRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	_, err := New(Options{MaxBytes: 4}).Get(context.Background(), srv.URL, "")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// 恰好等于上限时正常返回
	resp, err := New(Options{MaxBytes: 10}).Get(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(resp.Body) != "0123456789" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestMinInterval(t *testing.T) {
	if got := New(Options{PerHostRPS: 4}).MinInterval(); got != 250*time.Millisecond {
		t.Fatalf("MinInterval = %v", got)
	}
	if got := New(Options{}).MinInterval(); got != 0 {
		t.Fatalf("unlimited MinInterval = %v", got)
	}
}
