package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestForwardPassesBodyAndStatus(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- string(b)
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("method=%s content-type=%s", r.Method, r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"rate limited"}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Options{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	status, body, err := c.Forward(context.Background(), []byte(`{"input":"Rome"}`))
	if err != nil {
		t.Fatal(err)
	}
	if b := <-got; b != `{"input":"Rome"}` {
		t.Fatalf("upstream body = %q", b)
	}
	if status != http.StatusTooManyRequests || string(body) != `{"error":"rate limited"}` {
		t.Fatalf("status=%d body=%s", status, body)
	}
}

func TestForwardRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	}))
	defer srv.Close()

	c, _ := New(context.Background(), Options{URL: srv.URL})
	if _, _, err := c.Forward(context.Background(), []byte(`{}`)); !errors.Is(err, ErrInvalidBody) {
		t.Fatalf("err = %v", err)
	}
}

func TestForwardTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(context.Background(), Options{URL: url, Timeout: time.Second})
	if _, _, err := c.Forward(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected an error for an unreachable webhook")
	}
}

func TestBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `{"output":"ok"}`)
	}))
	defer srv.Close()

	c, _ := New(context.Background(), Options{URL: srv.URL, BearerToken: "secret"})
	if _, _, err := c.Forward(context.Background(), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
}

func TestClientCredentials(t *testing.T) {
	var tokens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"cc-token","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.Header.Get("Authorization"), "Bearer cc-token") {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `{"output":"ok"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(context.Background(), Options{
		URL:          srv.URL + "/hook",
		TokenURL:     srv.URL + "/token",
		ClientID:     "chat",
		ClientSecret: "s3cret",
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, _, err := c.Forward(context.Background(), []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	if n := tokens.Load(); n != 1 {
		t.Fatalf("token fetched %d times, want 1", n)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error")
	}
}
