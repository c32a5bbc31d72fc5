package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestClient_Subtree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/node" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("ID") {
		case "a":
			w.Write([]byte(`{"nodes":[{"data":{"id":"a"}},{"data":{"id":"b"}}],"edges":[{"data":{"source":"a","target":"b"}}]}`))
		case "empty":
		case "broken":
			w.Write([]byte(`{"nodes":`))
		case "boom":
			http.Error(w, "exploded", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	els, err := c.Subtree(ctx, "a")
	if err != nil {
		t.Fatalf("Subtree: %v", err)
	}
	if len(els) != 3 || els[2].ID() != "a->b" {
		t.Errorf("unexpected elements %+v", els)
	}

	if els, err := c.Subtree(ctx, "empty"); err != nil || len(els) != 0 {
		t.Errorf("empty body: got %v, %v", els, err)
	}
	if _, err := c.Subtree(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Subtree(ctx, "broken"); err == nil {
		t.Error("expected decode error")
	}

	_, err = c.Subtree(ctx, "boom")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError || se.Body != "exploded" {
		t.Errorf("expected StatusError 500, got %v", err)
	}
}

func TestClient_NodeURLEscapes(t *testing.T) {
	c, err := NewClient("http://example.test/base")
	if err != nil {
		t.Fatal(err)
	}
	got := c.NodeURL("a b&c")
	want := "http://example.test/base/node?ID=a+b%26c"
	if got != want {
		t.Errorf("NodeURL = %q, want %q", got, want)
	}
}

func TestNewClient_RejectsBadScheme(t *testing.T) {
	if _, err := NewClient("ftp://example.test"); err == nil {
		t.Error("expected error for non-http scheme")
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	if _, err := c.Subtree(context.Background(), "slow"); err == nil {
		t.Error("expected timeout error")
	}
}

func TestWithTimeout_CopiesHTTPClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c, err := NewClient("http://example.test", WithHTTPClient(shared), WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if shared.Timeout != time.Minute {
		t.Errorf("caller's client modified: timeout = %v", shared.Timeout)
	}
	if c.http == shared || c.http.Timeout != time.Second {
		t.Errorf("client timeout = %v", c.http.Timeout)
	}

	c, err = NewClient("http://example.test", WithHTTPClient(shared))
	if err != nil || c.http != shared {
		t.Errorf("without a timeout the client should be used as is: %v", err)
	}
}

func TestNewClient_RejectsNilHTTPClient(t *testing.T) {
	if _, err := NewClient("http://example.test", WithHTTPClient(nil), WithTimeout(time.Second)); err == nil {
		t.Error("expected error for a nil http client")
	}
}

func TestClient_BodyTooLarge(t *testing.T) {
	const payload = `[{"data":{"id":"a"}}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	c.maxBody = int64(len(payload))
	if els, err := c.Subtree(context.Background(), "a"); err != nil || len(els) != 1 {
		t.Fatalf("body at the limit: %v, %v", els, err)
	}

	c, _ = NewClient(srv.URL)
	c.maxBody = int64(len(payload)) - 1
	_, err := c.Subtree(context.Background(), "a")
	if !errors.Is(err, ErrBodyTooLarge) || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestClient_CoalescesConcurrentFetches(t *testing.T) {
	var hits atomic.Int32
	gate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-gate
		w.Write([]byte(`[{"data":{"id":"a"}}]`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			els, err := c.Subtree(context.Background(), "a")
			if err != nil {
				t.Errorf("Subtree: %v", err)
				return
			}
			results[i] = len(els)
		}(i)
	}
	// Let the goroutines pile up behind the first request.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := hits.Load(); n < 1 || n > 5 {
		t.Errorf("unexpected hit count %d", n)
	}
	for i, n := range results {
		if n != 1 {
			t.Errorf("caller %d got %d elements", i, n)
		}
	}
}

func TestFeed(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.BinaryMessage, []byte(`[{"data":{"id":"ignored"}}]`))
		conn.WriteMessage(websocket.TextMessage, []byte(`[{"data":{"id":"a"}},{"data":{"id":"b"}}]`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		// Wait for the client to acknowledge the close.
		conn.SetReadDeadline(time.Now().Add(time.Second))
		conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	feed, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer feed.Close()

	select {
	case els, ok := <-feed.Updates():
		if !ok {
			t.Fatalf("feed closed early: %v", feed.Err())
		}
		if len(els) != 2 || els[0].ID() != "a" {
			t.Errorf("unexpected update %+v", els)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for update")
	}

	select {
	case _, ok := <-feed.Updates():
		if ok {
			t.Error("expected feed to close after the server closed")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for close")
	}
	if err := feed.Err(); err != nil {
		t.Errorf("normal closure should not report an error, got %v", err)
	}
}

func TestDial_Failure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1/none"); err == nil {
		t.Error("expected dial error")
	}
}
