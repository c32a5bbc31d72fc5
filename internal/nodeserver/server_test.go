package nodeserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/vanderheijden86/graphcanvas/internal/datasource"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/remote"
	"github.com/vanderheijden86/graphcanvas/pkg/testutil"
)

type fakeSource struct {
	mu  sync.Mutex
	top []element.Element
	err error
}

func (f *fakeSource) setTop(els []element.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.top = els
}

func (f *fakeSource) TopElements(context.Context) ([]element.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.top, f.err
}

func (f *fakeSource) Subtree(_ context.Context, id string) ([]element.Element, error) {
	switch id {
	case "a":
		return []element.Element{testutil.Node("a"), testutil.Node("b"), testutil.Edge("a", "b")}, nil
	case "leaf":
		return nil, nil
	case "broken":
		return nil, errors.New("disk on fire")
	}
	return nil, fmt.Errorf("subtree %s: %w", id, datasource.ErrNotFound)
}

func startServer(t *testing.T, src Source) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	srv := New(src, hub)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return srv, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestGetNode(t *testing.T) {
	_, ts := startServer(t, &fakeSource{})

	tests := []struct {
		name     string
		query    string
		status   int
		contains string
	}{
		{"found", "?ID=a", http.StatusOK, `"a->b"`},
		{"empty subtree", "?ID=leaf", http.StatusOK, `[]`},
		{"missing id", "", http.StatusBadRequest, `missing ID`},
		{"unknown", "?ID=zzz", http.StatusNotFound, `node not found`},
		{"failure", "?ID=broken", http.StatusInternalServerError, `disk on fire`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, ts.URL+"/node"+tt.query)
			if status != tt.status {
				t.Errorf("status = %d, want %d (body %s)", status, tt.status, body)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestGetNode_RemoteClientContract(t *testing.T) {
	_, ts := startServer(t, &fakeSource{})
	c, err := remote.NewClient(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	els, err := c.Subtree(context.Background(), "a")
	if err != nil {
		t.Fatalf("Subtree: %v", err)
	}
	testutil.AssertElementCount(t, els, 2, 1)

	if _, err := c.Subtree(context.Background(), "zzz"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("expected remote.ErrNotFound, got %v", err)
	}
}

func TestGetElements(t *testing.T) {
	src := &fakeSource{top: testutil.QuickChain(2)}
	_, ts := startServer(t, src)

	status, body := get(t, ts.URL+"/elements")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	els, err := element.Parse([]byte(body))
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	testutil.AssertElementCount(t, els, 2, 1)

	src.mu.Lock()
	src.err = errors.New("nope")
	src.mu.Unlock()
	if status, _ := get(t, ts.URL+"/elements"); status != http.StatusInternalServerError {
		t.Errorf("expected 500 on source failure, got %d", status)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := startServer(t, &fakeSource{})
	resp, err := http.Post(ts.URL+"/node?ID=a", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /node = %d, want 405", resp.StatusCode)
	}
}

func readElements(t *testing.T, ws *websocket.Conn) []element.Element {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var els []element.Element
	if err := json.Unmarshal(data, &els); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return els
}

func TestLive(t *testing.T) {
	src := &fakeSource{top: testutil.QuickChain(2)}
	srv, ts := startServer(t, src)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/elements/live"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if els := readElements(t, ws); len(els) != 3 {
		t.Fatalf("initial push: got %d elements", len(els))
	}

	deadline := time.Now().Add(5 * time.Second)
	for srv.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	src.setTop(testutil.QuickStar(3))
	if err := srv.Broadcast(context.Background()); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	els := readElements(t, ws)
	testutil.AssertHasElement(t, els, "hub")
	testutil.AssertElementCount(t, els, 4, 3)
}

func TestLive_FeedClient(t *testing.T) {
	src := &fakeSource{top: testutil.QuickChain(1)}
	_, ts := startServer(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	feed, err := remote.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/elements/live")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer feed.Close()

	select {
	case els := <-feed.Updates():
		testutil.AssertHasElement(t, els, "n0")
	case <-ctx.Done():
		t.Fatal("timed out waiting for the initial push")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("order = %v", order)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
