package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// feedServer serves each messages entry once over a websocket upgrade,
// then holds the connection open.
func feedServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		// Hold until the client drops.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConsumer_EmitsDecodedSwaps(t *testing.T) {
	srv := feedServer(t, []string{validMessage})

	c, err := New(&Config{
		URL:              wsURL(srv),
		DialTimeout:      time.Second,
		ReconnectInitial: 10 * time.Millisecond,
		ReconnectMax:     100 * time.Millisecond,
		BufferSize:       8,
		Logger:           testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	select {
	case swap := <-c.Events():
		if swap.RouterName != "uniswap-v2" {
			t.Errorf("RouterName = %q, want uniswap-v2", swap.RouterName)
		}
		if len(swap.Path) != 2 {
			t.Errorf("Path length = %d, want 2", len(swap.Path))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no swap emitted")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConsumer_DropsMalformedMessages(t *testing.T) {
	srv := feedServer(t, []string{
		`{not json`,
		`{"type":"heartbeat","payload":{}}`,
		validMessage,
	})

	c, err := New(&Config{
		URL:              wsURL(srv),
		DialTimeout:      time.Second,
		ReconnectInitial: 10 * time.Millisecond,
		ReconnectMax:     100 * time.Millisecond,
		BufferSize:       8,
		Logger:           testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	// Only the valid message survives decoding.
	select {
	case swap := <-c.Events():
		if swap.FunctionName != "swapExactTokensForTokens" {
			t.Errorf("FunctionName = %q", swap.FunctionName)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("valid swap not emitted")
	}

	select {
	case extra := <-c.Events():
		t.Errorf("unexpected extra swap: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConsumer_EventsClosedAfterRun(t *testing.T) {
	c, err := New(&Config{
		URL:              "ws://127.0.0.1:1", // nothing listens here
		DialTimeout:      50 * time.Millisecond,
		ReconnectInitial: 10 * time.Millisecond,
		ReconnectMax:     20 * time.Millisecond,
		BufferSize:       1,
		Logger:           testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_ = c.Run(ctx)

	if _, open := <-c.Events(); open {
		t.Error("Events() channel not closed after Run returned")
	}
}
