package server_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/ratechat/internal/rates"
	"github.com/Tyrowin/ratechat/internal/server"
)

// sequenceNames hands out names in order, then "client-N".
func sequenceNames(names ...string) server.NameGenerator {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		if next <= len(names) {
			return names[next-1]
		}
		return fmt.Sprintf("client-%d", next)
	}
}

// fakeFetcher returns a fixed EUR/USD snapshot for every requested date.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    []int
	deadline bool
	panicMsg string
}

func (f *fakeFetcher) FetchDays(ctx context.Context, now time.Time, days int) rates.Report {
	f.mu.Lock()
	f.calls = append(f.calls, days)
	_, f.deadline = ctx.Deadline()
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}

	report := make(rates.Report, 0, days)
	for _, date := range rates.Dates(now, days) {
		report = append(report, rates.DaySnapshot{
			Date: rates.FormatDate(date),
			Rates: rates.Snapshot{
				"EUR": {},
				"USD": {},
			},
		})
	}
	return report
}

func (f *fakeFetcher) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

// fakeAudit records entries in memory and can be told to fail.
type fakeAudit struct {
	mu      sync.Mutex
	entries []string
	fail    bool
}

func (a *fakeAudit) Append(entry string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("disk full")
	}
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAudit) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

// recvText waits for the next message on a client's send queue.
func recvText(t *testing.T, client *server.Client, timeout time.Duration) string {
	t.Helper()
	select {
	case msg, ok := <-client.GetSendChan():
		if !ok {
			t.Fatalf("send channel of %s closed", client.Name())
		}
		return string(msg)
	case <-time.After(timeout):
		t.Fatalf("no message for %s within %v", client.Name(), timeout)
		return ""
	}
}

// expectEmptyQueue fails if a message is waiting for client.
func expectEmptyQueue(t *testing.T, client *server.Client) {
	t.Helper()
	select {
	case msg := <-client.GetSendChan():
		t.Errorf("%s received unexpected message %q", client.Name(), msg)
	default:
	}
}

func buildWebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http")
}

// dialAndWait connects a client and waits until the hub has registered it,
// so names are assigned in dial order.
func dialAndWait(t *testing.T, ts *httptest.Server, hub *server.Hub) *websocket.Conn {
	t.Helper()
	want := hub.Count() + 1

	conn, _, err := websocket.DefaultDialer.Dial(buildWebSocketURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	waitFor(t, time.Second, func() bool { return hub.Count() >= want })
	return conn
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func readMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) string {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(msg)
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Errorf("expected no message, got %q", msg)
	}
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
