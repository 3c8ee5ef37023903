package syncchan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/internal/session"
	"github.com/nothingcube/regsync/pkg/logger"
)

type fakeRegistry struct {
	refreshed chan struct{}
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{refreshed: make(chan struct{}, 16)}
}

func (f *fakeRegistry) Refresh(ctx context.Context) error {
	f.refreshed <- struct{}{}
	return nil
}

func (f *fakeRegistry) Containers() []*models.ContainerConfig { return nil }
func (f *fakeRegistry) Loading() bool                         { return false }

func (f *fakeRegistry) Create(ctx context.Context, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	return nil, nil
}

func (f *fakeRegistry) Update(ctx context.Context, id string, cfg *models.ContainerConfig) (*models.ContainerConfig, error) {
	return nil, nil
}

func (f *fakeRegistry) ToggleActive(ctx context.Context, id string) (*models.ContainerConfig, error) {
	return nil, nil
}

func (f *fakeRegistry) Delete(ctx context.Context, id string) error { return nil }

type countingNotifier struct {
	count atomic.Int32
}

func (c *countingNotifier) Notify(level models.NotificationLevel, message string) {
	c.count.Add(1)
}

// pushServer is a websocket endpoint that records the handshake and lets the
// test push events to the connected client.
type pushServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	lastAuth string
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.lastAuth = r.Header.Get("Authorization")
		ps.mu.Unlock()

		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conns = append(ps.conns, conn)
		ps.mu.Unlock()
		// Keep the connection open; the client never sends.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func (ps *pushServer) push(t *testing.T, event string) {
	t.Helper()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if len(ps.conns) == 0 {
		t.Fatal("no connected client to push to")
	}
	conn := ps.conns[len(ps.conns)-1]
	if err := conn.WriteJSON(map[string]string{"event": event}); err != nil {
		t.Fatalf("push failed: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestChannel(url string, sess *session.Session, reg models.RegistryI, notif models.Notifier, maxAttempts int) *Channel {
	return New(url, sess, reg, notif, maxAttempts, 10*time.Millisecond, logger.NewNop())
}

func TestChannelConnectsAndRefreshesOnPush(t *testing.T) {
	ps := newPushServer(t)
	reg := newFakeRegistry()
	notif := &countingNotifier{}
	ch := newTestChannel(ps.url(), session.New("tok-9"), reg, notif, 3)
	defer ch.Close()

	if err := ch.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	waitFor(t, "connection", func() bool { return ch.Status().State == models.SyncConnected })

	ps.mu.Lock()
	auth := ps.lastAuth
	ps.mu.Unlock()
	if auth != "Bearer tok-9" {
		t.Errorf("handshake auth = %q, want bearer credential", auth)
	}

	ps.push(t, "container_update")
	select {
	case <-reg.refreshed:
	case <-time.After(3 * time.Second):
		t.Fatal("push did not trigger a registry refresh")
	}

	// Unrelated events are ignored.
	ps.push(t, "ping")
	select {
	case <-reg.refreshed:
		t.Fatal("unexpected refresh for an unrelated event")
	case <-time.After(50 * time.Millisecond):
	}

	if n := notif.count.Load(); n != 0 {
		t.Errorf("notifications = %d, want 0 while healthy", n)
	}
}

func TestChannelRequiresCredential(t *testing.T) {
	ps := newPushServer(t)
	ch := newTestChannel(ps.url(), session.New(""), newFakeRegistry(), &countingNotifier{}, 3)

	if err := ch.Run(); err != models.ErrUnauthenticated {
		t.Errorf("Run() = %v, want ErrUnauthenticated", err)
	}
	if st := ch.Status().State; st != models.SyncDisconnected {
		t.Errorf("state = %s, want disconnected", st)
	}
}

func TestChannelFailsAfterBoundedRetries(t *testing.T) {
	// A plain HTTP endpoint refuses every websocket upgrade.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer srv.Close()

	notif := &countingNotifier{}
	ch := newTestChannel("ws"+strings.TrimPrefix(srv.URL, "http"), session.New("tok"), newFakeRegistry(), notif, 3)
	defer ch.Close()

	if err := ch.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	waitFor(t, "failed state", func() bool { return ch.Status().State == models.SyncFailed })

	if got := ch.Status().Attempts; got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	// Exactly one notification, on exhaustion, not one per attempt. Give any
	// stray retry a moment to misbehave before asserting.
	time.Sleep(100 * time.Millisecond)
	if n := notif.count.Load(); n != 1 {
		t.Errorf("notifications = %d, want exactly 1", n)
	}
	if st := ch.Status().State; st != models.SyncFailed {
		t.Errorf("state = %s, want failed (no further attempts)", st)
	}
}

func TestChannelResetsCounterOnSuccess(t *testing.T) {
	// Refuse the first two upgrades, then accept.
	var handshakes atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handshakes.Add(1) <= 2 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	notif := &countingNotifier{}
	ch := newTestChannel("ws"+strings.TrimPrefix(srv.URL, "http"), session.New("tok"), newFakeRegistry(), notif, 5)
	defer ch.Close()

	if err := ch.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	waitFor(t, "connection after retries", func() bool { return ch.Status().State == models.SyncConnected })

	if got := ch.Status().Attempts; got != 0 {
		t.Errorf("attempts = %d, want 0 after a successful connect", got)
	}
	if n := notif.count.Load(); n != 0 {
		t.Errorf("notifications = %d, want 0 (the budget was never exhausted)", n)
	}
}

func TestChannelRunIsIdempotent(t *testing.T) {
	ps := newPushServer(t)
	ch := newTestChannel(ps.url(), session.New("tok"), newFakeRegistry(), &countingNotifier{}, 3)
	defer ch.Close()

	if err := ch.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	waitFor(t, "connection", func() bool { return ch.Status().State == models.SyncConnected })

	// Re-opening while active is a no-op; the existing connection stays.
	if err := ch.Run(); err != nil {
		t.Errorf("second Run() = %v, want nil no-op", err)
	}
	ps.mu.Lock()
	conns := len(ps.conns)
	ps.mu.Unlock()
	if conns != 1 {
		t.Errorf("connections = %d, want 1", conns)
	}
}

func TestChannelCloseStopsRetries(t *testing.T) {
	var handshakes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshakes.Add(1)
		http.Error(w, "no", http.StatusForbidden)
	}))
	defer srv.Close()

	ch := New("ws"+strings.TrimPrefix(srv.URL, "http"), session.New("tok"), newFakeRegistry(), &countingNotifier{}, 1000, 50*time.Millisecond, logger.NewNop())

	if err := ch.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	waitFor(t, "first attempt", func() bool { return handshakes.Load() >= 1 })

	ch.Close()
	settled := handshakes.Load()
	time.Sleep(200 * time.Millisecond)
	if got := handshakes.Load(); got != settled {
		t.Errorf("attempts continued after Close: %d -> %d", settled, got)
	}

	st := ch.Status()
	if st.State != models.SyncDisconnected || st.Attempts != 0 {
		t.Errorf("status after Close = %+v, want disconnected with counter discarded", st)
	}
}

func TestChannelReconnectsAfterDrop(t *testing.T) {
	ps := newPushServer(t)
	reg := newFakeRegistry()
	ch := newTestChannel(ps.url(), session.New("tok"), reg, &countingNotifier{}, 5)
	defer ch.Close()

	if err := ch.Run(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	waitFor(t, "connection", func() bool { return ch.Status().State == models.SyncConnected })

	// Drop the server side of the connection; the channel must come back.
	ps.mu.Lock()
	ps.conns[0].Close()
	ps.mu.Unlock()

	waitFor(t, "reconnection", func() bool {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		return len(ps.conns) == 2 && ch.Status().State == models.SyncConnected
	})

	ps.push(t, "container_update")
	select {
	case <-reg.refreshed:
	case <-time.After(3 * time.Second):
		t.Fatal("push after reconnect did not trigger a refresh")
	}
}
