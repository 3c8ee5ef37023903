package syncchan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nothingcube/regsync/internal/models"
	"github.com/nothingcube/regsync/internal/session"
	"github.com/nothingcube/regsync/pkg/logger"
)

const (
	// handshakeTimeout bounds a single websocket dial.
	handshakeTimeout = 10 * time.Second

	// eventContainerUpdate is the only event the registry pushes. It carries
	// no payload beyond the trigger itself.
	eventContainerUpdate = "container_update"
)

// event is the wire shape of a push notification.
type event struct {
	Event string `json:"event"`
}

// Channel maintains the persistent push connection to the remote registry.
// It only receives; the client never sends through it. On a connect error it
// retries with a fixed delay up to a configured attempt count, then gives up
// with a single operator notification.
type Channel struct {
	logger   *logger.Logger
	url      string
	session  *session.Session
	registry models.RegistryI
	notifier models.Notifier

	maxAttempts int
	retryDelay  time.Duration
	dialer      *websocket.Dialer

	mu       sync.Mutex
	state    models.SyncState
	attempts int
	running  bool
	cancel   context.CancelFunc
	conn     *websocket.Conn

	wg sync.WaitGroup
}

// New creates a sync channel. maxAttempts and retryDelay come from
// configuration; they are deployment constants.
func New(url string, sess *session.Session, registry models.RegistryI, notifier models.Notifier, maxAttempts int, retryDelay time.Duration, logger *logger.Logger) *Channel {
	return &Channel{
		logger:      logger,
		url:         url,
		session:     sess,
		registry:    registry,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		state: models.SyncDisconnected,
	}
}

// Run opens the channel and starts the receive loop in the background.
// Calling Run while the channel is already active is a no-op; at most one
// channel runs per session. It fails fast when no credential is held.
func (c *Channel) Run() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	if !c.session.Authenticated() {
		c.mu.Unlock()
		return models.ErrUnauthenticated
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.cancel = cancel
	c.attempts = 0
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx)
		cancel()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()
	return nil
}

// Status returns the current connection state and retry counter.
func (c *Channel) Status() models.SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.SyncStatus{State: c.state, Attempts: c.attempts}
}

// Close tears the channel down immediately: the connection is closed, any
// scheduled retry is cancelled and the retry counter is discarded. No
// reconnection attempt may happen afterwards.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()

	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.state = models.SyncDisconnected
	c.attempts = 0
	c.mu.Unlock()
}

func (c *Channel) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, models.ErrUnauthenticated) {
				// Credential gone mid-flight; teardown is on its way.
				c.mu.Lock()
				c.state = models.SyncDisconnected
				c.mu.Unlock()
				return
			}
			if c.registerFailure(err) {
				return
			}
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		c.receive(ctx, conn)
	}
}

// connect performs a single dial, authenticating the handshake with the
// session credential.
func (c *Channel) connect(ctx context.Context) (*websocket.Conn, error) {
	token := c.session.Token()
	if token == "" {
		return nil, models.ErrUnauthenticated
	}

	c.mu.Lock()
	if c.attempts == 0 && c.state != models.SyncReconnecting {
		c.state = models.SyncConnecting
	} else {
		c.state = models.SyncReconnecting
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, &models.TransportError{Attempt: c.Status().Attempts + 1, Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.attempts = 0
	c.state = models.SyncConnected
	c.mu.Unlock()

	c.logger.Info("Sync channel connected ", "url ", c.url)
	return conn, nil
}

// registerFailure counts one failed attempt. It returns true when the retry
// budget is exhausted: the channel enters the Failed state and the operator
// gets exactly one notification, never one per attempt.
func (c *Channel) registerFailure(err error) bool {
	c.mu.Lock()
	c.attempts++
	attempts := c.attempts
	exhausted := attempts >= c.maxAttempts
	if exhausted {
		c.state = models.SyncFailed
	}
	c.mu.Unlock()

	c.logger.Warn("Sync channel connect failed ", "attempt ", attempts, "error ", err)
	if exhausted {
		c.logger.Error("Sync channel gave up after ", attempts, " attempts")
		c.notifier.Notify(models.LevelError, "Connection to the registry server failed")
	}
	return exhausted
}

// receive reads push events until the connection drops. A registry-changed
// event triggers a refresh; refresh errors are logged but never break the
// subscription, since the store reports them through its own notifier.
func (c *Channel) receive(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Sync channel connection lost ", "error ", err)
			c.mu.Lock()
			c.state = models.SyncReconnecting
			c.mu.Unlock()
			return
		}

		if ev.Event != eventContainerUpdate {
			c.logger.Debug("Ignoring sync event ", "event ", ev.Event)
			continue
		}

		c.logger.Debug("Registry changed, refreshing snapshot")
		if err := c.registry.Refresh(ctx); err != nil {
			c.logger.Error("Failed to refresh registry after push ", "error ", err)
		}
	}
}

var _ models.SyncSource = (*Channel)(nil)

// String makes channel state readable in structured logs.
func (c *Channel) String() string {
	st := c.Status()
	return fmt.Sprintf("syncchan{state=%s attempts=%d}", st.State, st.Attempts)
}
