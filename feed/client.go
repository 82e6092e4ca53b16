// Package feed owns the streaming progress channel for one project: it
// maintains the connection, parses inbound events, keeps the latest progress
// snapshot, and forwards human-readable entries to the activity log.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/storyloom/storyloom/logbuf"
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var ErrAlreadyConnected = errors.New("feed: already connected")

// Conn is the subset of the websocket connection the client reads from.
type Conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

func defaultDial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Options struct {
	Logs       *logbuf.Buffer
	OnComplete func(CompleteEvent)
	OnChange   func()

	// Reconnect backoff bounds. Zero values fall back to 500ms / 30s.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// Dial overrides the websocket dialer, used by tests.
	Dial DialFunc
}

type Client struct {
	url            string
	logs           *logbuf.Buffer
	onComplete     func(CompleteEvent)
	onChange       func()
	dial           DialFunc
	backoffInitial time.Duration
	backoffMax     time.Duration

	mu       sync.Mutex
	state    ConnState
	snapshot Snapshot
	cancel   context.CancelFunc
	done     chan struct{}
}

// StreamURL derives the websocket endpoint for a project from the backend's
// base HTTP URL.
func StreamURL(serverURL string, projectID int) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/ws/projects/%d", projectID)
	return u.String(), nil
}

func NewClient(serverURL string, projectID int, opts Options) (*Client, error) {
	streamURL, err := StreamURL(serverURL, projectID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		url:            streamURL,
		logs:           opts.Logs,
		onComplete:     opts.OnComplete,
		onChange:       opts.OnChange,
		dial:           opts.Dial,
		backoffInitial: opts.BackoffInitial,
		backoffMax:     opts.BackoffMax,
	}
	if c.logs == nil {
		c.logs = logbuf.New(0)
	}
	if c.dial == nil {
		c.dial = defaultDial
	}
	if c.backoffInitial <= 0 {
		c.backoffInitial = 500 * time.Millisecond
	}
	if c.backoffMax <= 0 {
		c.backoffMax = 30 * time.Second
	}
	return c, nil
}

// Connect opens the streaming channel and keeps it alive until Disconnect or
// ctx cancellation. Exactly one channel exists per client.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state = Connecting
	done := c.done
	c.mu.Unlock()
	c.notify()

	go c.run(runCtx, done)
	return nil
}

// Disconnect tears the channel down and waits for the run loop to exit.
// Safe to call more than once.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *Client) Logs() *logbuf.Buffer {
	return c.logs
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setState(Disconnected)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.backoffInitial
	bo.MaxInterval = c.backoffMax
	bo.MaxElapsedTime = 0

	for {
		conn, err := c.dial(ctx, c.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logs.Append(logbuf.LevelError, "Connection error")
			c.notify()
			if !c.sleep(ctx, bo.NextBackOff()) {
				return
			}
			continue
		}

		c.setState(Connected)
		bo.Reset()

		err = c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logs.Append(logbuf.LevelWarn, "Disconnected from server")
		} else {
			c.logs.Append(logbuf.LevelError, "Connection error")
		}
		c.setState(Connecting)
		if !c.sleep(ctx, bo.NextBackOff()) {
			return
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	// ReadMessage blocks; close the connection when the context ends so the
	// loop unblocks promptly.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(raw)
	}
}

// handleFrame applies one inbound event. Events are processed strictly in
// arrival order; only this method mutates the snapshot and the log.
func (c *Client) handleFrame(raw []byte) {
	ev, err := ParseEvent(raw)
	if err != nil {
		c.logs.Appendf(logbuf.LevelWarn, "Dropped malformed event: %v", err)
		c.notify()
		return
	}

	switch ev := ev.(type) {
	case ConnectedEvent:
		c.logs.Append(logbuf.LevelOK, "Connected to server")
	case ProgressEvent:
		snap := snapshotFromProgress(ev)
		c.mu.Lock()
		c.snapshot = snap
		c.mu.Unlock()
		c.logs.Appendf(logbuf.LevelInfo, "Chapter %d: %s", snap.Chapter, snap.StatusLine())
	case ChapterCompleteEvent:
		c.logs.Appendf(logbuf.LevelOK, "✓ Chapter %d complete (%d words)", ev.Chapter, ev.WordCount)
	case ErrorEvent:
		c.logs.Appendf(logbuf.LevelError, "✗ Error: %s", ev.Error)
	case CompleteEvent:
		c.logs.Appendf(logbuf.LevelOK, "✓ Generation complete! %d words across %d chapters", ev.TotalWords, ev.TotalChapters)
		if c.onComplete != nil {
			c.onComplete(ev)
		}
	case HeartbeatEvent:
		// Keepalive only. No log entry, no snapshot change, no notification.
		return
	case UnknownEvent:
		c.logs.Appendf(logbuf.LevelInfo, "Received: %s", ev.Type)
	}
	c.notify()
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Client) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
