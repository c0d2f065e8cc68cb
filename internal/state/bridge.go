package state

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	ws "github.com/coder/websocket"

	"github.com/mwilkes/basket/internal/feed"
)

// Bridge connects the server's change feed to the Store. It dials /ws with
// the session's bearer token, decodes events, and dispatches Store.Apply.
// There is no automatic reconnect: when the connection drops, the recovery
// path is Store.Refresh followed by a new Dial.
type Bridge struct {
	store  *Store
	logger *slog.Logger

	mu     sync.Mutex
	conn   *ws.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBridge(store *Store, logger *slog.Logger) *Bridge {
	return &Bridge{store: store, logger: logger}
}

// Dial connects to the server's feed endpoint and starts the read loop.
// baseURL is the server's HTTP base URL; the scheme is rewritten to ws/wss.
func (b *Bridge) Dial(ctx context.Context, baseURL, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		select {
		case <-b.done:
			// Previous connection died on its own; reap it so redial works.
			b.cancel()
			b.conn.Close(ws.StatusNormalClosure, "stale")
			b.conn, b.cancel, b.done = nil, nil, nil
		default:
			return fmt.Errorf("bridge: already connected")
		}
	}

	wsURL, err := feedURL(baseURL, token)
	if err != nil {
		return err
	}

	conn, _, err := ws.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("bridge: dial: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	b.conn = conn
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.readLoop(loopCtx, conn, b.done)
	return nil
}

func (b *Bridge) readLoop(ctx context.Context, conn *ws.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("feed connection closed", "error", err)
			}
			return
		}

		ev, err := feed.Decode(data)
		if err != nil {
			b.logger.Warn("undecodable feed event", "error", err)
			continue
		}
		b.store.Apply(ev)
	}
}

// Close tears the connection down and waits for the read loop to exit.
// Called on sign-out.
func (b *Bridge) Close() {
	b.mu.Lock()
	conn, cancel, done := b.conn, b.cancel, b.done
	b.conn = nil
	b.cancel = nil
	b.done = nil
	b.mu.Unlock()

	if conn == nil {
		return
	}
	cancel()
	conn.Close(ws.StatusNormalClosure, "signed out")
	<-done
}

// Connected reports whether the feed is live. A connection the server has
// dropped counts as disconnected as soon as the read loop exits, so pollers
// gating on Connected fall back to refreshing promptly.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

func feedURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("bridge: parse base url: %w", err)
	}
	switch {
	case u.Scheme == "https":
		u.Scheme = "wss"
	case u.Scheme == "http":
		u.Scheme = "ws"
	case !strings.HasPrefix(u.Scheme, "ws"):
		return "", fmt.Errorf("bridge: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
