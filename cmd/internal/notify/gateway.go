package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultQueueSize    = 64
)

// WSGateway serves the /ws/{recipient} notification stream.
type WSGateway struct {
	log *slog.Logger
	hub *Hub

	originPatterns []string
	writeTimeout   time.Duration
	queueSize      int
}

// GatewayOption configures a WSGateway.
type GatewayOption func(*WSGateway)

// WithOriginPatterns sets the host patterns accepted for cross-origin
// upgrades (see websocket.AcceptOptions.OriginPatterns).
func WithOriginPatterns(patterns []string) GatewayOption {
	return func(g *WSGateway) { g.originPatterns = patterns }
}

// WithWriteTimeout sets the per-event write timeout.
func WithWriteTimeout(d time.Duration) GatewayOption {
	return func(g *WSGateway) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

// NewWSGateway constructs a gateway over the given hub.
func NewWSGateway(log *slog.Logger, hub *Hub, opts ...GatewayOption) *WSGateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	g := &WSGateway{
		log:          log,
		hub:          hub,
		writeTimeout: wsDefaultWriteTimeout,
		queueSize:    wsDefaultQueueSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// HandleWS upgrades the connection and streams events for the recipient in
// the request path until either side goes away.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	recipient := strings.TrimSpace(r.PathValue("recipient"))
	if recipient == "" {
		http.Error(w, "missing recipient", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("ws.accept.fail", "recipient", recipient, "err", err)
		return
	}
	defer conn.CloseNow()

	sub := g.hub.Subscribe(recipient, g.queueSize)
	defer g.hub.Unsubscribe(recipient, sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain the read side so close frames and pings are processed; any read
	// error means the client is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	g.log.Info("ws.subscribed", "recipient", recipient)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-sub.C:
			if err := g.writeEvent(ctx, conn, ev); err != nil {
				g.log.Info("ws.write.fail", "recipient", recipient, "err", err)
				return
			}
		}
	}
}

func (g *WSGateway) writeEvent(parent context.Context, conn *websocket.Conn, ev Event) error {
	buf, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, g.writeTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, buf)
}
