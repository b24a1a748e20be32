package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/edvin/mailtrack/internal/api/response"
	"github.com/edvin/mailtrack/internal/events"
)

const (
	streamPingInterval = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

type Stream struct {
	sub            events.Subscriber
	originPatterns []string
}

// NewStream serves the change feed. Browser clients must come from the
// server's own host or one of allowedOrigins ("https://app.example.com" or
// "*"); requests without an Origin header are accepted.
func NewStream(sub events.Subscriber, allowedOrigins []string) *Stream {
	return &Stream{sub: sub, originPatterns: originPatterns(allowedOrigins)}
}

// originPatterns reduces CORS-style origins to the host patterns the
// websocket handshake matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" || !strings.Contains(o, "://") {
			out = append(out, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}

// Connect upgrades to WebSocket and forwards change notifications as text
// frames. The optional "topic" query parameter narrows the feed (default ">").
func (h *Stream) Connect(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = ">"
	}

	feed, unsubscribe, err := h.sub.Subscribe(topic)
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("stream subscribe failed")
		response.WriteError(w, http.StatusServiceUnavailable, "change feed unavailable")
		return
	}
	defer unsubscribe()

	// The stream outlives the server's read and write timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		logger.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	// The client never sends; CloseRead cancels ctx when it goes away.
	ctx := ws.CloseRead(r.Context())

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-feed:
			if !ok {
				ws.Close(websocket.StatusGoingAway, "change feed closed")
				return
			}
			if err := write(ctx, ws, msg); err != nil {
				logger.Debug().Err(err).Msg("stream client write failed")
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := ws.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, ws *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, msg)
}
