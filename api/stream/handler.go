// Package stream pushes engine events to websocket clients.
package stream

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/robotaxi/core/sim"
	"github.com/kilianp07/robotaxi/infra/logger"
	"github.com/kilianp07/robotaxi/internal/eventbus"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Handler serves GET /api/stream. Each client gets its own bus subscription;
// ?kind=a,b restricts the stream to the listed event kinds.
type Handler struct {
	bus      *eventbus.Bus[sim.Event]
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler streaming events of bus.
func NewHandler(bus *eventbus.Bus[sim.Event], log logger.Logger) *Handler {
	if log == nil {
		log = logger.New("stream")
	}
	return &Handler{
		bus: bus,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kinds := parseKinds(r.URL.Query().Get("kind"))
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	events := h.bus.Subscribe()
	defer h.bus.Unsubscribe(events)
	h.log.Debugf("stream client %s connected", r.RemoteAddr)

	// The read loop only drains control frames and notices disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warnf("stream read: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine stopped")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if len(kinds) > 0 && !kinds[ev.Kind] {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Warnf("stream write: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func parseKinds(s string) map[sim.EventKind]bool {
	if s == "" {
		return nil
	}
	kinds := make(map[sim.EventKind]bool)
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds[sim.EventKind(k)] = true
		}
	}
	return kinds
}
