package api

import (
	"github.com/gorilla/websocket"
	"net/http"
	"time"
)

const (
	// wsWriteWait bounds a single write to a subscriber.
	wsWriteWait = time.Second * 10

	// wsPongWait is how long a subscriber may stay silent before it is
	// considered gone. Pings go out well within it.
	wsPongWait   = time.Second * 60
	wsPingPeriod = wsPongWait * 9 / 10

	// Subscribers only ever send control frames.
	wsMaxInbound = 512
)

// subscriber is one websocket receiving pushed notifications.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// readLoop consumes control frames until the peer goes away. The
// socket is push only so data frames are discarded.
func (s *subscriber) readLoop(h *notificationHub) {
	defer func() {
		select {
		case h.leave <- s:
		case <-h.quit:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(wsMaxInbound)
	s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Errorf("Websocket read error: %s", err)
			}
			return
		}
	}
}

// writeLoop delivers queued notifications and keeps the connection
// alive with pings. It exits when the hub closes the send channel.
func (s *subscriber) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Errorf("Websocket write error: %s", err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// notificationHub fans notifications out to every subscriber. A
// subscriber that falls behind is disconnected rather than allowed to
// stall the node's notifier.
type notificationHub struct {
	subscribers map[*subscriber]struct{}

	notifications chan []byte
	join          chan *subscriber
	leave         chan *subscriber
	quit          chan struct{}
}

func newHub() *notificationHub {
	return &notificationHub{
		subscribers:   make(map[*subscriber]struct{}),
		notifications: make(chan []byte),
		join:          make(chan *subscriber),
		leave:         make(chan *subscriber),
		quit:          make(chan struct{}),
	}
}

func (h *notificationHub) run() {
	for {
		select {
		case s := <-h.join:
			h.subscribers[s] = struct{}{}
			log.Debugf("Websocket subscriber joined, %d connected", len(h.subscribers))
		case s := <-h.leave:
			h.drop(s)
		case m := <-h.notifications:
			for s := range h.subscribers {
				select {
				case s.send <- m:
				default:
					log.Warning("Dropping slow websocket subscriber")
					h.drop(s)
				}
			}
		case <-h.quit:
			for s := range h.subscribers {
				h.drop(s)
			}
			return
		}
	}
}

func (h *notificationHub) drop(s *subscriber) {
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
		close(s.send)
	}
}

// broadcast queues message for every subscriber. It returns once the
// hub has taken the message, or immediately if the hub is stopped.
func (h *notificationHub) broadcast(message []byte) {
	select {
	case h.notifications <- message:
	case <-h.quit:
	}
}

func (h *notificationHub) stop() {
	close(h.quit)
}

type websocketHandler struct {
	hub      *notificationHub
	upgrader *websocket.Upgrader
}

func newWebsocketHandler(hub *notificationHub, checkOrigin func(r *http.Request) bool) *websocketHandler {
	return &websocketHandler{
		hub: hub,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (wsh websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading websocket: %s", err)
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, 256)}
	select {
	case wsh.hub.join <- s:
	case <-wsh.hub.quit:
		conn.Close()
		return
	}
	go s.writeLoop()
	s.readLoop(wsh.hub)
}
