// Package control exposes the mute switch to UI clients over a
// websocket. Every connected client receives the current state on
// connect and on each change.
package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// MuteController is the daemon-side switch the bridge drives.
type MuteController interface {
	SetMuted(bool)
	Muted() bool
	ToggleMuted() bool
}

type clientMessage struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted"`
}

type stateMessage struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted"`
}

type Bridge struct {
	ctl      MuteController
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex
}

func NewBridge(ctl MuteController, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		ctl:   ctl,
		log:   log.With("component", "control"),
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()

	b.send(conn, stateMessage{Type: "state", Muted: b.ctl.Muted()})
	go b.readLoop(conn)
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer b.drop(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.log.Warn("bad control message", "err", err)
			continue
		}

		switch msg.Type {
		case "set_mute":
			b.ctl.SetMuted(msg.Muted)
			b.Broadcast()
		case "toggle_mute":
			b.ctl.ToggleMuted()
			b.Broadcast()
		case "status":
			b.send(conn, stateMessage{Type: "state", Muted: b.ctl.Muted()})
		default:
			b.log.Warn("unknown control message", "type", msg.Type)
		}
	}
}

// Broadcast pushes the current mute state to every connected client.
// The daemon also calls this when the state changes outside the bridge.
func (b *Bridge) Broadcast() {
	state := stateMessage{Type: "state", Muted: b.ctl.Muted()}

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		b.send(c, state)
	}
}

func (b *Bridge) send(conn *websocket.Conn, msg stateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	b.writeMu.Unlock()
	if err != nil {
		b.drop(conn)
	}
}

func (b *Bridge) drop(conn *websocket.Conn) {
	b.mu.Lock()
	_, ok := b.conns[conn]
	delete(b.conns, conn)
	b.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (b *Bridge) Close() {
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.conns = make(map[*websocket.Conn]struct{})
	b.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
