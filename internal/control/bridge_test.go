package control

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSwitch struct {
	muted atomic.Bool
}

func (f *fakeSwitch) SetMuted(m bool) { f.muted.Store(m) }
func (f *fakeSwitch) Muted() bool     { return f.muted.Load() }
func (f *fakeSwitch) ToggleMuted() bool {
	for {
		old := f.muted.Load()
		if f.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func dialBridge(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) stateMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg stateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "state", msg.Type)
	return msg
}

func TestBridgeSendsStateOnConnect(t *testing.T) {
	sw := &fakeSwitch{}
	sw.SetMuted(true)
	bridge := NewBridge(sw, nil)
	defer bridge.Close()

	srv := httptest.NewServer(bridge)
	defer srv.Close()

	conn := dialBridge(t, srv)
	assert.True(t, readState(t, conn).Muted)
}

func TestBridgeSetMute(t *testing.T) {
	sw := &fakeSwitch{}
	bridge := NewBridge(sw, nil)
	defer bridge.Close()

	srv := httptest.NewServer(bridge)
	defer srv.Close()

	conn := dialBridge(t, srv)
	assert.False(t, readState(t, conn).Muted)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "set_mute", Muted: true}))
	assert.True(t, readState(t, conn).Muted)
	assert.True(t, sw.Muted())
}

func TestBridgeToggleReachesAllClients(t *testing.T) {
	sw := &fakeSwitch{}
	bridge := NewBridge(sw, nil)
	defer bridge.Close()

	srv := httptest.NewServer(bridge)
	defer srv.Close()

	a := dialBridge(t, srv)
	b := dialBridge(t, srv)
	readState(t, a)
	readState(t, b)

	require.NoError(t, a.WriteJSON(clientMessage{Type: "toggle_mute"}))

	assert.True(t, readState(t, a).Muted)
	assert.True(t, readState(t, b).Muted)
}

func TestBridgeStatusRequest(t *testing.T) {
	sw := &fakeSwitch{}
	bridge := NewBridge(sw, nil)
	defer bridge.Close()

	srv := httptest.NewServer(bridge)
	defer srv.Close()

	conn := dialBridge(t, srv)
	readState(t, conn)

	sw.SetMuted(true)
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "status"}))
	assert.True(t, readState(t, conn).Muted)
}
