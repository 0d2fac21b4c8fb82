package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubPing(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialHub(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))

	var resp map[string]string
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "pong", resp["type"])
}

func TestHubSubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialHub(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", Symbol: "AAPL"}))

	// sincroniza com o processamento da subscribe via ping/pong
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))

	hub.Broadcast(PriceUpdate{Symbol: "AAPL", Payload: map[string]any{"price": "190.00"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var upd PriceUpdate
	require.NoError(t, json.Unmarshal(msg, &upd))
	assert.Equal(t, "AAPL", upd.Symbol)
}

func TestHubBroadcastIgnoresOtherSymbols(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialHub(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", Symbol: "AAPL"}))
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))

	hub.Broadcast(PriceUpdate{Symbol: "TSLA", Payload: "x"})

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err) // timeout: nada foi recebido
}

func TestHubBroadcastWhileClientsJoin(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	first := dialHub(t, hub)

	require.NoError(t, first.WriteJSON(ClientMsg{Type: "subscribe", Symbol: "AAPL"}))
	require.NoError(t, first.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, first.ReadJSON(&pong))

	// broadcasts concorrendo com subscribes de novas conexões
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			hub.Broadcast(PriceUpdate{Symbol: "AAPL", Payload: "tick"})
		}
	}()
	for i := 0; i < 20; i++ {
		c := dialHub(t, hub)
		require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", Symbol: "AAPL"}))
	}
	<-done

	// o assinante original segue recebendo atualizações
	hub.Broadcast(PriceUpdate{Symbol: "AAPL", Payload: "tick"})
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := first.ReadMessage()
	require.NoError(t, err)

	var upd PriceUpdate
	require.NoError(t, json.Unmarshal(msg, &upd))
	assert.Equal(t, "AAPL", upd.Symbol)
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	conn := dialHub(t, hub)

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", Symbol: "AAPL"}))
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe", Symbol: "AAPL"}))
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))

	hub.Broadcast(PriceUpdate{Symbol: "AAPL", Payload: "x"})

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
