package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// client embrulha a conexão com um mutex próprio de escrita: Broadcast e a
// resposta de ping podem escrever na mesma conexão ao mesmo tempo.
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) send(messageType int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) sendJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub gerencia conexões WebSocket e assinaturas por símbolo
// subs: mapeia símbolo para o conjunto de clientes inscritos
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// symbol -> set of clients
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe por símbolo e responde a pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	cl := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.Symbol]; !ok {
				h.subs[msg.Symbol] = make(map[*client]struct{})
			}
			h.subs[msg.Symbol][cl] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.Symbol]; ok {
				delete(m, cl)
				if len(m) == 0 {
					delete(h.subs, msg.Symbol)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = cl.sendJSON(map[string]string{"type": "pong"})
		}
	}
	// Remove o cliente de todas as assinaturas ao desconectar
	h.mu.Lock()
	for sym, set := range h.subs {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.subs, sym)
		}
	}
	h.mu.Unlock()
}

// Broadcast envia uma atualização de preço para os clientes inscritos no
// símbolo. O conjunto é copiado sob lock; a iteração nunca toca o mapa que
// HandleWS muta.
func (h *Hub) Broadcast(update PriceUpdate) {
	h.mu.RLock()
	set := h.subs[update.Symbol]
	targets := make([]*client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range targets {
		_ = c.send(websocket.TextMessage, b)
	}
}
