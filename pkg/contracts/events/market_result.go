package events

import "time"

// Evento publicado no tópico "market_results" quando um mercado é resolvido.
// Outcome indica a direção vencedora ("up" | "down").
type MarketResult struct {
	Market  string    `json:"market"`
	Outcome string    `json:"outcome"`
	Ts      time.Time `json:"ts"`
	Source  string    `json:"source"`
}

// Envelope das mensagens enviadas pelo feed via WebSocket.
// Type: "tick" | "result"
type FeedMessage struct {
	Type   string        `json:"type"`
	Tick   *MarketTick   `json:"tick,omitempty"`
	Result *MarketResult `json:"result,omitempty"`
}
