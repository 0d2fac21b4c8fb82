package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Symbol: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	Symbol string `json:"symbol"` // requerido em subscribe/unsubscribe
}

// PriceUpdate representa uma atualização de preço enviada para clientes WebSocket
type PriceUpdate struct {
	Symbol  string      `json:"symbol"`
	Payload interface{} `json:"payload"`
}
