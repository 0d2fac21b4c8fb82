package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stockbet/stockbet-platform/internal/market-ingest/publisher"
	"github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

// WSClient consome o feed de mercado de um fornecedor via WebSocket e
// publica ticks e resoluções nos tópicos Kafka correspondentes.
type WSClient struct {
	URL     string                    // URL do endpoint WebSocket do fornecedor
	Log     *zap.Logger               // Logger estruturado
	Ticks   *publisher.KafkaPublisher // Publisher do tópico de ticks
	Results *publisher.KafkaPublisher // Publisher do tópico de resoluções
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, tenta reconectar automaticamente com backoff.
func (c *WSClient) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		default:
			if err := c.connectAndListen(ctx); err != nil {
				c.Log.Warn("connection closed", zap.Error(err))
				time.Sleep(3 * time.Second) // Aguarda antes de tentar reconectar
			}
		}
	}
}

// connectAndListen estabelece a conexão WebSocket e processa mensagens recebidas.
// Cada mensagem é um envelope com tipo "tick" ou "result".
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to feed WS", zap.String("url", c.URL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Log.Error("read message failed", zap.Error(err))
			return err
		}

		var env events.FeedMessage
		if err := json.Unmarshal(message, &env); err != nil {
			c.Log.Warn("invalid message", zap.Error(err))
			continue
		}

		switch {
		case env.Type == "tick" && env.Tick != nil:
			if err := c.Ticks.PublishTick(ctx, *env.Tick); err != nil {
				c.Log.Error("failed to publish tick", zap.Error(err))
			}
		case env.Type == "result" && env.Result != nil:
			if err := c.Results.PublishResult(ctx, *env.Result); err != nil {
				c.Log.Error("failed to publish result", zap.Error(err))
			}
		default:
			c.Log.Warn("unknown feed message type", zap.String("type", env.Type))
		}
	}
}
