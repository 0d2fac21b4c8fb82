package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	betproducer "github.com/stockbet/stockbet-platform/internal/bet-service/producer"
	betrepo "github.com/stockbet/stockbet-platform/internal/bet-service/repo"
	"github.com/stockbet/stockbet-platform/internal/settlement"
	"github.com/stockbet/stockbet-platform/internal/shared/config"
	"github.com/stockbet/stockbet-platform/internal/shared/db"
	"github.com/stockbet/stockbet-platform/internal/shared/kafka"
	"github.com/stockbet/stockbet-platform/internal/shared/logger"
	ev "github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com banco de dados Postgres para liquidação das apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome resoluções de mercado
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMarketResults, "settlement")
	defer reader.Close()

	// Kafka producer: publica eventos bet_settled e, opcionalmente, envia para DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicMarketResultDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketResultDLQ)
		defer dlqWriter.Close()
	}

	mult, err := decimal.NewFromString(cfg.PayoutMultiplier)
	if err != nil {
		log.Fatal("invalid PAYOUT_MULTIPLIER", zap.String("value", cfg.PayoutMultiplier), zap.Error(err))
	}

	// Métricas Prometheus do fluxo de liquidação
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_settled_total", Help: "apostas liquidadas por status"}, []string{"status"})
	procErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros de liquidação"})
	prometheus.MustRegister(settled, procErrors)

	bets := betrepo.NewPostgres(pg)
	engine := &settlement.Engine{
		Log:  log,
		Bets: bets,
		Publ: betproducer.NewKafkaPublisher(nil, settledWriter),
		Mult: mult,
		DLQWrite: func(ctx context.Context, key string, payload []byte) error {
			if dlqWriter == nil {
				return nil
			}
			return kafka.WriteJSON(ctx, dlqWriter, key, payload)
		},
		OnSettled: func(status string) { settled.WithLabelValues(status).Inc() },
		OnError:   func() { procErrors.Inc() },
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMarketResults),
		zap.String("publish", cfg.TopicBetSettled),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Loop principal: consome resoluções do Kafka e liquida as apostas do mercado
	for {
		_, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("settlement-worker stopped")
				return
			}
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var res ev.MarketResult
		if jerr := json.Unmarshal(value, &res); jerr != nil {
			log.Error("unmarshal market_result", zap.Error(jerr))
			continue
		}

		if err := engine.ProcessResult(ctx, res); err != nil {
			log.Error("process result", zap.String("market", res.Market), zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}
