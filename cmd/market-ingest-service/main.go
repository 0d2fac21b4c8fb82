package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stockbet/stockbet-platform/internal/market-ingest/publisher"
	"github.com/stockbet/stockbet-platform/internal/market-ingest/service"
	"github.com/stockbet/stockbet-platform/internal/shared/config"
	"github.com/stockbet/stockbet-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokers := strings.Split(cfg.KafkaBrokers, ",")

	// Kafka Publishers (ticks e resoluções em tópicos separados)
	tickPub := publisher.NewKafkaPublisher(brokers, cfg.TopicMarketTicks, log)
	defer tickPub.Close()
	resultPub := publisher.NewKafkaPublisher(brokers, cfg.TopicMarketResults, log)
	defer resultPub.Close()

	// WS Client
	wsClient := &service.WSClient{
		URL:     cfg.FeedWSURL,
		Log:     log,
		Ticks:   tickPub,
		Results: resultPub,
	}
	go wsClient.Start(ctx)

	// Metrics e health
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health listening", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	time.Sleep(2 * time.Second)
}
