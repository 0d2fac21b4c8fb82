package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockbet/stockbet-platform/internal/auth"
	"github.com/stockbet/stockbet-platform/internal/shared/cache"
	"github.com/stockbet/stockbet-platform/internal/shared/config"
	"github.com/stockbet/stockbet-platform/internal/shared/db"
	sharedkafka "github.com/stockbet/stockbet-platform/internal/shared/kafka"
	"github.com/stockbet/stockbet-platform/internal/shared/logger"
	"github.com/stockbet/stockbet-platform/internal/shared/metrics"
	"github.com/stockbet/stockbet-platform/pkg/contracts/topics"

	accthttp "github.com/stockbet/stockbet-platform/internal/account-service/http"
	acctrepo "github.com/stockbet/stockbet-platform/internal/account-service/repo"
	bethttp "github.com/stockbet/stockbet-platform/internal/bet-service/http"
	betmarket "github.com/stockbet/stockbet-platform/internal/bet-service/market"
	betproducer "github.com/stockbet/stockbet-platform/internal/bet-service/producer"
	betrepo "github.com/stockbet/stockbet-platform/internal/bet-service/repo"
	ipohttp "github.com/stockbet/stockbet-platform/internal/ipo-service/http"
	iporepo "github.com/stockbet/stockbet-platform/internal/ipo-service/repo"
	marketcache "github.com/stockbet/stockbet-platform/internal/market-service/cache"
	markethttp "github.com/stockbet/stockbet-platform/internal/market-service/http"
	marketrepo "github.com/stockbet/stockbet-platform/internal/market-service/repo"
	marketws "github.com/stockbet/stockbet-platform/internal/market-service/ws"
	portfoliohttp "github.com/stockbet/stockbet-platform/internal/portfolio-service/http"
	portfoliorepo "github.com/stockbet/stockbet-platform/internal/portfolio-service/repo"
	wallethttp "github.com/stockbet/stockbet-platform/internal/wallet-service/http"
	walletrepo "github.com/stockbet/stockbet-platform/internal/wallet-service/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Banco de dados + migrações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := db.MigrateUp(cfg.PostgresDSN, migrationsDir); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis (cache de preços e pub/sub do WS)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka producers dos eventos de aposta
	placedWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, topics.BetPlaced)
	defer placedWriter.Close()
	settledWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, topics.BetSettled)
	defer settledWriter.Close()
	betPub := betproducer.NewKafkaPublisher(placedWriter, settledWriter)

	// Auth (JWT)
	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	authMW := tokens.Middleware

	payoutMult, err := decimal.NewFromString(cfg.PayoutMultiplier)
	if err != nil {
		log.Fatal("invalid PAYOUT_MULTIPLIER", zap.String("value", cfg.PayoutMultiplier), zap.Error(err))
	}

	// Repositórios
	accounts := acctrepo.NewPostgres(pg)
	wallet := walletrepo.NewPostgres(pg)
	bets := betrepo.NewPostgres(pg)
	ipos := iporepo.NewPostgres(pg)
	portfolio := portfoliorepo.NewPostgres(pg)
	marketRead := &marketrepo.ReadRepo{DB: pg}
	priceCache := marketcache.New(redisClient)
	priceValidator := betmarket.NewValidator(redisClient)

	// Hub WebSocket alimentado pelo Redis Pub/Sub do processor
	hub := marketws.NewHub(func(r *http.Request) bool { return true })
	marketws.StartRedisSubscriber(context.Background(), redisClient, hub)

	// Servidores de domínio
	acctSrv := accthttp.NewServer(log, accounts, tokens)
	walletSrv := wallethttp.NewServer(log, wallet, accounts, authMW)
	betSrv := bethttp.NewServer(log, bets, priceValidator, betPub, payoutMult, authMW)
	ipoSrv := ipohttp.NewServer(log, ipos, authMW)
	portfolioSrv := portfoliohttp.NewServer(log, portfolio, authMW)
	marketAPI := &markethttp.API{ReadRepo: marketRead, Cache: priceCache, Hub: hub}

	// Roteador raiz
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "StockBet Backend API is running"}`))
	})
	r.Mount("/users", acctSrv.Router())
	r.Mount("/banking", walletSrv.Router())
	r.Mount("/bets", betSrv.Router())
	r.Mount("/ipo", ipoSrv.Router())
	r.Mount("/portfolio", portfolioSrv.Router())
	r.Mount("/market", marketAPI.Router())

	// Servidor de métricas e health em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})

	addr := ":" + cfg.HTTPPort
	log.Info("api-service listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil && err != http.ErrServerClosed {
		log.Fatal("api-service failed", zap.Error(err))
	}
}
