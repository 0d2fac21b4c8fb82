package httpapi

import (
	"context"
	"net/http"
	"time"

	"encoding/json"

	"github.com/go-chi/chi/v5"

	"github.com/stockbet/stockbet-platform/internal/market-service/dto"
	"github.com/stockbet/stockbet-platform/internal/market-service/ws"
)

const historyLimit = 100

// Reader é o repositório de leitura/inserção de ticks (Postgres)
type Reader interface {
	CurrentPrices(ctx context.Context) ([]dto.Price, error)
	History(ctx context.Context, symbol string, limit int) ([]dto.Tick, error)
	AddTick(ctx context.Context, symbol string, price string) (*dto.Tick, error)
}

// PriceCache cobre o snapshot e o preço corrente por símbolo (Redis)
type PriceCache interface {
	GetSnapshot(ctx context.Context, dst any) (bool, error)
	SetSnapshot(ctx context.Context, v any, ttl time.Duration) error
	InvalidateSnapshot(ctx context.Context) error
	SetCurrentPrice(ctx context.Context, symbol, price string, ttl time.Duration) error
}

// API expõe os endpoints REST de consulta de preços de mercado
type API struct {
	ReadRepo Reader     // acesso ao banco de dados
	Cache    PriceCache // snapshot e preço corrente
	Hub      *ws.Hub    // broadcast em tempo real (opcional)
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/data", a.currentPrices)               // Snapshot de preços correntes
	r.Get("/data/{symbol}/history", a.history)    // Série histórica do símbolo
	r.Post("/add", a.addTick)                     // Insere tick manual
	if a.Hub != nil {
		r.Get("/ws", a.Hub.HandleWS) // stream de preços em tempo real
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// currentPrices retorna o snapshot de preços, preferencialmente do cache
func (a *API) currentPrices(w http.ResponseWriter, r *http.Request) {
	var fromCache []dto.Price
	if ok, _ := a.Cache.GetSnapshot(r.Context(), &fromCache); ok {
		writeJSON(w, http.StatusOK, fromCache)
		return
	}

	ps, err := a.ReadRepo.CurrentPrices(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	_ = a.Cache.SetSnapshot(r.Context(), ps, 30*time.Second) // salva no cache por 30s
	writeJSON(w, http.StatusOK, ps)
}

// history retorna os ticks recentes de um símbolo
func (a *API) history(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	ticks, err := a.ReadRepo.History(r.Context(), symbol, historyLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(ticks) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, ticks)
}

// addTick insere um tick manual e invalida o snapshot em cache
func (a *API) addTick(w http.ResponseWriter, r *http.Request) {
	var req dto.AddTickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.Symbol == "" || !req.Price.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol and positive price are required"})
		return
	}

	t, err := a.ReadRepo.AddTick(r.Context(), req.Symbol, req.Price.String())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// mercado criado manualmente já fica apostável: grava a chave por símbolo
	// que a validação de mercado lê, além de derrubar o snapshot
	_ = a.Cache.SetCurrentPrice(r.Context(), req.Symbol, req.Price.String(), 0)
	_ = a.Cache.InvalidateSnapshot(r.Context())
	writeJSON(w, http.StatusCreated, t)
}
