package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockbet/stockbet-platform/internal/auth"
	"github.com/stockbet/stockbet-platform/internal/portfolio-service/dto"
	"github.com/stockbet/stockbet-platform/internal/portfolio-service/repo"
)

type Repo interface {
	Upsert(ctx context.Context, userID, symbol string, delta decimal.Decimal) (*repo.Holding, error)
	GetByUser(ctx context.Context, userID string) ([]repo.Holding, error)
}

type Server struct {
	log    *zap.Logger
	repo   Repo
	authMW func(http.Handler) http.Handler
}

func NewServer(log *zap.Logger, r Repo, authMW func(http.Handler) http.Handler) *Server {
	return &Server{log: log, repo: r, authMW: authMW}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authMW)
	r.Get("/me", s.holdings)
	r.Post("/update", s.upsert)
	return r
}

// holdings lista as posições do usuário autenticado; sem posições => 404
func (s *Server) holdings(w http.ResponseWriter, r *http.Request) {
	hs, err := s.repo.GetByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	out := make([]dto.HoldingResponse, 0, len(hs))
	for i := range hs {
		out = append(out, toHoldingResponse(&hs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// upsert aplica um delta assinado; débito além da posição atual => 409
func (s *Server) upsert(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Symbol == "" || req.Delta.IsZero() {
		writeError(w, http.StatusBadRequest, "symbol and non-zero delta are required")
		return
	}
	h, err := s.repo.Upsert(r.Context(), auth.UserID(r.Context()), req.Symbol, req.Delta)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldingResponse(h))
}

func (s *Server) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNegativeHoldings):
		writeError(w, http.StatusConflict, "holdings would go negative")
	case errors.Is(err, repo.ErrInvalidDelta):
		writeError(w, http.StatusBadRequest, "invalid delta")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "no holdings")
	default:
		s.log.Error("portfolio op failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toHoldingResponse(h *repo.Holding) dto.HoldingResponse {
	return dto.HoldingResponse{UserID: h.UserID, Symbol: h.Symbol, Quantity: h.Quantity, UpdatedAt: h.UpdatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
