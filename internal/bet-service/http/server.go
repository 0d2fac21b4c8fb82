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
	"github.com/stockbet/stockbet-platform/internal/bet-service/dto"
	"github.com/stockbet/stockbet-platform/internal/bet-service/repo"
	walletrepo "github.com/stockbet/stockbet-platform/internal/wallet-service/repo"
	"github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

// Repo define o ciclo de vida de apostas usado pelo handler HTTP
type Repo interface {
	Place(ctx context.Context, userID, market string, amount decimal.Decimal, direction string) (*repo.Bet, error)
	Settle(ctx context.Context, betID, outcome string, payout decimal.Decimal) (*repo.Bet, bool, error)
	Cancel(ctx context.Context, betID string) (*repo.Bet, error)
	GetByID(ctx context.Context, betID string) (*repo.Bet, error)
	ListActiveByUser(ctx context.Context, userID string) ([]repo.Bet, error)
}

// PriceSource valida que o mercado tem preço corrente conhecido
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (string, error)
}

type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

type Server struct {
	log    *zap.Logger
	repo   Repo
	prices PriceSource
	publ   Publisher
	mult   decimal.Decimal // multiplicador de payout sobre o stake
	authMW func(http.Handler) http.Handler
}

func NewServer(log *zap.Logger, r Repo, prices PriceSource, publ Publisher, payoutMultiplier decimal.Decimal, authMW func(http.Handler) http.Handler) *Server {
	return &Server{log: log, repo: r, prices: prices, publ: publ, mult: payoutMultiplier, authMW: authMW}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authMW)
	r.Post("/place", s.placeBet)
	r.Get("/active", s.activeBets)
	r.Get("/{id}", s.getBet)
	r.Post("/{id}/settle", s.settleBet)
	r.Post("/{id}/cancel", s.cancelBet)
	return r
}

// placeBet debita o stake e cria a aposta ativa numa única transação
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Market == "" || !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "market and positive amount are required")
		return
	}
	if req.Direction != repo.DirectionUp && req.Direction != repo.DirectionDown {
		writeError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}

	// rejeita mercado sem preço corrente no cache
	if s.prices != nil {
		if _, err := s.prices.CurrentPrice(r.Context(), req.Market); err != nil {
			writeError(w, http.StatusBadRequest, "unknown market")
			return
		}
	}

	b, err := s.repo.Place(r.Context(), auth.UserID(r.Context()), req.Market, req.Amount, req.Direction)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	if s.publ != nil {
		if err := s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
			BetID:     b.ID,
			UserID:    b.UserID,
			Market:    b.Market,
			Amount:    b.Amount,
			Direction: b.Direction,
			StakeRef:  "bet:" + b.ID,
		}); err != nil {
			s.log.Warn("failed to publish bet_placed", zap.String("bet_id", b.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, toBetResponse(b))
}

// activeBets lista as apostas ativas do usuário autenticado
func (s *Server) activeBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.repo.ListActiveByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		out = append(out, toBetResponse(&bets[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := s.ownedBet(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(b))
}

// settleBet liquida manualmente a aposta do próprio usuário.
// O payout nunca vem do cliente: sempre stake * multiplicador quando "won".
// Idempotente: repetir a liquidação devolve o estado atual sem novo crédito.
func (s *Server) settleBet(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Outcome != repo.StatusWon && req.Outcome != repo.StatusLost {
		writeError(w, http.StatusBadRequest, "outcome must be won or lost")
		return
	}

	betID := chi.URLParam(r, "id")
	cur, err := s.ownedBet(r, betID)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	payout := cur.Amount.Mul(s.mult).Round(2)

	b, settledNow, err := s.repo.Settle(r.Context(), betID, req.Outcome, payout)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}

	if settledNow && s.publ != nil {
		if err := s.publ.PublishBetSettled(r.Context(), events.BetSettled{
			BetID:  b.ID,
			UserID: b.UserID,
			Market: b.Market,
			Status: b.Status,
			Payout: b.Payout,
		}); err != nil {
			s.log.Warn("failed to publish bet_settled", zap.String("bet_id", b.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, toBetResponse(b))
}

// cancelBet estorna o stake de uma aposta ainda ativa do próprio usuário
func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	if _, err := s.ownedBet(r, betID); err != nil {
		s.writeRepoError(w, err)
		return
	}

	b, err := s.repo.Cancel(r.Context(), betID)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(b))
}

// ownedBet busca a aposta e esconde apostas de outros usuários como 404
func (s *Server) ownedBet(r *http.Request, betID string) (*repo.Bet, error) {
	b, err := s.repo.GetByID(r.Context(), betID)
	if err != nil {
		return nil, err
	}
	if b.UserID != auth.UserID(r.Context()) {
		return nil, repo.ErrNotFound
	}
	return b, nil
}

func (s *Server) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, walletrepo.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "insufficient balance")
	case errors.Is(err, repo.ErrNotActive):
		writeError(w, http.StatusConflict, "bet is not active")
	case errors.Is(err, repo.ErrBadInput):
		writeError(w, http.StatusBadRequest, "invalid bet")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "bet not found")
	default:
		s.log.Error("bet op failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toBetResponse(b *repo.Bet) dto.BetResponse {
	return dto.BetResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		Market:    b.Market,
		Amount:    b.Amount,
		Direction: b.Direction,
		Status:    b.Status,
		Payout:    b.Payout,
		CreatedAt: b.CreatedAt,
		SettledAt: b.SettledAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
