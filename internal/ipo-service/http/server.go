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
	"github.com/stockbet/stockbet-platform/internal/ipo-service/dto"
	"github.com/stockbet/stockbet-platform/internal/ipo-service/repo"
)

type Repo interface {
	Create(ctx context.Context, name string, price decimal.Decimal, shares int64) (*repo.IPO, error)
	List(ctx context.Context) ([]repo.IPO, error)
	Bid(ctx context.Context, ipoID, userID string, shares int64) (*repo.Allocation, error)
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
	r.Post("/", s.create)
	r.Get("/list", s.list)
	r.Group(func(r chi.Router) {
		r.Use(s.authMW)
		r.Post("/bid", s.bid)
	})
	return r
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateIPORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Name == "" || !req.Price.IsPositive() || req.AvailableShares <= 0 {
		writeError(w, http.StatusBadRequest, "name, positive price and available_shares are required")
		return
	}
	i, err := s.repo.Create(r.Context(), req.Name, req.Price, req.AvailableShares)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIPOResponse(i))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ipos, err := s.repo.List(r.Context())
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	out := make([]dto.IPOResponse, 0, len(ipos))
	for i := range ipos {
		out = append(out, toIPOResponse(&ipos[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// bid aloca shares sob lock da linha do IPO; pedido acima da oferta => 409
func (s *Server) bid(w http.ResponseWriter, r *http.Request) {
	var req dto.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.IPOID == "" || req.Shares <= 0 {
		writeError(w, http.StatusBadRequest, "ipo_id and positive shares are required")
		return
	}
	a, err := s.repo.Bid(r.Context(), req.IPOID, auth.UserID(r.Context()), req.Shares)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationResponse(a))
}

func (s *Server) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrOversubscribed):
		writeError(w, http.StatusConflict, "not enough shares available")
	case errors.Is(err, repo.ErrNameTaken):
		writeError(w, http.StatusBadRequest, "ipo name already exists")
	case errors.Is(err, repo.ErrBadInput):
		writeError(w, http.StatusBadRequest, "invalid ipo request")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "ipo not found")
	default:
		s.log.Error("ipo op failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toIPOResponse(i *repo.IPO) dto.IPOResponse {
	return dto.IPOResponse{ID: i.ID, Name: i.Name, Price: i.Price, AvailableShares: i.AvailableShares, CreatedAt: i.CreatedAt}
}

func toAllocationResponse(a *repo.Allocation) dto.AllocationResponse {
	return dto.AllocationResponse{ID: a.ID, IPOID: a.IPOID, UserID: a.UserID, Shares: a.Shares, CreatedAt: a.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
