package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	acctdto "github.com/stockbet/stockbet-platform/internal/account-service/dto"
	acctrepo "github.com/stockbet/stockbet-platform/internal/account-service/repo"
	"github.com/stockbet/stockbet-platform/internal/auth"
	"github.com/stockbet/stockbet-platform/internal/wallet-service/dto"
	"github.com/stockbet/stockbet-platform/internal/wallet-service/repo"
)

// Repo define a interface de operações de ledger usadas pelo handler HTTP
type Repo interface {
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*repo.Transaction, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*repo.Transaction, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	ListByUser(ctx context.Context, userID string) ([]repo.Transaction, error)
}

// KYCStore define as operações de verificação de identidade expostas em /banking
type KYCStore interface {
	SubmitKYC(ctx context.Context, userID, docType, docNumber string) (*acctrepo.KYCSubmission, error)
	LatestKYC(ctx context.Context, userID string) (*acctrepo.KYCSubmission, error)
	ReviewKYC(ctx context.Context, submissionID, status string) error
}

// Server expõe endpoints HTTP de banking (ledger e KYC)
type Server struct {
	log    *zap.Logger
	repo   Repo
	kyc    KYCStore
	authMW func(http.Handler) http.Handler
}

func NewServer(log *zap.Logger, r Repo, kyc KYCStore, authMW func(http.Handler) http.Handler) *Server {
	return &Server{log: log, repo: r, kyc: kyc, authMW: authMW}
}

// Router retorna o roteador com as rotas de banking (todas autenticadas)
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authMW)
	r.Post("/deposit", s.deposit)
	r.Post("/withdraw", s.withdraw)
	r.Get("/balance", s.balance)
	r.Get("/transactions", s.transactions)
	r.Post("/kyc", s.submitKYC)
	r.Get("/kyc", s.latestKYC)
	r.Patch("/kyc/{id}", s.reviewKYC) // operação interna de revisão
	return r
}

// deposit credita saldo na conta do usuário autenticado
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	t, err := s.repo.Deposit(r.Context(), auth.UserID(r.Context()), req.Amount, req.ExternalRef)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// withdraw debita saldo; falha com 409 se o saldo projetado for insuficiente
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	t, err := s.repo.Withdraw(r.Context(), auth.UserID(r.Context()), req.Amount, req.ExternalRef)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

// balance retorna a projeção de saldo (somente exibição)
func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	bal, err := s.repo.Balance(r.Context(), userID)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{UserID: userID, Balance: bal})
}

// transactions lista as transações do usuário autenticado
func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	ts, err := s.repo.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTransactionResponse(&ts[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// submitKYC registra um pedido de verificação de identidade
func (s *Server) submitKYC(w http.ResponseWriter, r *http.Request) {
	var req acctdto.KYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.DocumentType == "" || req.DocumentNumber == "" {
		writeError(w, http.StatusBadRequest, "document_type and document_number are required")
		return
	}
	k, err := s.kyc.SubmitKYC(r.Context(), auth.UserID(r.Context()), req.DocumentType, req.DocumentNumber)
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toKYCResponse(k))
}

// latestKYC retorna a submissão mais recente do usuário
func (s *Server) latestKYC(w http.ResponseWriter, r *http.Request) {
	k, err := s.kyc.LatestKYC(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toKYCResponse(k))
}

// reviewKYC aprova/rejeita uma submissão e atualiza o kyc_status do usuário
func (s *Server) reviewKYC(w http.ResponseWriter, r *http.Request) {
	var req acctdto.KYCReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Status != "approved" && req.Status != "rejected" {
		writeError(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}
	if err := s.kyc.ReviewKYC(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		s.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (s *Server) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, "insufficient balance")
	case errors.Is(err, repo.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid amount")
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, acctrepo.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.log.Error("banking op failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// toTransactionResponse mapeia o modelo de banco para a resposta da API
func toTransactionResponse(t *repo.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Kind:      t.Kind,
		Amount:    t.Amount,
		Status:    t.Status,
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
	}
}

func toKYCResponse(k *acctrepo.KYCSubmission) acctdto.KYCResponse {
	return acctdto.KYCResponse{
		ID:             k.ID,
		UserID:         k.UserID,
		DocumentType:   k.DocumentType,
		DocumentNumber: k.DocumentNumber,
		Status:         k.Status,
		SubmittedAt:    k.SubmittedAt,
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
