package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stockbet/stockbet-platform/internal/account-service/dto"
	"github.com/stockbet/stockbet-platform/internal/account-service/repo"
	"github.com/stockbet/stockbet-platform/internal/auth"
)

// Repo define a interface de operações de contas usadas pelo handler HTTP
type Repo interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*repo.User, error)
	GetByUsername(ctx context.Context, username string) (*repo.User, error)
	GetByID(ctx context.Context, id string) (*repo.User, error)
}

// Server expõe os endpoints HTTP de registro, login e perfil
type Server struct {
	log    *zap.Logger
	repo   Repo
	tokens *auth.Manager
	authMW func(http.Handler) http.Handler
}

func NewServer(log *zap.Logger, r Repo, tokens *auth.Manager) *Server {
	return &Server{log: log, repo: r, tokens: tokens, authMW: tokens.Middleware}
}

// Router retorna o roteador com as rotas de usuários
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/register", s.register) // POST /users/register
	r.Post("/login", s.login)       // POST /users/login (form-encoded)
	r.Group(func(r chi.Router) {
		r.Use(s.authMW)
		r.Get("/me", s.me)
	})
	return r
}

// register cria um novo usuário; username e email devem ser únicos
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "username, email and password (min 8 chars) are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash password")
		return
	}

	u, err := s.repo.CreateUser(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, repo.ErrUsernameTaken) || errors.Is(err, repo.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create user failed")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// login autentica via form (username/password) e devolve o access token
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad form")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, err := s.repo.GetByUsername(r.Context(), username)
	if err != nil || !auth.CheckPassword(password, u.PasswordHash) {
		// mesma resposta para usuário inexistente e senha errada
		writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		s.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "issue token failed")
		return
	}

	writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// me retorna o perfil do usuário autenticado
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.repo.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// toUserResponse mapeia o modelo de banco para a resposta da API, campo a campo
func toUserResponse(u *repo.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		KYCStatus: u.KYCStatus,
		CreatedAt: u.CreatedAt.UTC().Truncate(time.Second),
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
