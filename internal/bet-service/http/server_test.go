package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockbet/stockbet-platform/internal/auth"
	"github.com/stockbet/stockbet-platform/internal/bet-service/dto"
	"github.com/stockbet/stockbet-platform/internal/bet-service/repo"
	walletrepo "github.com/stockbet/stockbet-platform/internal/wallet-service/repo"
	"github.com/stockbet/stockbet-platform/pkg/contracts/events"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeBets struct {
	bets    map[string]*repo.Bet
	balance decimal.Decimal
	nextID  int
}

func newFakeBets(balance string) *fakeBets {
	return &fakeBets{bets: map[string]*repo.Bet{}, balance: dec(balance)}
}

func (f *fakeBets) Place(_ context.Context, userID, market string, amount decimal.Decimal, direction string) (*repo.Bet, error) {
	if f.balance.LessThan(amount) {
		return nil, walletrepo.ErrInsufficientBalance
	}
	f.balance = f.balance.Sub(amount)
	f.nextID++
	b := &repo.Bet{
		ID:        fmt.Sprintf("bet-%d", f.nextID),
		UserID:    userID,
		Market:    market,
		Amount:    amount,
		Direction: direction,
		Status:    repo.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	f.bets[b.ID] = b
	return b, nil
}

func (f *fakeBets) Settle(_ context.Context, betID, outcome string, payout decimal.Decimal) (*repo.Bet, bool, error) {
	b, ok := f.bets[betID]
	if !ok {
		return nil, false, repo.ErrNotFound
	}
	if b.Status != repo.StatusActive {
		return b, false, nil
	}
	b.Status = outcome
	if outcome == repo.StatusWon {
		b.Payout = payout
	}
	now := time.Now().UTC()
	b.SettledAt = &now
	return b, true, nil
}

func (f *fakeBets) Cancel(_ context.Context, betID string) (*repo.Bet, error) {
	b, ok := f.bets[betID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if b.Status == repo.StatusCancelled {
		return b, nil
	}
	if b.Status != repo.StatusActive {
		return nil, repo.ErrNotActive
	}
	b.Status = repo.StatusCancelled
	b.Payout = b.Amount
	return b, nil
}

func (f *fakeBets) GetByID(_ context.Context, betID string) (*repo.Bet, error) {
	b, ok := f.bets[betID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return b, nil
}

func (f *fakeBets) ListActiveByUser(_ context.Context, userID string) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range f.bets {
		if b.UserID == userID && b.Status == repo.StatusActive {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakePrices struct {
	known map[string]string
}

func (f *fakePrices) CurrentPrice(_ context.Context, symbol string) (string, error) {
	p, ok := f.known[symbol]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return p, nil
}

type fakePublisher struct {
	placed  []events.BetPlaced
	settled []events.BetSettled
}

func (f *fakePublisher) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	f.placed = append(f.placed, e)
	return nil
}

func (f *fakePublisher) PublishBetSettled(_ context.Context, e events.BetSettled) error {
	f.settled = append(f.settled, e)
	return nil
}

func issueToken(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := auth.NewManager("test-secret", time.Hour).Issue(userID, username)
	require.NoError(t, err)
	return token
}

func setup(t *testing.T, balance string) (http.Handler, *fakeBets, *fakePublisher, string) {
	t.Helper()
	tokens := auth.NewManager("test-secret", time.Hour)
	token, err := tokens.Issue("user-1", "alice")
	require.NoError(t, err)

	bets := newFakeBets(balance)
	publ := &fakePublisher{}
	prices := &fakePrices{known: map[string]string{"AAPL": "190.00", "TSLA": "240.00"}}
	srv := NewServer(zap.NewNop(), bets, prices, publ, dec("1.8"), tokens.Middleware)
	return srv.Router(), bets, publ, token
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd = strings.NewReader("")
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlaceBet(t *testing.T) {
	router, _, publ, token := setup(t, "100.00")

	t.Run("success", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/place", token, dto.PlaceBetRequest{
			Market: "AAPL", Amount: dec("50.00"), Direction: "up",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var out dto.BetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, "user-1", out.UserID)
		assert.Equal(t, repo.StatusActive, out.Status)
		assert.True(t, dec("50.00").Equal(out.Amount))

		require.Len(t, publ.placed, 1)
		assert.Equal(t, out.ID, publ.placed[0].BetID)
		assert.Equal(t, "bet:"+out.ID, publ.placed[0].StakeRef)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/place", token, dto.PlaceBetRequest{
			Market: "AAPL", Amount: dec("500.00"), Direction: "up",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"insufficient balance"}`, rec.Body.String())
	})

	t.Run("unknown market", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/place", token, dto.PlaceBetRequest{
			Market: "DOGE", Amount: dec("10.00"), Direction: "up",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"unknown market"}`, rec.Body.String())
	})

	t.Run("bad direction", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/place", token, dto.PlaceBetRequest{
			Market: "AAPL", Amount: dec("10.00"), Direction: "sideways",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/place", "", dto.PlaceBetRequest{
			Market: "AAPL", Amount: dec("10.00"), Direction: "up",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSettleBet(t *testing.T) {
	router, bets, publ, token := setup(t, "100.00")

	placed, err := bets.Place(context.Background(), "user-1", "AAPL", dec("50.00"), "up")
	require.NoError(t, err)

	t.Run("won pays stake times multiplier", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/"+placed.ID+"/settle", token, dto.SettleBetRequest{Outcome: "won"})
		require.Equal(t, http.StatusOK, rec.Code)

		var out dto.BetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, repo.StatusWon, out.Status)
		assert.True(t, dec("90.00").Equal(out.Payout))
		require.Len(t, publ.settled, 1)
	})

	t.Run("settle again is a no-op", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/"+placed.ID+"/settle", token, dto.SettleBetRequest{Outcome: "won"})
		require.Equal(t, http.StatusOK, rec.Code)
		// nenhum evento novo publicado
		assert.Len(t, publ.settled, 1)
	})

	t.Run("bad outcome", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/"+placed.ID+"/settle", token, dto.SettleBetRequest{Outcome: "draw"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/nope/settle", token, dto.SettleBetRequest{Outcome: "won"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("another user's bet is hidden", func(t *testing.T) {
		other, err := bets.Place(context.Background(), "user-1", "TSLA", dec("10.00"), "up")
		require.NoError(t, err)

		intruder := issueToken(t, "user-2", "mallory")
		rec := do(t, router, http.MethodPost, "/"+other.ID+"/settle", intruder, dto.SettleBetRequest{Outcome: "won"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		kept, err := bets.GetByID(context.Background(), other.ID)
		require.NoError(t, err)
		assert.Equal(t, repo.StatusActive, kept.Status)
		assert.Len(t, publ.settled, 1) // só o evento da liquidação legítima
	})

	t.Run("payout in body is ignored", func(t *testing.T) {
		other, err := bets.Place(context.Background(), "user-1", "TSLA", dec("10.00"), "up")
		require.NoError(t, err)

		rec := do(t, router, http.MethodPost, "/"+other.ID+"/settle", token,
			map[string]any{"outcome": "won", "payout": "1000000.00"})
		require.Equal(t, http.StatusOK, rec.Code)

		var out dto.BetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, dec("18.00").Equal(out.Payout)) // sempre stake * multiplicador
	})
}

func TestCancelBet(t *testing.T) {
	router, bets, _, token := setup(t, "100.00")

	placed, err := bets.Place(context.Background(), "user-1", "AAPL", dec("50.00"), "down")
	require.NoError(t, err)

	t.Run("cancel active", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/"+placed.ID+"/cancel", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var out dto.BetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, repo.StatusCancelled, out.Status)
	})

	t.Run("cancel again is a no-op", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/"+placed.ID+"/cancel", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("another user's bet is hidden", func(t *testing.T) {
		other, err := bets.Place(context.Background(), "user-1", "TSLA", dec("10.00"), "up")
		require.NoError(t, err)

		intruder := issueToken(t, "user-2", "mallory")
		rec := do(t, router, http.MethodPost, "/"+other.ID+"/cancel", intruder, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		kept, err := bets.GetByID(context.Background(), other.ID)
		require.NoError(t, err)
		assert.Equal(t, repo.StatusActive, kept.Status)
	})

	t.Run("cancel settled bet conflicts", func(t *testing.T) {
		other, err := bets.Place(context.Background(), "user-1", "TSLA", dec("10.00"), "up")
		require.NoError(t, err)
		_, _, err = bets.Settle(context.Background(), other.ID, repo.StatusLost, decimal.Zero)
		require.NoError(t, err)

		rec := do(t, router, http.MethodPost, "/"+other.ID+"/cancel", token, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestActiveBets(t *testing.T) {
	router, bets, _, token := setup(t, "100.00")

	_, err := bets.Place(context.Background(), "user-1", "AAPL", dec("10.00"), "up")
	require.NoError(t, err)
	_, err = bets.Place(context.Background(), "user-2", "AAPL", dec("10.00"), "up")
	require.NoError(t, err)

	rec := do(t, router, http.MethodGet, "/active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "user-1", out[0].UserID)
}
