package http

import (
	"context"
	"encoding/json"
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
	"github.com/stockbet/stockbet-platform/internal/portfolio-service/dto"
	"github.com/stockbet/stockbet-platform/internal/portfolio-service/repo"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeHoldings struct {
	// userID -> symbol -> quantity
	data map[string]map[string]decimal.Decimal
}

func newFakeHoldings() *fakeHoldings {
	return &fakeHoldings{data: map[string]map[string]decimal.Decimal{}}
}

func (f *fakeHoldings) Upsert(_ context.Context, userID, symbol string, delta decimal.Decimal) (*repo.Holding, error) {
	if f.data[userID] == nil {
		f.data[userID] = map[string]decimal.Decimal{}
	}
	next := f.data[userID][symbol].Add(delta)
	if next.IsNegative() {
		return nil, repo.ErrNegativeHoldings
	}
	f.data[userID][symbol] = next
	return &repo.Holding{UserID: userID, Symbol: symbol, Quantity: next, UpdatedAt: time.Now().UTC()}, nil
}

func (f *fakeHoldings) GetByUser(_ context.Context, userID string) ([]repo.Holding, error) {
	var out []repo.Holding
	for sym, q := range f.data[userID] {
		out = append(out, repo.Holding{UserID: userID, Symbol: sym, Quantity: q})
	}
	if len(out) == 0 {
		return nil, repo.ErrNotFound
	}
	return out, nil
}

func setup(t *testing.T) (http.Handler, *fakeHoldings, string) {
	t.Helper()
	tokens := auth.NewManager("test-secret", time.Hour)
	token, err := tokens.Issue("user-1", "alice")
	require.NoError(t, err)

	holdings := newFakeHoldings()
	srv := NewServer(zap.NewNop(), holdings, tokens.Middleware)
	return srv.Router(), holdings, token
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

func TestHoldings(t *testing.T) {
	router, holdings, token := setup(t)

	t.Run("empty is 404", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/me", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("with positions", func(t *testing.T) {
		_, err := holdings.Upsert(context.Background(), "user-1", "AAPL", dec("10"))
		require.NoError(t, err)

		rec := do(t, router, http.MethodGet, "/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var out []dto.HoldingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 1)
		assert.Equal(t, "AAPL", out[0].Symbol)
		assert.True(t, dec("10").Equal(out[0].Quantity))
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpsert(t *testing.T) {
	router, _, token := setup(t)

	t.Run("credit then debit", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/update", token, dto.UpsertHoldingRequest{Symbol: "TSLA", Delta: dec("5")})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, router, http.MethodPost, "/update", token, dto.UpsertHoldingRequest{Symbol: "TSLA", Delta: dec("-3")})
		require.Equal(t, http.StatusOK, rec.Code)

		var out dto.HoldingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, dec("2").Equal(out.Quantity))
	})

	t.Run("debit below zero conflicts", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/update", token, dto.UpsertHoldingRequest{Symbol: "TSLA", Delta: dec("-10")})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"holdings would go negative"}`, rec.Body.String())
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/update", token, dto.UpsertHoldingRequest{Symbol: "TSLA", Delta: decimal.Zero})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
