package http

import (
	"context"
	"encoding/json"
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
	"github.com/stockbet/stockbet-platform/internal/ipo-service/dto"
	"github.com/stockbet/stockbet-platform/internal/ipo-service/repo"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeIPOs struct {
	ipos   map[string]*repo.IPO
	nextID int
}

func newFakeIPOs() *fakeIPOs { return &fakeIPOs{ipos: map[string]*repo.IPO{}} }

func (f *fakeIPOs) Create(_ context.Context, name string, price decimal.Decimal, shares int64) (*repo.IPO, error) {
	for _, i := range f.ipos {
		if i.Name == name {
			return nil, repo.ErrNameTaken
		}
	}
	f.nextID++
	i := &repo.IPO{ID: fmt.Sprintf("ipo-%d", f.nextID), Name: name, Price: price, AvailableShares: shares, CreatedAt: time.Now().UTC()}
	f.ipos[i.ID] = i
	return i, nil
}

func (f *fakeIPOs) List(_ context.Context) ([]repo.IPO, error) {
	var out []repo.IPO
	for _, i := range f.ipos {
		out = append(out, *i)
	}
	return out, nil
}

func (f *fakeIPOs) Bid(_ context.Context, ipoID, userID string, shares int64) (*repo.Allocation, error) {
	i, ok := f.ipos[ipoID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if shares > i.AvailableShares {
		return nil, repo.ErrOversubscribed
	}
	i.AvailableShares -= shares
	return &repo.Allocation{ID: "alloc-1", IPOID: ipoID, UserID: userID, Shares: shares, CreatedAt: time.Now().UTC()}, nil
}

func setup(t *testing.T) (http.Handler, *fakeIPOs, string) {
	t.Helper()
	tokens := auth.NewManager("test-secret", time.Hour)
	token, err := tokens.Issue("user-1", "alice")
	require.NoError(t, err)

	ipos := newFakeIPOs()
	srv := NewServer(zap.NewNop(), ipos, tokens.Middleware)
	return srv.Router(), ipos, token
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

func TestCreateAndListIPO(t *testing.T) {
	router, _, _ := setup(t)

	rec := do(t, router, http.MethodPost, "/", "", dto.CreateIPORequest{
		Name: "NOVA", Price: dec("12.50"), AvailableShares: 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created dto.IPOResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "NOVA", created.Name)
	assert.Equal(t, int64(1000), created.AvailableShares)

	t.Run("duplicate name", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/", "", dto.CreateIPORequest{
			Name: "NOVA", Price: dec("13.00"), AvailableShares: 500,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/list", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []dto.IPOResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Len(t, out, 1)
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/", "", dto.CreateIPORequest{Name: "", Price: dec("1"), AvailableShares: 10})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBid(t *testing.T) {
	router, ipos, token := setup(t)

	created, err := ipos.Create(context.Background(), "NOVA", dec("12.50"), 100)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/bid", token, dto.BidRequest{IPOID: created.ID, Shares: 60})
		require.Equal(t, http.StatusOK, rec.Code)

		var out dto.AllocationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, int64(60), out.Shares)
		assert.Equal(t, "user-1", out.UserID)
		assert.Equal(t, int64(40), ipos.ipos[created.ID].AvailableShares)
	})

	t.Run("oversubscribed", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/bid", token, dto.BidRequest{IPOID: created.ID, Shares: 50})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"not enough shares available"}`, rec.Body.String())
	})

	t.Run("unknown ipo", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/bid", token, dto.BidRequest{IPOID: "nope", Shares: 1})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/bid", "", dto.BidRequest{IPOID: created.ID, Shares: 1})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
