package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateIPORequest struct {
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	AvailableShares int64           `json:"available_shares"`
}

type BidRequest struct {
	IPOID  string `json:"ipo_id"`
	Shares int64  `json:"shares"`
}

type IPOResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	AvailableShares int64           `json:"available_shares"`
	CreatedAt       time.Time       `json:"created_at"`
}

type AllocationResponse struct {
	ID        string    `json:"id"`
	IPOID     string    `json:"ipo_id"`
	UserID    string    `json:"user_id"`
	Shares    int64     `json:"shares"`
	CreatedAt time.Time `json:"created_at"`
}
