package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

type IPO struct {
	ID              string
	Name            string
	Price           decimal.Decimal
	AvailableShares int64
	CreatedAt       time.Time
}

type Allocation struct {
	ID        string
	IPOID     string
	UserID    string
	Shares    int64
	CreatedAt time.Time
}
