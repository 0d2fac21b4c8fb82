package dto

import "github.com/shopspring/decimal"

type PlaceBetRequest struct {
	Market    string          `json:"market"`
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction"` // "up" | "down"
}

type SettleBetRequest struct {
	Outcome string `json:"outcome"` // "won" | "lost"
}
