package dto

import "github.com/shopspring/decimal"

// Price representa o preço corrente de um símbolo
type Price struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt string          `json:"updatedAt"`
}

// Tick representa um ponto da série histórica de um símbolo
type Tick struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Ts     string          `json:"ts"`
}

type AddTickRequest struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}
