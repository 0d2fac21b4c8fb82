package topics

const (
	// Market data
	MarketTicks   = "market_ticks"
	MarketResults = "market_results"

	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// DLQs
	MarketResultsDLQ = "market_results_dlq"
)
