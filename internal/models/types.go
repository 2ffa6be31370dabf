package models

import "time"

type Side string
type SignalAction string
type TradeStatus string
type Severity string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"

	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"

	TradeExecuted TradeStatus = "EXECUTED"
	TradeFailed   TradeStatus = "FAILED"

	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

type Ticker struct {
	Pair      string    `json:"pair"`
	Last      float64   `json:"last"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

type Snapshot map[string]Ticker

type Signal struct {
	Pair           string       `json:"pair"`
	Action         SignalAction `json:"action"`
	Price          float64      `json:"price"`
	Confidence     float64      `json:"confidence"`
	SentimentScore float64      `json:"sentiment_score"`
}

type Position struct {
	Amount        float64 `json:"amount"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
}

type TradeLogEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Pair      string      `json:"pair"`
	Side      Side        `json:"side"`
	Price     float64     `json:"price"`
	Amount    float64     `json:"amount"`
	Status    TradeStatus `json:"status"`
	PnL       *float64    `json:"pnl,omitempty"`
}

type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}

type PortfolioView struct {
	Balance           float64             `json:"balance"`
	InitialBalance    float64             `json:"initial_balance"`
	Positions         map[string]Position `json:"positions"`
	PnL               float64             `json:"pnl"`
	Drawdown          float64             `json:"drawdown"`
	MaxDrawdown       float64             `json:"max_drawdown"`
	TotalTrades       int                 `json:"total_trades"`
	WinningTrades     int                 `json:"winning_trades"`
	WinRate           float64             `json:"win_rate"`
	SharpeRatio       float64             `json:"sharpe_ratio"`
	TargetAllocations map[string]float64  `json:"target_allocations"`
}

type StateUpdate struct {
	Running      bool            `json:"running"`
	Portfolio    PortfolioView   `json:"portfolio"`
	Market       Snapshot        `json:"market"`
	RecentTrades []TradeLogEntry `json:"recent_trades"`
	RecentAlerts []Alert         `json:"recent_alerts"`
}
