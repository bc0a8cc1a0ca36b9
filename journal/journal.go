// Package journal persists every gate decision and every order action,
// so a session can be audited after the fact. Backends share one
// interface; Nop serves runs that disable persistence.
package journal

import "time"

// DecisionRecord is one checklist verdict for one symbol on one tick.
// Reason holds the first failing check, or the pass sentinel.
type DecisionRecord struct {
	ID       string
	Time     time.Time
	Symbol   string
	Regime   string
	Bias     string
	CanTrade bool
	Reason   string
	Price    float64
	Spread   float64
}

// TradeRecord is one order action. Action is "OPEN" or "CLOSE";
// RealizedPL is meaningful only on close.
type TradeRecord struct {
	ID         string
	Time       time.Time
	Ticket     string
	Symbol     string
	Side       string
	Action     string
	Volume     float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	RiskPct    float64
	RealizedPL float64
}

type Journal interface {
	RecordDecision(DecisionRecord) error
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards all records.
type Nop struct{}

func (Nop) RecordDecision(DecisionRecord) error { return nil }
func (Nop) RecordTrade(TradeRecord) error       { return nil }
func (Nop) Close() error                        { return nil }
