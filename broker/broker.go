// Package broker defines the destination-side capabilities the mirror engine
// consumes: order execution and market data. Concrete adapters (paper, live)
// live in subpackages; the engine only sees these interfaces.
package broker

import (
	"context"
	"errors"
)

// ErrUnavailable signals that a price or quote is definitively not available
// right now (no bid/ask published, unknown contract). It is a normal outcome,
// not a transport failure.
var ErrUnavailable = errors.New("quote unavailable")

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the side that closes a position opened on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type PositionEffect string

const (
	EffectOpen  PositionEffect = "open"
	EffectClose PositionEffect = "close"
)

type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// OptionContract identifies one listed option.
type OptionContract struct {
	Symbol     string     `json:"symbol"`
	Expiration string     `json:"expiration"` // calendar date, 2006-01-02
	Strike     float64    `json:"strike"`
	Type       OptionType `json:"type"`
}

// OrderSpec is a fully-resolved limit order ready for submission.
type OrderSpec struct {
	Contract   OptionContract
	Quantity   int
	Side       Side
	Effect     PositionEffect
	LimitPrice float64
}

type QuoteSide string

const (
	QuoteBid QuoteSide = "bid"
	QuoteAsk QuoteSide = "ask"
)

// Execution places orders on the destination account. Both submit calls
// return the brokerage order id on success.
type Execution interface {
	AccountEquity(ctx context.Context) (float64, error)
	SubmitOpen(ctx context.Context, spec OrderSpec) (string, error)
	SubmitClose(ctx context.Context, spec OrderSpec) (string, error)
}

// MarketData answers price questions. BestQuote returns ErrUnavailable when
// the requested side of the book has no published price.
type MarketData interface {
	ReferencePrice(ctx context.Context, symbol string) (float64, error)
	BestQuote(ctx context.Context, contract OptionContract, side QuoteSide) (float64, error)
}
