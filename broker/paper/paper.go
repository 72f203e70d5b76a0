// Package paper is an in-memory destination adapter: orders are accepted and
// remembered, never routed anywhere. It backs dry runs and tests.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirrorops/copytrader/broker"
)

// Order is one accepted submission.
type Order struct {
	ID       string
	Spec     broker.OrderSpec
	PlacedAt time.Time
}

// Broker implements broker.Execution and broker.MarketData against settable
// in-memory prices. Quotes and reference prices default to unavailable until
// set, mirroring a thin options book.
type Broker struct {
	mu        sync.Mutex
	equity    float64
	equityErr error
	submitErr error
	refPrices map[string]float64
	quotes    map[string]float64
	orders    []Order
}

func New(equity float64) *Broker {
	return &Broker{
		equity:    equity,
		refPrices: make(map[string]float64),
		quotes:    make(map[string]float64),
	}
}

func (b *Broker) Name() string { return "paper" }

func (b *Broker) SetEquity(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.equity = v
}

// SetEquityErr makes AccountEquity fail until reset with nil.
func (b *Broker) SetEquityErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.equityErr = err
}

// SetSubmitErr makes order submission fail until reset with nil.
func (b *Broker) SetSubmitErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitErr = err
}

func (b *Broker) SetReferencePrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refPrices[symbol] = price
}

func (b *Broker) SetQuote(contract broker.OptionContract, side broker.QuoteSide, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[quoteKey(contract, side)] = price
}

// Orders returns a copy of everything submitted so far.
func (b *Broker) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// ---- broker.Execution ----

func (b *Broker) AccountEquity(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.equityErr != nil {
		return 0, b.equityErr
	}
	return b.equity, nil
}

func (b *Broker) SubmitOpen(ctx context.Context, spec broker.OrderSpec) (string, error) {
	return b.submit(spec)
}

func (b *Broker) SubmitClose(ctx context.Context, spec broker.OrderSpec) (string, error) {
	return b.submit(spec)
}

func (b *Broker) submit(spec broker.OrderSpec) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return "", b.submitErr
	}
	ord := Order{
		ID:       uuid.New().String(),
		Spec:     spec,
		PlacedAt: time.Now().UTC(),
	}
	b.orders = append(b.orders, ord)
	return ord.ID, nil
}

// ---- broker.MarketData ----

func (b *Broker) ReferencePrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	px, ok := b.refPrices[symbol]
	if !ok {
		return 0, fmt.Errorf("no reference price for %s: %w", symbol, broker.ErrUnavailable)
	}
	return px, nil
}

func (b *Broker) BestQuote(ctx context.Context, contract broker.OptionContract, side broker.QuoteSide) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	px, ok := b.quotes[quoteKey(contract, side)]
	if !ok {
		return 0, fmt.Errorf("no %s for %s %s %s %.2f: %w",
			side, contract.Symbol, contract.Expiration, contract.Type, contract.Strike, broker.ErrUnavailable)
	}
	return px, nil
}

func quoteKey(c broker.OptionContract, side broker.QuoteSide) string {
	return fmt.Sprintf("%s|%s|%.2f|%s|%s", c.Symbol, c.Expiration, c.Strike, c.Type, side)
}
