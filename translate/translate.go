// Package translate maps source positions onto destination option orders.
// Translation is pure apart from market-data reads; it never submits orders.
package translate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mirrorops/copytrader/broker"
	"github.com/mirrorops/copytrader/source"
	"github.com/mirrorops/copytrader/store"
)

type Config struct {
	// Underlying is the destination symbol every source position maps onto.
	Underlying string
	// StrikeStep is the exchange's strike increment; the strike is the
	// nearest multiple to the underlying's reference price.
	StrikeStep float64
	// ExpirationOffsetDays shifts the expiration from the translation day.
	// Zero keeps the original same-day (0DTE) bias.
	ExpirationOffsetDays int
	// OpenBidMarkup prices the opening limit slightly above the best bid.
	OpenBidMarkup float64
	// CloseAskDiscount prices the closing limit slightly below the best ask.
	CloseAskDiscount float64
}

func DefaultConfig() Config {
	return Config{
		Underlying:       "TSLA",
		StrikeStep:       1.0,
		OpenBidMarkup:    0.001,
		CloseAskDiscount: 0.005,
	}
}

type Translator struct {
	cfg Config
	md  broker.MarketData
	now func() time.Time
}

func New(cfg Config, md broker.MarketData) *Translator {
	return &Translator{cfg: cfg, md: md, now: time.Now}
}

// WithClock replaces the translator's clock. Intended for tests.
func (t *Translator) WithClock(now func() time.Time) *Translator {
	t.now = now
	return t
}

// Open builds the buy-to-open order mirroring a source position: a call for
// a long, a put for a short, quantity equal to the source size in whole
// contracts. An unavailable reference price or bid fails the translation and
// the caller must not submit anything.
func (t *Translator) Open(ctx context.Context, pos source.Position) (broker.OrderSpec, error) {
	quantity := int(pos.Size)
	if quantity < 1 {
		return broker.OrderSpec{}, fmt.Errorf("position size %.2f maps below one contract", pos.Size)
	}

	optType := broker.OptionCall
	if pos.Direction == source.Short {
		optType = broker.OptionPut
	}

	ref, err := t.md.ReferencePrice(ctx, t.cfg.Underlying)
	if err != nil {
		return broker.OrderSpec{}, fmt.Errorf("reference price for %s: %w", t.cfg.Underlying, err)
	}

	contract := broker.OptionContract{
		Symbol:     t.cfg.Underlying,
		Expiration: t.now().AddDate(0, 0, t.cfg.ExpirationOffsetDays).Format("2006-01-02"),
		Strike:     nearestStrike(ref, t.cfg.StrikeStep),
		Type:       optType,
	}

	bid, err := t.md.BestQuote(ctx, contract, broker.QuoteBid)
	if err != nil {
		return broker.OrderSpec{}, fmt.Errorf("best bid for %s %s %.2f: %w", contract.Symbol, contract.Type, contract.Strike, err)
	}

	return broker.OrderSpec{
		Contract:   contract,
		Quantity:   quantity,
		Side:       broker.SideBuy,
		Effect:     broker.EffectOpen,
		LimitPrice: roundCents(bid * (1 + t.cfg.OpenBidMarkup)),
	}, nil
}

// Close builds the order that unwinds a mirrored position: the opening side
// reversed, priced slightly below the best ask. An unavailable ask fails the
// translation; the record's fate on that failure is the caller's policy.
func (t *Translator) Close(ctx context.Context, rec store.MirrorRecord) (broker.OrderSpec, error) {
	ask, err := t.md.BestQuote(ctx, rec.Contract, broker.QuoteAsk)
	if err != nil {
		return broker.OrderSpec{}, fmt.Errorf("best ask for %s %s %.2f: %w", rec.Contract.Symbol, rec.Contract.Type, rec.Contract.Strike, err)
	}

	return broker.OrderSpec{
		Contract:   rec.Contract,
		Quantity:   rec.Quantity,
		Side:       rec.Side.Opposite(),
		Effect:     broker.EffectClose,
		LimitPrice: roundCents(ask * (1 - t.cfg.CloseAskDiscount)),
	}, nil
}

func nearestStrike(price, step float64) float64 {
	if step <= 0 {
		return roundCents(price)
	}
	return math.Round(price/step) * step
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
