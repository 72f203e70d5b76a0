package translate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorops/copytrader/broker"
	"github.com/mirrorops/copytrader/broker/paper"
	"github.com/mirrorops/copytrader/source"
	"github.com/mirrorops/copytrader/store"
)

var tradingDay = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTranslator(md broker.MarketData) *Translator {
	return New(DefaultConfig(), md).WithClock(func() time.Time { return tradingDay })
}

func TestOpenLongBecomesCall(t *testing.T) {
	t.Parallel()

	md := paper.New(10000)
	md.SetReferencePrice("TSLA", 250.30)
	contract := broker.OptionContract{Symbol: "TSLA", Expiration: "2025-03-14", Strike: 250, Type: broker.OptionCall}
	md.SetQuote(contract, broker.QuoteBid, 10.00)

	spec, err := newTranslator(md).Open(context.Background(), source.Position{
		Ticket: 1, Symbol: "TSLA", Direction: source.Long, Size: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, contract, spec.Contract)
	assert.Equal(t, 2, spec.Quantity)
	assert.Equal(t, broker.SideBuy, spec.Side)
	assert.Equal(t, broker.EffectOpen, spec.Effect)
	assert.InDelta(t, 10.01, spec.LimitPrice, 1e-9)
}

func TestOpenShortBecomesPut(t *testing.T) {
	t.Parallel()

	md := paper.New(10000)
	md.SetReferencePrice("TSLA", 249.60)
	contract := broker.OptionContract{Symbol: "TSLA", Expiration: "2025-03-14", Strike: 250, Type: broker.OptionPut}
	md.SetQuote(contract, broker.QuoteBid, 4.00)

	spec, err := newTranslator(md).Open(context.Background(), source.Position{
		Ticket: 2, Symbol: "TSLA", Direction: source.Short, Size: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, broker.OptionPut, spec.Contract.Type)
	assert.Equal(t, broker.SideBuy, spec.Side)
	assert.InDelta(t, 250.0, spec.Contract.Strike, 1e-9)
}

func TestOpenFailsWithoutReferencePrice(t *testing.T) {
	t.Parallel()

	md := paper.New(10000) // no reference price set

	_, err := newTranslator(md).Open(context.Background(), source.Position{
		Ticket: 3, Direction: source.Long, Size: 1,
	})
	assert.ErrorIs(t, err, broker.ErrUnavailable)
}

func TestOpenFailsWithoutBid(t *testing.T) {
	t.Parallel()

	md := paper.New(10000)
	md.SetReferencePrice("TSLA", 250.30) // bid never published

	_, err := newTranslator(md).Open(context.Background(), source.Position{
		Ticket: 4, Direction: source.Long, Size: 1,
	})
	assert.ErrorIs(t, err, broker.ErrUnavailable)
}

func TestOpenRejectsFractionalSize(t *testing.T) {
	t.Parallel()

	md := paper.New(10000)
	_, err := newTranslator(md).Open(context.Background(), source.Position{
		Ticket: 5, Direction: source.Long, Size: 0.5,
	})
	assert.Error(t, err)
}

func TestCloseReversesSideAndDiscountsAsk(t *testing.T) {
	t.Parallel()

	contract := broker.OptionContract{Symbol: "TSLA", Expiration: "2025-03-14", Strike: 250, Type: broker.OptionCall}
	md := paper.New(10000)
	md.SetQuote(contract, broker.QuoteAsk, 10.00)

	rec := store.MirrorRecord{Contract: contract, Quantity: 2, Side: broker.SideBuy, OpenedAt: tradingDay}
	spec, err := newTranslator(md).Close(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, broker.SideSell, spec.Side)
	assert.Equal(t, broker.EffectClose, spec.Effect)
	assert.Equal(t, 2, spec.Quantity)
	assert.InDelta(t, 9.95, spec.LimitPrice, 1e-9)
}

func TestCloseFailsWithoutAsk(t *testing.T) {
	t.Parallel()

	contract := broker.OptionContract{Symbol: "TSLA", Expiration: "2025-03-14", Strike: 250, Type: broker.OptionCall}
	rec := store.MirrorRecord{Contract: contract, Quantity: 1, Side: broker.SideBuy}

	_, err := newTranslator(paper.New(10000)).Close(context.Background(), rec)
	assert.ErrorIs(t, err, broker.ErrUnavailable)
}

func TestNearestStrike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price float64
		step  float64
		want  float64
	}{
		{"round down", 250.30, 1.0, 250},
		{"round up", 250.60, 1.0, 251},
		{"five dollar steps", 252.0, 5.0, 250},
		{"zero step keeps cents", 250.336, 0, 250.34},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, nearestStrike(tt.price, tt.step), 1e-9)
		})
	}
}
