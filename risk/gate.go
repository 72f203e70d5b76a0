// Package risk gates mirroring actions behind trading-hours and
// pattern-day-trade (PDT) constraints and keeps the day-trade ledger those
// constraints are judged against.
package risk

import (
	"context"
	"fmt"
	"time"
)

type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// Denial codes. Every denied Decision carries one.
const (
	CodeMarketClosed      = "MARKET_CLOSED"
	CodeClockUnavailable  = "CLOCK_UNAVAILABLE"
	CodeEquityUnavailable = "EQUITY_UNAVAILABLE"
	CodeDayTradeLimit     = "DAY_TRADE_LIMIT"
)

// Decision is the gate's answer: allowed or not, with a human-readable
// reason. The caller's only obligation on denial is to skip the action and
// log the reason.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

func allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

func deny(code, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}

// EquityProvider reports current account equity in account currency.
type EquityProvider interface {
	AccountEquity(ctx context.Context) (float64, error)
}

type GateConfig struct {
	Timezone        string // exchange-local zone, e.g. America/New_York
	OpenHour        int
	OpenMinute      int
	CloseHour       int
	CloseMinute     int
	EquityThreshold float64 // PDT rules stop applying at or above this equity
	MaxDayTrades    int
	WindowDays      int
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		Timezone:        "America/New_York",
		OpenHour:        9,
		OpenMinute:      30,
		CloseHour:       16,
		CloseMinute:     0,
		EquityThreshold: 25000,
		MaxDayTrades:    3,
		WindowDays:      7,
	}
}

// Gate decides whether a mirroring action may proceed right now. Both checks
// are pure reads; the gate never mutates the ledger or any other state.
// Anything the gate cannot determine (timezone, equity) resolves to a denial.
type Gate struct {
	cfg    GateConfig
	equity EquityProvider
	ledger *DayTradeLedger
	now    func() time.Time
	loc    *time.Location
}

func NewGate(cfg GateConfig, equity EquityProvider, ledger *DayTradeLedger) *Gate {
	return &Gate{
		cfg:    cfg,
		equity: equity,
		ledger: ledger,
		now:    time.Now,
	}
}

// WithClock replaces the gate's clock. Intended for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Allow runs the trading-hours check and then the equity/PDT check. The
// action kind does not change the checks today; it is carried so denials can
// be reported against the action that was blocked.
func (g *Gate) Allow(ctx context.Context, action Action) Decision {
	if d := g.checkHours(); !d.Allowed {
		return d
	}
	return g.checkDayTradeBudget(ctx)
}

func (g *Gate) checkHours() Decision {
	loc, err := g.location()
	if err != nil {
		// Cannot resolve the exchange timezone: treat the market as closed.
		return deny(CodeClockUnavailable, fmt.Sprintf("cannot resolve exchange timezone %q: %v", g.cfg.Timezone, err))
	}

	now := g.now().In(loc)
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return deny(CodeMarketClosed, fmt.Sprintf("market closed: %s is not a trading day", wd))
	}

	open := time.Date(now.Year(), now.Month(), now.Day(), g.cfg.OpenHour, g.cfg.OpenMinute, 0, 0, loc)
	close := time.Date(now.Year(), now.Month(), now.Day(), g.cfg.CloseHour, g.cfg.CloseMinute, 0, 0, loc)
	if now.Before(open) || now.After(close) {
		return deny(CodeMarketClosed, fmt.Sprintf("market closed: %s outside session %02d:%02d-%02d:%02d",
			now.Format("15:04"), g.cfg.OpenHour, g.cfg.OpenMinute, g.cfg.CloseHour, g.cfg.CloseMinute))
	}
	return allow("market open")
}

func (g *Gate) checkDayTradeBudget(ctx context.Context) Decision {
	equity, err := g.equity.AccountEquity(ctx)
	if err != nil {
		// Below-threshold status is unknown: deny rather than risk an
		// unmetered day trade.
		return deny(CodeEquityUnavailable, fmt.Sprintf("account equity unavailable: %v", err))
	}

	if equity >= g.cfg.EquityThreshold {
		return allow(fmt.Sprintf("equity %.2f at or above %.0f, no day-trade restriction", equity, g.cfg.EquityThreshold))
	}

	used := g.ledger.RollingSum(g.now(), g.cfg.WindowDays)
	if used >= g.cfg.MaxDayTrades {
		return deny(CodeDayTradeLimit, fmt.Sprintf("day-trade limit reached: %d of %d used in last %d days",
			used, g.cfg.MaxDayTrades, g.cfg.WindowDays))
	}
	return allow(fmt.Sprintf("%d of %d day trades used in last %d days", used, g.cfg.MaxDayTrades, g.cfg.WindowDays))
}

func (g *Gate) location() (*time.Location, error) {
	if g.loc != nil {
		return g.loc, nil
	}
	loc, err := time.LoadLocation(g.cfg.Timezone)
	if err != nil {
		return nil, err
	}
	g.loc = loc
	return loc, nil
}
