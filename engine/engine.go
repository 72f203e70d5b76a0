// Package engine drives the continuous mirroring loop: poll the source,
// diff ticket sets, and mirror every delta through the gate, the translator
// and the execution adapter, recording lifecycle state in the store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mirrorops/copytrader/broker"
	"github.com/mirrorops/copytrader/journal"
	"github.com/mirrorops/copytrader/logger"
	"github.com/mirrorops/copytrader/metrics"
	"github.com/mirrorops/copytrader/risk"
	"github.com/mirrorops/copytrader/source"
	"github.com/mirrorops/copytrader/store"
	"github.com/mirrorops/copytrader/translate"
)

type Config struct {
	// PollInterval is the pause between successful ticks.
	PollInterval time.Duration
	// ErrorPause is the longer pause after a tick that blew up.
	ErrorPause time.Duration
	// MagicFilter restricts mirroring to positions carrying this strategy
	// tag; zero mirrors everything.
	MagicFilter int64
	// DayTradeWindowDays sizes the rolling window reported on the
	// day-trade gauge.
	DayTradeWindowDays int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:       2 * time.Second,
		ErrorPause:         10 * time.Second,
		DayTradeWindowDays: 7,
	}
}

// Deps are the engine's collaborators. Source, Execution, Gate, Translator,
// Store and Ledger are required; Journal and Log default to no-op/stdout,
// Now defaults to time.Now.
type Deps struct {
	Source     source.Source
	Execution  broker.Execution
	Gate       *risk.Gate
	Translator *translate.Translator
	Store      *store.Store
	Ledger     *risk.DayTradeLedger
	Journal    journal.Journal
	Log        *logger.Logger
	Now        func() time.Time
}

type Engine struct {
	cfg        Config
	src        source.Source
	exec       broker.Execution
	gate       *risk.Gate
	translator *translate.Translator
	store      *store.Store
	ledger     *risk.DayTradeLedger
	jrnl       journal.Journal
	log        *logger.Logger
	now        func() time.Time
}

func New(cfg Config, d Deps) *Engine {
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	if d.Log == nil {
		d.Log = logger.New(logger.Config{})
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = DefaultConfig().ErrorPause
	}
	if cfg.DayTradeWindowDays <= 0 {
		cfg.DayTradeWindowDays = DefaultConfig().DayTradeWindowDays
	}
	return &Engine{
		cfg:        cfg,
		src:        d.Source,
		exec:       d.Execution,
		gate:       d.Gate,
		translator: d.Translator,
		store:      d.Store,
		ledger:     d.Ledger,
		jrnl:       d.Journal,
		log:        d.Log,
		now:        d.Now,
	}
}

// Run polls until the context is cancelled. Nothing inside a tick is fatal:
// a tick that panics is logged and followed by the longer error pause, and
// the loop resumes with the last known ticket set rather than an empty one,
// so live positions are never mistaken for new.
func (e *Engine) Run(ctx context.Context) error {
	previous := e.seed(ctx)
	e.log.WithFields(logrus.Fields{
		"positions": len(previous),
		"interval":  e.cfg.PollInterval.String(),
	}).Info("mirror engine started")

	for {
		pause := e.cfg.PollInterval
		if err := e.safeTick(ctx, &previous); err != nil {
			e.log.WithError(err).Error("tick aborted")
			pause = e.cfg.ErrorPause
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}

// seed takes the startup snapshot so positions already open on the source
// are tracked but not re-mirrored. A failed seed starts from an empty set.
func (e *Engine) seed(ctx context.Context) source.TicketSet {
	positions, err := e.snapshot(ctx)
	if err != nil {
		e.log.WithError(err).Warn("initial snapshot unavailable; starting with empty ticket set")
		return source.TicketSet{}
	}
	return source.Tickets(positions)
}

func (e *Engine) safeTick(ctx context.Context, previous *source.TicketSet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	next, _, _ := e.Tick(ctx, *previous)
	*previous = next
	return nil
}

// Tick performs one reconciliation pass and returns the ticket set to carry
// into the next tick plus the deltas it acted on. A snapshot fetch failure
// makes the tick a no-op that preserves the previous set: a transient error
// must never read as "all positions closed".
func (e *Engine) Tick(ctx context.Context, previous source.TicketSet) (source.TicketSet, []source.TicketID, []source.TicketID) {
	positions, err := e.snapshot(ctx)
	if err != nil {
		metrics.SnapshotErrors.Inc()
		e.log.WithError(err).Warn("position snapshot unavailable; keeping previous ticket set")
		return previous, nil, nil
	}

	current := source.Tickets(positions)
	opened, closed := source.Diff(previous, current)

	byTicket := make(map[source.TicketID]source.Position, len(positions))
	for _, p := range positions {
		byTicket[p.Ticket] = p
	}

	for _, t := range opened {
		pos, ok := byTicket[t]
		if !ok {
			// snapshot race; dropping the ticket from the carried set makes
			// it newly-opened again next tick
			delete(current, t)
			continue
		}
		if e.mirrorOpen(ctx, pos) == openRetry {
			delete(current, t)
		}
	}

	for _, t := range closed {
		e.mirrorClose(ctx, t)
	}

	metrics.TrackedPositions.Set(float64(e.store.Len()))
	metrics.DayTrades.Set(float64(e.ledger.RollingSum(e.now(), e.cfg.DayTradeWindowDays)))
	return current, opened, closed
}

func (e *Engine) snapshot(ctx context.Context) ([]source.Position, error) {
	positions, err := e.src.OpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	return source.FilterByMagic(positions, e.cfg.MagicFilter), nil
}

// openOutcome steers what happens to the ticket after an open attempt.
// openRetry drops it from the carried set so the next tick sees it as new
// again; openDone and openSkip leave it tracked without a retry.
type openOutcome int

const (
	openDone openOutcome = iota
	openSkip
	openRetry
)

func (e *Engine) mirrorOpen(ctx context.Context, pos source.Position) openOutcome {
	ticket := ticketKey(pos.Ticket)
	log := e.log.WithFields(logrus.Fields{
		"ticket":    ticket,
		"action":    "open",
		"symbol":    pos.Symbol,
		"direction": pos.Direction,
		"size":      pos.Size,
	})

	if _, ok := e.store.Get(ticket); ok {
		// already mirrored in a previous run; the diff saw it as new only
		// because the process restarted mid-life
		log.Debug("ticket already mirrored; skipping")
		return openDone
	}

	if d := e.gate.Allow(ctx, risk.ActionOpen); !d.Allowed {
		metrics.GateDenials.WithLabelValues(d.Code, string(risk.ActionOpen)).Inc()
		log.WithField("code", d.Code).Info("gate denied open: " + d.Reason)
		e.appendJournal(ticket, broker.EffectOpen, nil, "", journal.OutcomeGateDenied, d.Reason)
		return openSkip
	}

	spec, err := e.translator.Open(ctx, pos)
	if err != nil {
		metrics.TranslateFailures.WithLabelValues(string(broker.EffectOpen)).Inc()
		e.appendJournal(ticket, broker.EffectOpen, nil, "", journal.OutcomeTranslateFailed, err.Error())
		if errors.Is(err, broker.ErrUnavailable) {
			log.WithError(err).Warn("open translation unavailable; will retry next tick")
			return openRetry
		}
		log.WithError(err).Warn("position cannot be translated; skipping")
		return openSkip
	}

	orderID, err := e.exec.SubmitOpen(ctx, spec)
	if err != nil {
		metrics.SubmitFailures.WithLabelValues(string(broker.EffectOpen)).Inc()
		log.WithError(err).Error("open submission failed; will retry next tick")
		e.appendJournal(ticket, broker.EffectOpen, &spec, "", journal.OutcomeSubmitFailed, err.Error())
		return openRetry
	}

	rec := store.MirrorRecord{
		Contract: spec.Contract,
		Quantity: spec.Quantity,
		Side:     spec.Side,
		OpenedAt: e.now(),
	}
	if err := e.store.Create(ticket, rec); err != nil {
		if errors.Is(err, store.ErrExists) {
			log.WithError(err).Error("duplicate mirror record; open order submitted twice")
			return openDone
		}
		// record created in memory; only persistence failed
		log.WithError(err).Warn("mirror record held in memory only")
	}

	metrics.MirrorOpens.Inc()
	log.WithFields(logrus.Fields{
		"order_id": orderID,
		"contract": fmt.Sprintf("%s %s %s %.2f", spec.Contract.Symbol, spec.Contract.Expiration, spec.Contract.Type, spec.Contract.Strike),
		"limit":    spec.LimitPrice,
	}).Info("mirrored open")
	e.appendJournal(ticket, broker.EffectOpen, &spec, orderID, journal.OutcomeSubmitted, "")
	return openDone
}

// mirrorClose attempts the close once. Whatever the outcome, the day trade
// is recorded and the record removed: a close that stays unquotable must not
// turn into a retry storm, so an abandoned position is flagged for manual
// reconciliation instead.
func (e *Engine) mirrorClose(ctx context.Context, t source.TicketID) {
	ticket := ticketKey(t)
	log := e.log.WithFields(logrus.Fields{
		"ticket": ticket,
		"action": "close",
	})

	rec, ok := e.store.Get(ticket)
	if !ok {
		// never mirrored (gate block, translation failure, or pre-dates us)
		log.Debug("source position closed with no mirror record")
		return
	}

	if d := e.gate.Allow(ctx, risk.ActionClose); !d.Allowed {
		metrics.GateDenials.WithLabelValues(d.Code, string(risk.ActionClose)).Inc()
		log.WithField("code", d.Code).Warn("gate denied close; abandoning mirrored position: " + d.Reason)
		e.appendJournal(ticket, broker.EffectClose, nil, "", journal.OutcomeGateDenied, d.Reason)
	} else if spec, err := e.translator.Close(ctx, rec); err != nil {
		metrics.TranslateFailures.WithLabelValues(string(broker.EffectClose)).Inc()
		log.WithError(err).Warn("close unquotable; abandoning mirrored position for manual reconciliation")
		e.appendJournal(ticket, broker.EffectClose, nil, "", journal.OutcomeTranslateFailed, err.Error())
	} else if orderID, err := e.exec.SubmitClose(ctx, spec); err != nil {
		metrics.SubmitFailures.WithLabelValues(string(broker.EffectClose)).Inc()
		log.WithError(err).Error("close submission failed; abandoning mirrored position")
		e.appendJournal(ticket, broker.EffectClose, &spec, "", journal.OutcomeSubmitFailed, err.Error())
	} else {
		metrics.MirrorCloses.Inc()
		log.WithFields(logrus.Fields{
			"order_id": orderID,
			"limit":    spec.LimitPrice,
		}).Info("mirrored close")
		e.appendJournal(ticket, broker.EffectClose, &spec, orderID, journal.OutcomeSubmitted, "")
	}

	if e.ledger.Record(rec.OpenedAt) {
		log.WithField("today", e.ledger.Count(e.now())).Info("same-day round trip counted as day trade")
	}
	if err := e.store.Delete(ticket); err != nil {
		log.WithError(err).Warn("mirror record removed in memory only")
	}
}

func (e *Engine) appendJournal(ticket string, effect broker.PositionEffect, spec *broker.OrderSpec, orderID, outcome, reason string) {
	entry := journal.Entry{
		Ticket:  ticket,
		Effect:  string(effect),
		OrderID: orderID,
		Outcome: outcome,
		Reason:  reason,
		Time:    e.now(),
	}
	if spec != nil {
		entry.Symbol = spec.Contract.Symbol
		entry.Expiration = spec.Contract.Expiration
		entry.Strike = spec.Contract.Strike
		entry.OptionType = string(spec.Contract.Type)
		entry.Quantity = spec.Quantity
		entry.Side = string(spec.Side)
		entry.LimitPrice = spec.LimitPrice
	}
	if err := e.jrnl.Append(entry); err != nil {
		e.log.WithError(err).Warn("journal append failed")
	}
}

func ticketKey(t source.TicketID) string {
	return strconv.FormatInt(int64(t), 10)
}
