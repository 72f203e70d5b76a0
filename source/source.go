// Package source defines the trading platform the engine mirrors from: a
// capability that lists the currently open positions, plus the snapshot
// types and set arithmetic the polling loop is built on.
package source

import (
	"context"
	"sort"
)

// TicketID is the stable identifier a source platform assigns to one open
// position for its whole lifetime.
type TicketID int64

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Position is one source position record as observed at a poll tick.
// Snapshots are ephemeral; they are recomputed every poll and never stored.
type Position struct {
	Ticket    TicketID
	Symbol    string
	Direction Direction
	Size      float64
	Magic     int64 // strategy tag, 0 when the platform reports none
	Price     float64
}

// Source lists the open positions on the watched account. A transient
// failure returns an error; callers must treat that as "no information",
// never as "no positions".
type Source interface {
	OpenPositions(ctx context.Context) ([]Position, error)
}

// TicketSet is the set of tickets seen in one snapshot.
type TicketSet map[TicketID]struct{}

// Tickets collects the ticket ids of a snapshot.
func Tickets(positions []Position) TicketSet {
	set := make(TicketSet, len(positions))
	for _, p := range positions {
		set[p.Ticket] = struct{}{}
	}
	return set
}

// Diff computes the per-tick deltas on ticket identity only:
// opened = current - previous, closed = previous - current.
// Results are sorted so log output is stable.
func Diff(previous, current TicketSet) (opened, closed []TicketID) {
	for t := range current {
		if _, ok := previous[t]; !ok {
			opened = append(opened, t)
		}
	}
	for t := range previous {
		if _, ok := current[t]; !ok {
			closed = append(closed, t)
		}
	}
	sort.Slice(opened, func(i, j int) bool { return opened[i] < opened[j] })
	sort.Slice(closed, func(i, j int) bool { return closed[i] < closed[j] })
	return opened, closed
}

// FilterByMagic keeps only positions carrying the given strategy tag.
// A zero filter disables filtering.
func FilterByMagic(positions []Position, magic int64) []Position {
	if magic == 0 {
		return positions
	}
	out := positions[:0:0]
	for _, p := range positions {
		if p.Magic == magic {
			out = append(out, p)
		}
	}
	return out
}
