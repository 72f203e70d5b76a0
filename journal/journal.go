// Package journal appends an audit trail of every attempted mirror action.
// Journaling is best-effort: a failed append is logged by the caller and
// never blocks mirroring.
package journal

import "time"

// Outcomes of a mirror attempt.
const (
	OutcomeSubmitted       = "submitted"
	OutcomeGateDenied      = "gate_denied"
	OutcomeTranslateFailed = "translate_failed"
	OutcomeSubmitFailed    = "submit_failed"
)

// Entry is one attempted open or close, successful or not.
type Entry struct {
	ID         string // assigned by the journal when empty
	Ticket     string
	Symbol     string
	Expiration string
	Strike     float64
	OptionType string
	Quantity   int
	Side       string
	Effect     string // open|close
	OrderID    string // empty unless submitted
	LimitPrice float64
	Outcome    string
	Reason     string
	Time       time.Time
}

type Journal interface {
	Append(e Entry) error
	Close() error
}

// Nop discards entries; used when journaling is disabled.
type Nop struct{}

func (Nop) Append(Entry) error { return nil }
func (Nop) Close() error       { return nil }
