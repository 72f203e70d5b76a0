package risk

import "time"

const dateLayout = "2006-01-02"

// DayTradeLedger counts same-day open+close round trips per calendar date.
// The engine is the only writer; no locking is needed under the single
// polling loop.
type DayTradeLedger struct {
	counts map[string]int
	now    func() time.Time
}

func NewDayTradeLedger() *DayTradeLedger {
	return &DayTradeLedger{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// WithClock replaces the ledger's clock. Intended for tests.
func (l *DayTradeLedger) WithClock(now func() time.Time) *DayTradeLedger {
	l.now = now
	return l
}

// Record counts one day trade if the position was opened today; a close of
// an older position is not a day trade and is ignored. Returns whether a
// round trip was counted.
func (l *DayTradeLedger) Record(openTime time.Time) bool {
	today := l.now().Format(dateLayout)
	if openTime.Format(dateLayout) != today {
		return false
	}
	l.counts[today]++
	return true
}

// RollingSum totals the counters for calendar dates within the last
// windowDays of now. Unparseable keys are skipped rather than failing the
// whole sum.
func (l *DayTradeLedger) RollingSum(now time.Time, windowDays int) int {
	cutoff := midnightUTC(now.AddDate(0, 0, -windowDays))
	sum := 0
	for key, n := range l.counts {
		day, err := time.Parse(dateLayout, key)
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			sum += n
		}
	}
	return sum
}

// Count reports the counter for one calendar date.
func (l *DayTradeLedger) Count(date time.Time) int {
	return l.counts[date.Format(dateLayout)]
}

func midnightUTC(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
