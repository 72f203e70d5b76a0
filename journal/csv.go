package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/mirrorops/copytrader/pkg/id"
)

type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "ticket", "symbol", "expiration", "strike", "option_type",
		"quantity", "side", "effect", "order_id", "limit_price", "outcome", "reason", "time",
	}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) Append(e Entry) error {
	if e.ID == "" {
		e.ID = id.New()
	}
	if err := j.w.Write([]string{
		e.ID,
		e.Ticket,
		e.Symbol,
		e.Expiration,
		f(e.Strike),
		e.OptionType,
		strconv.Itoa(e.Quantity),
		e.Side,
		e.Effect,
		e.OrderID,
		f(e.LimitPrice),
		e.Outcome,
		e.Reason,
		e.Time.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
