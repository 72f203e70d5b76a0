package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mirrorops/copytrader/pkg/id"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(e Entry) error {
	if e.ID == "" {
		e.ID = id.New()
	}
	_, err := j.db.Exec(`
		INSERT INTO mirror_actions
		(id, ticket, symbol, expiration, strike, option_type, quantity, side, effect, order_id, limit_price, outcome, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Ticket, e.Symbol, e.Expiration, e.Strike, e.OptionType,
		e.Quantity, e.Side, e.Effect, e.OrderID, e.LimitPrice, e.Outcome, e.Reason, e.Time,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
