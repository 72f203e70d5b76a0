package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(ticket, outcome string) Entry {
	return Entry{
		Ticket:     ticket,
		Symbol:     "TSLA",
		Expiration: "2025-03-14",
		Strike:     250,
		OptionType: "call",
		Quantity:   1,
		Side:       "buy",
		Effect:     "open",
		OrderID:    "OID1",
		LimitPrice: 10.01,
		Outcome:    outcome,
		Reason:     "market open",
		Time:       time.Date(2025, 3, 14, 10, 5, 0, 0, time.UTC),
	}
}

func TestSQLiteAppend(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Append(sampleEntry("12345", OutcomeSubmitted)))
	require.NoError(t, j.Append(sampleEntry("12346", OutcomeGateDenied)))

	var count int
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM mirror_actions`).Scan(&count))
	assert.Equal(t, 2, count)

	var outcome, entryID string
	require.NoError(t, j.db.QueryRow(
		`SELECT id, outcome FROM mirror_actions WHERE ticket = ?`, "12345").Scan(&entryID, &outcome))
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.NotEmpty(t, entryID) // id assigned on append
}

func TestCSVAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	require.NoError(t, j.Append(sampleEntry("12345", OutcomeSubmitted)))
	require.NoError(t, j.Close())
}
