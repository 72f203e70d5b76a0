package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(ids ...TicketID) TicketSet {
	s := make(TicketSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		previous   TicketSet
		current    TicketSet
		wantOpened []TicketID
		wantClosed []TicketID
	}{
		{"no change", set(1, 2), set(1, 2), nil, nil},
		{"one in one out", set(1, 2, 3), set(2, 3, 4), []TicketID{4}, []TicketID{1}},
		{"all new", set(), set(5, 6), []TicketID{5, 6}, nil},
		{"all closed", set(5, 6), set(), nil, []TicketID{5, 6}},
		{"empty both", set(), set(), nil, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opened, closed := Diff(tt.previous, tt.current)
			assert.Equal(t, tt.wantOpened, opened)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestTickets(t *testing.T) {
	t.Parallel()

	positions := []Position{
		{Ticket: 10, Symbol: "EURUSD", Direction: Long, Size: 1},
		{Ticket: 11, Symbol: "EURUSD", Direction: Short, Size: 2},
	}
	assert.Equal(t, set(10, 11), Tickets(positions))
	assert.Empty(t, Tickets(nil))
}

func TestFilterByMagic(t *testing.T) {
	t.Parallel()

	positions := []Position{
		{Ticket: 1, Magic: 15},
		{Ticket: 2, Magic: 7},
		{Ticket: 3, Magic: 15},
	}

	filtered := FilterByMagic(positions, 15)
	assert.Len(t, filtered, 2)
	assert.Equal(t, TicketID(1), filtered[0].Ticket)
	assert.Equal(t, TicketID(3), filtered[1].Ticket)

	// zero disables the filter
	assert.Len(t, FilterByMagic(positions, 0), 3)
}
