// Package store owns the durable mapping from source ticket to mirrored
// destination position. The mapping is what lets a restarted process keep
// closing positions it opened in a previous run.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/mirrorops/copytrader/broker"
)

// ErrExists is returned by Create when a record is already held for the
// ticket. It is the duplicate-open guard.
var ErrExists = errors.New("mirror record already exists")

// MirrorRecord describes one mirrored destination position. The source
// ticket is the map key, not a field.
type MirrorRecord struct {
	Contract broker.OptionContract `json:"contract"`
	Quantity int                   `json:"quantity"`
	Side     broker.Side           `json:"side"`
	OpenedAt time.Time             `json:"opened_at"`
}

// Backend serializes the full record mapping to durable storage. Keeping it
// behind an interface lets an implementation batch writes without changing
// the store's correctness contract.
type Backend interface {
	Load() (map[string]MirrorRecord, error)
	Save(records map[string]MirrorRecord) error
}

// Store keeps the authoritative in-memory mapping and writes it through the
// backend after every mutation. It is single-writer by design: only the
// engine's polling loop touches it.
type Store struct {
	backend Backend
	records map[string]MirrorRecord
}

// Open loads existing records through the backend. On a load failure the
// store still opens, empty, and the error is returned so the caller can log
// the condition; a corrupt or missing file must not abort startup.
func Open(backend Backend) (*Store, error) {
	s := &Store{backend: backend, records: make(map[string]MirrorRecord)}
	records, err := backend.Load()
	if err != nil {
		return s, fmt.Errorf("load mirror records: %w", err)
	}
	if records != nil {
		s.records = records
	}
	return s, nil
}

// Create records a newly mirrored position. A ticket that already has a
// record is rejected with ErrExists. Any other error means the record was
// created in memory but persisting it failed; in-memory state remains
// authoritative for the rest of the run.
func (s *Store) Create(ticket string, rec MirrorRecord) error {
	if _, ok := s.records[ticket]; ok {
		return fmt.Errorf("%w: ticket %s", ErrExists, ticket)
	}
	s.records[ticket] = rec
	return s.persist()
}

func (s *Store) Get(ticket string) (MirrorRecord, bool) {
	rec, ok := s.records[ticket]
	return rec, ok
}

// Delete removes a record. Deleting an absent ticket is a no-op.
func (s *Store) Delete(ticket string) error {
	if _, ok := s.records[ticket]; !ok {
		return nil
	}
	delete(s.records, ticket)
	return s.persist()
}

func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of the current mapping.
func (s *Store) Records() map[string]MirrorRecord {
	out := make(map[string]MirrorRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

func (s *Store) persist() error {
	if err := s.backend.Save(s.Records()); err != nil {
		return fmt.Errorf("persist mirror records: %w", err)
	}
	return nil
}
