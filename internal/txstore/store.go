// Package txstore journals submitted transactions in a local Badger database.
//
// The journal lets a wallet show what it has sent and avoid spending the
// inputs of a transaction that is still pending on the network.
package txstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	walleterr "github.com/mrz1836/dnawallet/pkg/errors"
)

// Journal statuses. They mirror the chain transaction statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

const txPrefix = "tx/"

// Outpoint names a spent output.
type Outpoint struct {
	TxHash   string `json:"tx_hash"`
	OutIndex uint32 `json:"out_index"`
}

// Key returns the outpoint identifier (HASH:index), ignoring hash case and 0x prefix.
func (o Outpoint) Key() string {
	h := strings.TrimPrefix(strings.TrimPrefix(o.TxHash, "0x"), "0X")
	return fmt.Sprintf("%s:%d", strings.ToUpper(h), o.OutIndex)
}

// Record is one submitted transaction.
type Record struct {
	Hash      string     `json:"hash"`
	Chain     string     `json:"chain"`
	Network   string     `json:"network"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Amount    string     `json:"amount"`
	Fee       string     `json:"fee"`
	Ticker    string     `json:"ticker"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Inputs    []Outpoint `json:"inputs,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Store is the journal.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the journal in dir.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts, logger, dir)
}

// OpenInMemory opens a journal that lives only as long as the process.
func OpenInMemory(logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger, ":memory:")
}

func open(opts badger.Options, logger zerolog.Logger, where string) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("journal at %s is locked by another process: %w", where, err)
		}
		return nil, fmt.Errorf("open journal at %s: %w", where, err)
	}
	return &Store{db: db, logger: logger.With().Str("component", "txstore").Logger()}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces rec. CreatedAt is kept from an existing record.
func (s *Store) Put(rec *Record) error {
	if rec == nil || rec.Hash == "" {
		return walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"field": "hash"})
	}

	now := time.Now().UTC()
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := get(txn, rec.Hash)
		switch {
		case err == nil:
			rec.CreatedAt = existing.CreatedAt
		case errors.Is(err, walleterr.ErrTransactionNotFound):
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = now
			}
		default:
			return err
		}
		if rec.Status == "" {
			rec.Status = StatusPending
		}
		rec.UpdatedAt = now
		return set(txn, rec)
	})
	if err != nil {
		return fmt.Errorf("journal put %s: %w", rec.Hash, err)
	}
	s.logger.Debug().Str("hash", rec.Hash).Str("status", rec.Status).Msg("journaled transaction")
	return nil
}

// Get returns the record for hash or ErrTransactionNotFound.
func (s *Store) Get(hash string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = get(txn, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateStatus sets the status of an existing record.
func (s *Store) UpdateStatus(hash, status, reason string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := get(txn, hash)
		if err != nil {
			return err
		}
		if rec.Status == status && rec.Reason == reason {
			return nil
		}
		rec.Status = status
		rec.Reason = reason
		rec.UpdatedAt = time.Now().UTC()
		return set(txn, rec)
	})
}

// List returns the records of chainName (all chains when empty), oldest first.
func (s *Store) List(chainName string) ([]*Record, error) {
	var out []*Record
	prefix := []byte(txPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			if chainName == "" || rec.Chain == chainName {
				out = append(out, &rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// PendingSpends returns the outpoints consumed by pending transactions from address.
func (s *Store) PendingSpends(chainName, from string) (map[string]struct{}, error) {
	recs, err := s.List(chainName)
	if err != nil {
		return nil, err
	}
	spent := make(map[string]struct{})
	for _, rec := range recs {
		if rec.Status != StatusPending || rec.From != from {
			continue
		}
		for _, in := range rec.Inputs {
			spent[in.Key()] = struct{}{}
		}
	}
	return spent, nil
}

func key(hash string) []byte {
	return []byte(txPrefix + strings.ToUpper(hash))
}

func get(txn *badger.Txn, hash string) (*Record, error) {
	item, err := txn.Get(key(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, walleterr.WithDetails(walleterr.ErrTransactionNotFound, map[string]string{"hash": hash})
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}

	var rec Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", hash, err)
	}
	return &rec, nil
}

func set(txn *badger.Txn, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return txn.Set(key(rec.Hash), data)
}
