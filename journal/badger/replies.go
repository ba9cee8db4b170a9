// Copyright 2026 Tesserae Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tesserae/deepinspect/journal"
)

// Repository implements journal.Repository on BadgerDB.
type Repository struct {
	backend *Backend
}

var _ journal.Repository = (*Repository)(nil)

// NewRepository creates a reply journal over an open backend.
//
// Returns journal.Repository (not *Repository) to enforce abstraction.
func NewRepository(backend *Backend) journal.Repository {
	return &Repository{backend: backend}
}

// Record persists one reply entry, maintaining the time index.
// A zero SentAt is stamped with the current time.
func (r *Repository) Record(ctx context.Context, entry *journal.Entry) error {
	if entry == nil || entry.CorrelationID == "" {
		return journal.ErrInvalidEntry
	}

	sentAt := entry.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeReplyKey(entry.CorrelationID)

		// Redelivered message: drop the previous time-index entry so the
		// index never points at two versions of one reply.
		if previous, err := tx.Get(key); err == nil {
			var previousSentAt time.Time
			err := previous.Value(func(val []byte) error {
				previousSentAt, _ = decodeValue(val)
				return nil
			})
			if err != nil {
				return err
			}
			if err := tx.Delete(makeReplyTimeKey(previousSentAt, entry.CorrelationID)); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := tx.Set(key, encodeValue(sentAt, entry.Reply)); err != nil {
			return err
		}
		if err := tx.Set(makeReplyTimeKey(sentAt, entry.CorrelationID), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves the journaled reply for a correlation id.
func (r *Repository) Get(ctx context.Context, correlationID string) (*journal.Entry, error) {
	var entry *journal.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeReplyKey(correlationID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return journal.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			sentAt, reply := decodeValue(val)
			entry = &journal.Entry{
				CorrelationID: correlationID,
				SentAt:        sentAt,
				Reply:         reply,
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first, walking the time index
// backwards.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*journal.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	var ids []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(replyTimePrefix + ":")

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past every key under the prefix, then walk back through it.
		seek := append(append([]byte{}, prefix...), 0xff)
		for iter.Seek(seek); iter.ValidForPrefix(prefix); iter.Next() {
			ids = append(ids, correlationIDFromTimeKey(iter.Item().Key()))
			if len(ids) == limit {
				break
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	entries := make([]*journal.Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close closes the backing store.
func (r *Repository) Close() error {
	return r.backend.Close()
}

// Value layout: 8-byte BigEndian unix-microsecond timestamp, then the
// encoded reply bytes verbatim.
func encodeValue(sentAt time.Time, reply []byte) []byte {
	buf := make([]byte, 8+len(reply))
	binary.BigEndian.PutUint64(buf, uint64(sentAt.UnixMicro()))
	copy(buf[8:], reply)
	return buf
}

func decodeValue(val []byte) (time.Time, []byte) {
	if len(val) < 8 {
		return time.Time{}, nil
	}
	sentAt := time.UnixMicro(int64(binary.BigEndian.Uint64(val))).UTC()
	reply := make([]byte, len(val)-8)
	copy(reply, val[8:])
	return sentAt, reply
}
