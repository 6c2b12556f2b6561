package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/TG-16/anonymous-telegram-bot/chat"
)

// userKeyPrefix namespaces user records inside the Badger keyspace.
const userKeyPrefix = "user:"

// Badger is a Backend over an embedded Badger database. It keeps the bot
// deployable as a single process with a local data directory and no external
// services.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the Badger database at path.
func OpenBadger(path string) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %s: %w", path, err)
	}
	return &Badger{db: db}, nil
}

// LoadAll scans the user prefix and decodes every record.
func (b *Badger) LoadAll(context.Context) (map[string]*chat.User, error) {
	users := make(map[string]*chat.User)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var u chat.User
				if err := json.Unmarshal(val, &u); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				users[u.ID] = &u
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SaveAll writes every record in a single transaction.
func (b *Badger) SaveAll(_ context.Context, users map[string]*chat.User) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for id, u := range users {
			data, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("encode %s: %w", id, err)
			}
			if err := txn.Set([]byte(userKeyPrefix+id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}
