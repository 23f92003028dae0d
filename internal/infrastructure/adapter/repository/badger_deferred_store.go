package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/amirhossein-jamali/settlement-engine/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/domain/port/persistence"
)

const deferredPrefix = "deferred/"

// BadgerDeferredStore parks chain events in badger under deferred/<address>/<externalRef>
type BadgerDeferredStore struct {
	db     *badger.DB
	logger coreport.Logger
}

var _ persistence.DeferredStore = (*BadgerDeferredStore)(nil)

// DeferredStoreConfig selects where parked events live
type DeferredStoreConfig struct {
	Path     string
	InMemory bool
}

// NewBadgerDeferredStore opens (or creates) the badger database
func NewBadgerDeferredStore(config DeferredStoreConfig, logger coreport.Logger) (*BadgerDeferredStore, error) {
	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open deferred store: %w", err)
	}

	logger.Info("Deferred event store opened", map[string]any{
		"path":      config.Path,
		"in_memory": config.InMemory,
	})
	return &BadgerDeferredStore{db: db, logger: logger}, nil
}

func deferredKey(address, externalRef string) []byte {
	return []byte(deferredPrefix + address + "/" + externalRef)
}

func deferredAddressPrefix(address string) []byte {
	return []byte(deferredPrefix + address + "/")
}

// Park stores the event under the address; parking again overwrites the same key
func (s *BadgerDeferredStore) Park(ctx context.Context, address string, event entity.ChainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode chain event: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deferredKey(address, event.ExternalRef), value)
	})
}

// Parked returns every event waiting on the address, in key order
func (s *BadgerDeferredStore) Parked(ctx context.Context, address string) ([]entity.ChainEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []entity.ChainEvent
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = deferredAddressPrefix(address)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var event entity.ChainEvent
				if err := json.Unmarshal(val, &event); err != nil {
					return fmt.Errorf("decode parked event %s: %w", item.Key(), err)
				}
				events = append(events, event)
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
	return events, nil
}

// Release deletes one parked event. Releasing an absent event is a no-op.
func (s *BadgerDeferredStore) Release(ctx context.Context, address, externalRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(deferredKey(address, externalRef))
	})
}

// Close closes the badger database
func (s *BadgerDeferredStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf-style logging onto the domain logger
type badgerLogger struct {
	logger coreport.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...), map[string]any{"component": "badger"})
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...), map[string]any{"component": "badger"})
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), map[string]any{"component": "badger"})
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...), map[string]any{"component": "badger"})
}
