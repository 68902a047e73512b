package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/contactpic/pkg/avatar"
)

const prefixContact = "contact:"

func keyContact(address string) []byte {
	return []byte(prefixContact + address)
}

// BadgerProvider keeps contacts in an embedded badger store, one JSON value
// per "contact:<address>" key.
type BadgerProvider struct {
	db *badgerdb.DB
}

// NewBadgerProvider opens (or creates) the store described by cfg.
func NewBadgerProvider(cfg BadgerConfig) (*BadgerProvider, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerProvider{db: db}, nil
}

// Type implements Provider.
func (p *BadgerProvider) Type() Type { return TypeBadger }

// LocatePhoto implements Provider.
func (p *BadgerProvider) LocatePhoto(ctx context.Context, address string) (avatar.Locator, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	c, found, err := p.get(NormalizeAddress(address))
	if err != nil || !found || !c.HasPhoto() {
		return "", false, err
	}
	return avatar.Locator(c.Photo), true, nil
}

func (p *BadgerProvider) get(address string) (Contact, bool, error) {
	var (
		c     Contact
		found bool
	)

	err := p.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyContact(address))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		return Contact{}, false, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, found, nil
}

// List implements Lister. Keys iterate in byte order, so contacts come back
// sorted by address.
func (p *BadgerProvider) List(ctx context.Context) ([]Contact, error) {
	var out []Contact

	err := p.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixContact)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if len(out)%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			err := it.Item().Value(func(val []byte) error {
				var c Contact
				if err := json.Unmarshal(val, &c); err != nil {
					return err
				}
				out = append(out, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return out, nil
}

// Put implements Writer.
func (p *BadgerProvider) Put(ctx context.Context, c Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := c.normalize()
	if err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return p.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyContact(c.Address), data); err != nil {
			return fmt.Errorf("failed to store contact: %w", err)
		}
		return nil
	})
}

// Delete implements Writer.
func (p *BadgerProvider) Delete(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := NormalizeAddress(address)
	return p.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(keyContact(addr)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrContactNotFound, addr)
			}
			return err
		}
		return txn.Delete(keyContact(addr))
	})
}

// CacheHitRatios returns badger's block and index cache hit ratios.
func (p *BadgerProvider) CacheHitRatios() map[string]float64 {
	return map[string]float64{
		"block": p.db.BlockCacheMetrics().Ratio(),
		"index": p.db.IndexCacheMetrics().Ratio(),
	}
}

// Close implements Provider.
func (p *BadgerProvider) Close() error {
	return p.db.Close()
}
