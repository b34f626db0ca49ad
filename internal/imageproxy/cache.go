package imageproxy

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// cached is a stored upstream response.
type cached struct {
	ContentType string
	Body        []byte
}

// Cache stores fetched images. Badger entries expire after their TTL.
type Cache struct {
	db  *badger.DB
	log *slog.Logger
}

// OpenCache opens a badger cache in dir. An empty dir keeps the cache in
// memory.
func OpenCache(dir string, log *slog.Logger) (*Cache, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create image cache dir %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.
		WithLogger(badgerLogger{log.With("component", "badgerdb")}).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open image cache: %w", err)
	}
	return &Cache{db: db, log: log}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) get(key string) (*cached, bool, error) {
	var out *cached
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ct, body, ok := bytes.Cut(val, []byte{'\n'})
			if !ok {
				return errors.New("corrupt cache entry")
			}
			out = &cached{ContentType: string(ct), Body: bytes.Clone(body)}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *Cache) set(key string, v *cached, ttl time.Duration) error {
	val := make([]byte, 0, len(v.ContentType)+1+len(v.Body))
	val = append(val, v.ContentType...)
	val = append(val, '\n')
	val = append(val, v.Body...)

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), val)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any)   { l.log.Error(line(f, v)) }
func (l badgerLogger) Warningf(f string, v ...any) { l.log.Warn(line(f, v)) }
func (l badgerLogger) Infof(f string, v ...any)    { l.log.Debug(line(f, v)) }
func (l badgerLogger) Debugf(f string, v ...any)   { l.log.Debug(line(f, v)) }

func line(f string, v []any) string {
	return strings.TrimRight(fmt.Sprintf(f, v...), "\n")
}
