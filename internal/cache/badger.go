package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	checksumPrefix    = "checksum:"
	lastUpdatedPrefix = "last_updated:"
	tagPrefix         = "tag:"
	publishedPrefix   = "published:"
)

// Store is the side cache shared by all pipelines: content checksums,
// last-updated stamps, tag invalidation stamps and the publish ledger.
type Store struct {
	db *badger.DB
}

// Open opens a badger store at path. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) get(key string) ([]byte, bool, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) set(key string, val []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// Checksum returns the stored content hash for key.
func (s *Store) Checksum(_ context.Context, key string) (string, bool, error) {
	v, ok, err := s.get(checksumPrefix + key)
	return string(v), ok, err
}

func (s *Store) SetChecksum(_ context.Context, key, hash string) error {
	return s.set(checksumPrefix+key, []byte(hash))
}

// LastUpdated returns when rows were last inserted for a dataset.
func (s *Store) LastUpdated(_ context.Context, dataset string) (time.Time, bool, error) {
	return s.getTime(lastUpdatedPrefix + dataset)
}

func (s *Store) SetLastUpdated(_ context.Context, dataset string, at time.Time) error {
	return s.setTime(lastUpdatedPrefix+dataset, at)
}

// Invalidate stamps each tag with the current time. Readers compare the stamp
// against their own fill time to decide whether cached data is stale.
func (s *Store) Invalidate(_ context.Context, tags []string) error {
	now := time.Now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		for _, tag := range tags {
			b, err := now.MarshalText()
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(tagPrefix+tag), b); err != nil {
				return err
			}
		}
		return nil
	})
}

// TagStamp returns the last invalidation time of a tag.
func (s *Store) TagStamp(_ context.Context, tag string) (time.Time, bool, error) {
	return s.getTime(tagPrefix + tag)
}

// Published reports whether a post was already announced on a channel.
func (s *Store) Published(_ context.Context, postID, channel string) (bool, error) {
	_, ok, err := s.get(publishedPrefix + postID + ":" + channel)
	return ok, err
}

func (s *Store) MarkPublished(_ context.Context, postID, channel string) error {
	return s.setTime(publishedPrefix+postID+":"+channel, time.Now().UTC())
}

func (s *Store) getTime(key string) (time.Time, bool, error) {
	v, ok, err := s.get(key)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	var t time.Time
	if err := t.UnmarshalText(v); err != nil {
		return time.Time{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return t, true, nil
}

func (s *Store) setTime(key string, t time.Time) error {
	b, err := t.UTC().MarshalText()
	if err != nil {
		return err
	}
	return s.set(key, b)
}
