package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/yourorg/motor-stats/internal/fetch"
)

// Store keeps the last known content hash per key. Entries never expire.
type Store interface {
	Checksum(ctx context.Context, key string) (hash string, found bool, err error)
	SetChecksum(ctx context.Context, key, hash string) error
}

// Decision is the outcome of comparing fresh content against the cached hash.
type Decision struct {
	Key      string
	Hash     string
	Previous string
	FirstRun bool
	Changed  bool
}

// Proceed reports whether parsing and persistence should run.
func (d Decision) Proceed() bool { return d.FirstRun || d.Changed }

// Gate decides whether downstream work is necessary for a file.
type Gate struct {
	Store Store
}

func NewGate(s Store) *Gate { return &Gate{Store: s} }

// Check hashes the file and compares it with the stored hash. It never writes;
// the caller commits the new hash once persistence has succeeded.
func (g *Gate) Check(ctx context.Context, key string, f fetch.ExtractedFile) (Decision, error) {
	hash, err := Hash(f)
	if err != nil {
		return Decision{}, err
	}
	prev, found, err := g.Store.Checksum(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("read checksum %s: %w", key, err)
	}
	return Decision{
		Key:      key,
		Hash:     hash,
		Previous: prev,
		FirstRun: !found,
		Changed:  found && prev != hash,
	}, nil
}

// Commit records the decision's hash as the current known hash.
func (g *Gate) Commit(ctx context.Context, d Decision) error {
	if err := g.Store.SetChecksum(ctx, d.Key, d.Hash); err != nil {
		return fmt.Errorf("write checksum %s: %w", d.Key, err)
	}
	return nil
}

// Hash returns the hex SHA-256 of an in-memory or on-disk file.
func Hash(f fetch.ExtractedFile) (string, error) {
	h := sha256.New()
	if f.Path == "" {
		h.Write(f.Data)
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer fh.Close()
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("hash %s: %w", f.Path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
