// Package migrate copies every key from one Filer to another, e.g. from a directory tree into bitcask.
// Values are moved as opaque bytes, so the shelf codec does not matter.
package migrate

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.tcp.direct/tcp.direct/dirshelf"
)

// DefaultConcurrency bounds the number of keys copied at once.
const DefaultConcurrency = 8

var (
	ErrNoKeys  = errors.New("no keys found in source filer")
	ErrDupKeys = errors.New(
		"duplicate keys found in destination filer, enable skipping or clobbering of existing data to continue migration",
	)
)

type ErrDuplicateKeys struct {
	Duplicates []string
}

func (e ErrDuplicateKeys) Unwrap() error {
	return ErrDupKeys
}

func (e ErrDuplicateKeys) Error() string {
	return "duplicate keys found in destination filer, enable skipping or clobbering of existing data to continue migration"
}

func NewDuplicateKeysErr(duplicates []string) *ErrDuplicateKeys {
	slices.Sort(duplicates)
	return &ErrDuplicateKeys{Duplicates: duplicates}
}

type Migrator struct {
	From dirshelf.Filer
	To   dirshelf.Filer

	duplicateKeys map[string]struct{}

	clobber      bool
	skipExisting bool
	concurrency  int

	mu sync.Mutex
}

func NewMigrator(from, to dirshelf.Filer) *Migrator {
	return &Migrator{
		From:         from,
		To:           to,
		clobber:      false,
		skipExisting: false,
		concurrency:  DefaultConcurrency,
	}
}

// WithClobber sets the clobber flag on the Migrator, allowing it to overwrite existing data in the destination Filer.
func (m *Migrator) WithClobber() *Migrator {
	m.mu.Lock()
	m.clobber = true
	m.mu.Unlock()
	return m
}

// WithSkipExisting sets the skipExisting flag on the Migrator, allowing it to skip existing data in the destination Filer.
func (m *Migrator) WithSkipExisting() *Migrator {
	m.mu.Lock()
	m.skipExisting = true
	m.mu.Unlock()
	return m
}

// WithConcurrency caps how many keys are copied in parallel. n < 1 means DefaultConcurrency.
func (m *Migrator) WithConcurrency(n int) *Migrator {
	m.mu.Lock()
	if n < 1 {
		n = DefaultConcurrency
	}
	m.concurrency = n
	m.mu.Unlock()
	return m
}

// CheckDupes records every source key that already exists in the destination. It returns an
// *ErrDuplicateKeys when there are any and neither clobbering nor skipping is enabled.
func (m *Migrator) CheckDupes() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkDupes()
}

func (m *Migrator) checkDupes() error {
	srcKeys, err := m.From.Keys()
	if err != nil {
		return err
	}
	if len(srcKeys) == 0 {
		return ErrNoKeys
	}
	dstKeys, err := m.To.Keys()
	if err != nil {
		return err
	}
	existing := make(map[string]struct{}, len(dstKeys))
	for _, key := range dstKeys {
		existing[key] = struct{}{}
	}
	m.duplicateKeys = make(map[string]struct{})
	for _, key := range srcKeys {
		if _, ok := existing[key]; ok {
			m.duplicateKeys[key] = struct{}{}
		}
	}

	if len(m.duplicateKeys) == 0 || m.skipExisting || m.clobber {
		return nil
	}
	return NewDuplicateKeysErr(m.dupeSlice())
}

func (m *Migrator) dupeSlice() []string {
	out := make([]string, 0, len(m.duplicateKeys))
	for key := range m.duplicateKeys {
		out = append(out, key)
	}
	return out
}

// Migrate copies every key of From into To and returns the keys that were written.
// The first failure cancels the remaining copies; keys already copied stay copied.
// Both Filers are synced afterwards.
func (m *Migrator) Migrate(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkDupes(); err != nil {
		return nil, err
	}
	keys, err := m.From.Keys()
	if err != nil {
		return nil, err
	}

	var (
		written   = make([]string, 0, len(keys))
		writtenMu sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, key := range keys {
		if _, dupe := m.duplicateKeys[key]; dupe && m.skipExisting && !m.clobber {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			srcVal, err := m.From.Get(key)
			if err != nil {
				return err
			}
			if err = m.To.Put(key, srcVal); err != nil {
				return err
			}
			writtenMu.Lock()
			written = append(written, key)
			writtenMu.Unlock()
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		slices.Sort(written)
		return written, err
	}
	if err = ctx.Err(); err != nil {
		return written, err
	}

	slices.Sort(written)
	return written, errors.Join(m.From.Sync(), m.To.Sync())
}
