// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"math"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/cache/metercacher"
	"github.com/luxfi/constants"
	"github.com/luxfi/database"
	"github.com/luxfi/database/linkeddb"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils/wrappers"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/hookvm/config"
)

var (
	EntryPrefix = []byte("entry")
	DirPrefix   = []byte("dir")

	_ View = (*Ledger)(nil)
)

const dirCacheSize = 64

// Ledger implements [View] over a database. Entries live in one prefix space
// keyed by their derived ids.ID; each account's owner directory is a linkeddb
// under a second prefix. All writes land in a versiondb so the transaction
// pipeline can commit or abort one transaction's mutations wholesale.
type Ledger struct {
	cfg config.Config
	log log.Logger

	baseDB  *versiondb.Database
	entryDB database.Database
	dirDB   database.Database

	// entryCache caches key -> entry; a nil entry means the key is not in
	// the database. Mutations keep it coherent.
	entryCache cache.Cacher[ids.ID, Entry]
	dirCache   cache.Cacher[ids.ShortID, linkeddb.LinkedDB]
}

func entrySize(_ ids.ID, entry Entry) int {
	switch e := entry.(type) {
	case *Account:
		return ids.IDLen + len(e.Address) + 3*wrappers.LongLen + constants.PointerOverhead
	case *Hook:
		return ids.IDLen + len(e.Owner) + len(e.Code) + 3*wrappers.LongLen + wrappers.IntLen + constants.PointerOverhead
	case *HookState:
		return ids.IDLen + len(e.Owner) + ids.IDLen + len(e.Data) + constants.PointerOverhead
	default:
		return ids.IDLen + constants.PointerOverhead
	}
}

// NewLedger returns a Ledger layered over db. Nothing is written until
// [Ledger.Commit].
func NewLedger(
	db database.Database,
	cfg config.Config,
	logger log.Logger,
	registerer metric.Registerer,
) (*Ledger, error) {
	var reg metric.Registry
	if r, ok := registerer.(metric.Registry); ok {
		reg = r
	}

	entryCache, err := metercacher.New[ids.ID, Entry](
		"entry_cache",
		reg,
		lru.NewSizedCache(cfg.EntryCacheSize, entrySize),
	)
	if err != nil {
		return nil, err
	}

	baseDB := versiondb.New(db)
	return &Ledger{
		cfg:        cfg,
		log:        logger,
		baseDB:     baseDB,
		entryDB:    prefixdb.New(EntryPrefix, baseDB),
		dirDB:      prefixdb.New(DirPrefix, baseDB),
		entryCache: entryCache,
		dirCache:   lru.NewCache[ids.ShortID, linkeddb.LinkedDB](dirCacheSize),
	}, nil
}

func (l *Ledger) Peek(key ids.ID) (Entry, error) {
	if entry, cached := l.entryCache.Get(key); cached {
		if entry == nil {
			return nil, database.ErrNotFound
		}
		return entry, nil
	}

	entryBytes, err := l.entryDB.Get(key[:])
	switch err {
	case nil:
	case database.ErrNotFound:
		l.entryCache.Put(key, nil)
		return nil, database.ErrNotFound
	default:
		return nil, err
	}

	entry, err := unmarshalEntry(entryBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry %s: %w", key, err)
	}
	l.entryCache.Put(key, entry)
	return entry, nil
}

func (l *Ledger) Insert(key ids.ID, entry Entry) error {
	has, err := l.has(key)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("%w: insert over occupied key %s", ErrInternal, key)
	}
	return l.put(key, entry)
}

func (l *Ledger) Update(key ids.ID, entry Entry) error {
	has, err := l.has(key)
	if err != nil {
		return err
	}
	if !has {
		return database.ErrNotFound
	}
	return l.put(key, entry)
}

func (l *Ledger) Erase(key ids.ID) error {
	if err := l.entryDB.Delete(key[:]); err != nil {
		return err
	}
	l.entryCache.Put(key, nil)
	return nil
}

func (l *Ledger) has(key ids.ID) (bool, error) {
	if entry, cached := l.entryCache.Get(key); cached {
		return entry != nil, nil
	}
	return l.entryDB.Has(key[:])
}

func (l *Ledger) put(key ids.ID, entry Entry) error {
	entryBytes, err := marshalEntry(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry %s: %w", key, err)
	}
	if err := l.entryDB.Put(key[:], entryBytes); err != nil {
		return err
	}
	l.entryCache.Put(key, entry)
	return nil
}

func (l *Ledger) DirAdd(owner ids.ShortID, key ids.ID) error {
	dir := l.dir(owner)
	if limit := l.cfg.MaxOwnedEntries; limit > 0 {
		size, err := dirLen(dir)
		if err != nil {
			return err
		}
		if size >= limit {
			return fmt.Errorf("%w: account %s holds %d entries", ErrDirectoryFull, owner, size)
		}
	}
	return dir.Put(key[:], nil)
}

func (l *Ledger) DirRemove(owner ids.ShortID, key ids.ID) error {
	dir := l.dir(owner)
	has, err := dir.Has(key[:])
	if err != nil {
		return err
	}
	if !has {
		return database.ErrNotFound
	}
	return dir.Delete(key[:])
}

func (l *Ledger) DirIterator(owner ids.ShortID) database.Iterator {
	return l.dir(owner).NewIterator()
}

// AccountReserve prices ownerCount owned object units. Saturates instead of
// wrapping so an absurd count can never pass a balance check.
func (l *Ledger) AccountReserve(ownerCount uint64) uint64 {
	charge, err := safemath.Mul(ownerCount, l.cfg.IncrementalReserve)
	if err != nil {
		return math.MaxUint64
	}
	reserve, err := safemath.Add(l.cfg.BaseReserve, charge)
	if err != nil {
		return math.MaxUint64
	}
	return reserve
}

func (l *Ledger) dir(owner ids.ShortID) linkeddb.LinkedDB {
	if dir, cached := l.dirCache.Get(owner); cached {
		return dir
	}
	dir := linkeddb.NewDefault(prefixdb.New(owner[:], l.dirDB))
	l.dirCache.Put(owner, dir)
	return dir
}

func dirLen(dir linkeddb.LinkedDB) (uint64, error) {
	it := dir.NewIterator()
	defer it.Release()

	size := uint64(0)
	for it.Next() {
		size++
	}
	return size, it.Error()
}

// Commit writes every change since the last commit to the underlying
// database. The caches stay warm: committed entries match what they hold.
func (l *Ledger) Commit() error {
	batch, err := l.CommitBatch()
	if err != nil {
		l.Abort()
		return err
	}
	if err := batch.Write(); err != nil {
		l.Abort()
		return err
	}
	l.baseDB.Abort()
	return nil
}

// Abort discards every change since the last commit. The caches are flushed
// because they may hold entries from the discarded overlay.
func (l *Ledger) Abort() {
	l.baseDB.Abort()
	l.entryCache.Flush()
	l.dirCache.Flush()
}

// CommitBatch returns a batch containing every change since the last commit.
// The changes are not discarded from the versiondb until Abort is called.
func (l *Ledger) CommitBatch() (database.Batch, error) {
	return l.baseDB.CommitBatch()
}

func (l *Ledger) Close() error {
	return l.baseDB.Close()
}
