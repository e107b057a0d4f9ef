// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/utils/wrappers"

	"github.com/luxfi/hookvm/state"
)

var errEmptyValue = errors.New("empty value")

type cacheEntry struct {
	// dirty marks a pending write. A clean entry only mirrors the value
	// already persisted.
	dirty bool
	value []byte
}

// Cache stages an invocation's state writes so they can be committed or
// discarded in one pass once the guest exits. Reads fall through to the
// store and are cached; misses are not, so repeated misses re-query.
//
// A Cache is scoped to a single invocation and is not safe for concurrent
// use.
type Cache struct {
	store        *state.Store
	owner        ids.ShortID
	maxValueSize uint32

	entries map[ids.ID]*cacheEntry
	// staged holds the keys of dirty entries in the order they were first
	// written. Commit replays them in this order.
	staged []ids.ID
}

func NewCache(store *state.Store, owner ids.ShortID, maxValueSize uint32) *Cache {
	return &Cache{
		store:        store,
		owner:        owner,
		maxValueSize: maxValueSize,
		entries:      make(map[ids.ID]*cacheEntry),
	}
}

// Get returns the cached value for [key], whether staged or previously read
// through. On a cache miss the store is consulted and a found value is
// cached. Returns [database.ErrNotFound] if the key is absent from both.
//
// The returned slice is owned by the cache and must not be modified.
func (c *Cache) Get(key ids.ID) ([]byte, error) {
	if entry, ok := c.entries[key]; ok {
		return entry.value, nil
	}

	value, err := c.store.GetState(c.owner, key)
	if err != nil {
		return nil, err
	}
	c.entries[key] = &cacheEntry{value: value}
	return value, nil
}

// Set stages [value] to be written to [key] on commit. Empty values and
// values larger than the hook's data size limit are rejected with no
// mutation; deletion is not exposed to guest code.
//
// Set retains [value]; the caller must not modify it afterwards.
func (c *Cache) Set(key ids.ID, value []byte) error {
	if len(value) == 0 {
		return errEmptyValue
	}
	if uint64(len(value)) > uint64(c.maxValueSize) {
		return fmt.Errorf("%w: %d > %d bytes", state.ErrDataTooLarge, len(value), c.maxValueSize)
	}

	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	if !entry.dirty {
		entry.dirty = true
		c.staged = append(c.staged, key)
	}
	entry.value = value
	return nil
}

// Staged returns the number of pending writes.
func (c *Cache) Staged() int {
	return len(c.staged)
}

// Commit writes every staged entry to the store in first-staged order. A
// failed write, such as an uncovered reserve charge, does not stop the rest;
// every entry is attempted and the first error is returned.
func (c *Cache) Commit() error {
	errs := wrappers.Errs{}
	for _, key := range c.staged {
		entry := c.entries[key]
		if err := c.store.SetState(c.owner, key, entry.value); err != nil {
			errs.Add(fmt.Errorf("failed to commit state %s: %w", key, err))
		}
	}
	return errs.Err
}
