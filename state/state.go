// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/kv"
	"github.com/vechain/farm/stackedmap"
)

const storageCacheSize = 4096

// storage entries are persisted under "s" + contract address + slot
var storageKeyPrefix = []byte("s")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr farm.Address
	key  farm.Bytes32
}

func (k storageKey) dbKey() []byte {
	b := make([]byte, 0, len(storageKeyPrefix)+farm.AddressLength+32)
	b = append(b, storageKeyPrefix...)
	b = append(b, k.addr[:]...)
	return append(b, k.key[:]...)
}

// State manages the storage of all native contracts: ledgers, the registry and pools.
// Writes are journaled so any call can be reverted to a checkpoint, and flushed to the
// backing store by Commit.
// State is not safe for concurrent use.
type State struct {
	db    kv.Store // nil means a volatile state
	cache *lru.Cache
	sm    *stackedmap.StackedMap[storageKey, []byte]
}

// New create state object. db may be nil, all data then stays in memory.
func New(db kv.Store) *State {
	cache, _ := lru.New(storageCacheSize)
	s := &State{
		db:    db,
		cache: cache,
	}
	s.sm = stackedmap.New(s.cacheGetter)
	return s
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key storageKey) ([]byte, bool, error) {
	if s.db == nil {
		return nil, true, nil
	}
	if v, ok := s.cache.Get(key); ok {
		return v.([]byte), true, nil
	}
	v, err := s.db.Get(key.dbKey())
	if err != nil {
		if !s.db.IsNotFound(err) {
			return nil, false, err
		}
		v = nil
	}
	s.cache.Add(key, v)
	return v, true, nil
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr farm.Address, key farm.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr farm.Address, key farm.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr farm.Address, key farm.Bytes32) (farm.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return farm.Bytes32{}, err
	}
	if len(raw) == 0 {
		return farm.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return farm.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return farm.Blake2b(raw), nil
	}
	return farm.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr farm.Address, key, value farm.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by enc will be absorbed by State instance.
func (s *State) EncodeStorage(addr farm.Address, key farm.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr farm.Address, key farm.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	// the base level always exists
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Changes returns the latest value of every storage entry modified since the last commit.
func (s *State) Changes() map[farm.Address]map[farm.Bytes32]rlp.RawValue {
	changes := make(map[farm.Address]map[farm.Bytes32]rlp.RawValue)
	s.sm.Journal(func(k storageKey, v []byte) bool {
		c, ok := changes[k.addr]
		if !ok {
			c = make(map[farm.Bytes32]rlp.RawValue)
			changes[k.addr] = c
		}
		c[k.key] = v
		return true
	})
	return changes
}

// Commit flushes all journaled changes into the backing store and drops the journal.
// Checkpoints taken before Commit become invalid.
func (s *State) Commit() error {
	if s.db == nil {
		return &Error{fmt.Errorf("commit on volatile state")}
	}

	batch := s.db.NewBatch()
	written := make(map[storageKey][]byte)
	s.sm.Journal(func(k storageKey, v []byte) bool {
		written[k] = v
		return true
	})
	for k, v := range written {
		var err error
		if len(v) == 0 {
			err = batch.Delete(k.dbKey())
		} else {
			err = batch.Put(k.dbKey(), v)
		}
		if err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}

	for k, v := range written {
		s.cache.Add(k, v)
	}
	s.sm = stackedmap.New(s.cacheGetter)
	return nil
}
