// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the key/value store the farm state is persisted to.
package kv

// Getter reads single keys.
type Getter interface {
	// Get value for given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) (value []byte, err error)
	IsNotFound(error) bool
}

// Putter wraps methods for putting kvs.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch collects puts and deletes applied together by Write.
type Batch interface {
	Putter
	Write() error
}

// Store is the full functional kv store.
type Store interface {
	Getter
	Putter

	NewBatch() Batch
	Close() error
}
