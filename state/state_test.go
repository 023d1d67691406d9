// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/lvldb"
)

func TestStateReadWrite(t *testing.T) {
	st := New(nil)

	addr := farm.BytesToAddress([]byte("account1"))
	storageKey := farm.BytesToBytes32([]byte("storageKey"))

	v, err := st.GetStorage(addr, storageKey)
	assert.NoError(t, err)
	assert.True(t, v.IsZero())

	st.SetStorage(addr, storageKey, farm.BytesToBytes32([]byte("storageValue")))
	v, err = st.GetStorage(addr, storageKey)
	assert.NoError(t, err)
	assert.Equal(t, farm.BytesToBytes32([]byte("storageValue")), v)

	st.SetStorage(addr, storageKey, farm.Bytes32{})
	raw, err := st.GetRawStorage(addr, storageKey)
	assert.NoError(t, err)
	assert.Empty(t, raw)
}

func TestStateRevert(t *testing.T) {
	st := New(nil)

	addr := farm.BytesToAddress([]byte("account1"))
	storageKey := farm.BytesToBytes32([]byte("storageKey"))

	values := []farm.Bytes32{
		farm.BytesToBytes32([]byte("v1")),
		farm.BytesToBytes32([]byte("v2")),
		farm.BytesToBytes32([]byte("v3")),
	}

	revisions := make([]int, 0, len(values))
	for _, v := range values {
		revisions = append(revisions, st.NewCheckpoint())
		st.SetStorage(addr, storageKey, v)
	}

	for i := len(values) - 1; i >= 0; i-- {
		st.RevertTo(revisions[i])
		got, err := st.GetStorage(addr, storageKey)
		assert.NoError(t, err)
		if i > 0 {
			assert.Equal(t, values[i-1], got)
		} else {
			assert.True(t, got.IsZero())
		}
	}

	// reverting to the base keeps the state usable
	st.RevertTo(0)
	st.SetStorage(addr, storageKey, values[0])
	got, err := st.GetStorage(addr, storageKey)
	assert.NoError(t, err)
	assert.Equal(t, values[0], got)
}

func TestStateEncodeDecode(t *testing.T) {
	st := New(nil)
	addr := farm.BytesToAddress([]byte("account1"))
	key := farm.BytesToBytes32([]byte("struct"))

	type record struct {
		A uint64
		B []byte
	}

	require.NoError(t, st.EncodeStorage(addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(&record{A: 7, B: []byte("x")})
	}))

	var got record
	require.NoError(t, st.DecodeStorage(addr, key, func(raw []byte) error {
		return rlp.DecodeBytes(raw, &got)
	}))
	assert.Equal(t, record{A: 7, B: []byte("x")}, got)

	// list values hash to a non zero word
	word, err := st.GetStorage(addr, key)
	assert.NoError(t, err)
	assert.False(t, word.IsZero())

	boom := errors.New("boom")
	err = st.EncodeStorage(addr, key, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	err = st.DecodeStorage(addr, key, func([]byte) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestStateCommit(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	addr := farm.BytesToAddress([]byte("account1"))
	k1 := farm.BytesToBytes32([]byte("k1"))
	k2 := farm.BytesToBytes32([]byte("k2"))

	st := New(db)
	st.SetStorage(addr, k1, farm.BytesToBytes32([]byte("v1")))
	st.SetStorage(addr, k2, farm.BytesToBytes32([]byte("v2")))
	assert.Len(t, st.Changes()[addr], 2)

	require.NoError(t, st.Commit())
	assert.Empty(t, st.Changes())

	// a fresh state over the same db sees committed values
	reloaded := New(db)
	v, err := reloaded.GetStorage(addr, k1)
	assert.NoError(t, err)
	assert.Equal(t, farm.BytesToBytes32([]byte("v1")), v)

	// deletions are committed too
	reloaded.SetStorage(addr, k2, farm.Bytes32{})
	require.NoError(t, reloaded.Commit())
	_, err = db.Get(storageKey{addr, k2}.dbKey())
	assert.True(t, db.IsNotFound(err))

	assert.Error(t, New(nil).Commit())
}
