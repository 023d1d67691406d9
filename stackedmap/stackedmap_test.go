// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/farm/stackedmap"
)

type getResult struct {
	value string
	found bool
	err   error
}

func get(sm *stackedmap.StackedMap[string, string], key string) getResult {
	v, found, err := sm.Get(key)
	return getResult{v, found, err}
}

func TestStackedMap(t *testing.T) {
	assert := assert.New(t)
	src := make(map[string]string)
	src["foo"] = "bar"

	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, r := src[key]
		return v, r, nil
	})

	tests := []struct {
		f        func()
		depth    int
		putKey   string
		putValue string
		getKey   string
		want     getResult
	}{
		{func() {}, 1, "", "", "foo", getResult{"bar", true, nil}},
		{func() { sm.Push() }, 2, "foo", "baz", "foo", getResult{"baz", true, nil}},
		{func() {}, 2, "foo", "baz1", "foo", getResult{"baz1", true, nil}},
		{func() { sm.Push() }, 3, "foo", "qux", "foo", getResult{"qux", true, nil}},
		{func() { sm.Pop() }, 2, "", "", "foo", getResult{"baz1", true, nil}},
		{func() { sm.Pop() }, 1, "", "", "foo", getResult{"bar", true, nil}},

		{func() { sm.Push(); sm.Push() }, 3, "", "", "", getResult{}},
		{func() { sm.PopTo(0) }, 0, "", "", "", getResult{}},
	}

	for _, test := range tests {
		test.f()
		assert.Equal(test.depth, sm.Depth())
		if test.putKey != "" {
			sm.Put(test.putKey, test.putValue)
		}
		if test.getKey != "" {
			assert.Equal(test.want, get(sm, test.getKey))
		}
	}
}

func TestStackedMapPuts(t *testing.T) {
	assert := assert.New(t)
	sm := stackedmap.New(func(key int) (int, bool, error) {
		return 0, false, nil
	})

	kvs := []JournalEntry{
		{1, 1},
		{2, 2},
		{1, 3},
		{3, 4},
	}

	for _, kv := range kvs {
		sm.Push()
		sm.Put(kv.Key, kv.Value)
	}

	var journal []JournalEntry
	sm.Journal(func(k, v int) bool {
		journal = append(journal, JournalEntry{k, v})
		return true
	})
	assert.Equal(kvs, journal)

	sm.Pop()
	v, found, _ := sm.Get(3)
	assert.False(found)
	assert.Equal(0, v)

	v, _, _ = sm.Get(1)
	assert.Equal(3, v)
	sm.Pop()
	v, _, _ = sm.Get(1)
	assert.Equal(1, v)
}

type JournalEntry struct {
	Key   int
	Value int
}

func TestStackedMapSameLevelRewrite(t *testing.T) {
	sm := stackedmap.New(func(key string) (string, bool, error) {
		return "", false, nil
	})

	rev := sm.Push()
	sm.Put("a", "1")
	sm.Put("a", "2")
	v, _, _ := sm.Get("a")
	assert.Equal(t, "2", v)

	sm.PopTo(rev)
	_, found, _ := sm.Get("a")
	assert.False(t, found)
}

func TestStackedMapSourceError(t *testing.T) {
	boom := errors.New("boom")
	sm := stackedmap.New(func(key string) (string, bool, error) {
		return "", false, boom
	})

	_, _, err := sm.Get("x")
	assert.ErrorIs(t, err, boom)

	sm.Put("x", "y")
	v, found, err := sm.Get("x")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "y", v)
}
