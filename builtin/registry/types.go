// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math/big"

	"github.com/vechain/farm/farm"
)

// Params are the construction parameters of the registry.
type Params struct {
	Owner         farm.Address
	RewardToken   farm.Address
	EscrowToken   farm.Address
	EmissionRate  *big.Int // reward units per clock unit
	DecayInterval uint64   // clock units between two emission decays
	InitTime      uint64   // first decay is due at InitTime + DecayInterval
	FarmingEnd    uint64   // no emission accrues after this checkpoint
}

// Descriptor is what a pool declares about itself when it gets registered.
type Descriptor struct {
	Pool      farm.Address
	PoolToken farm.Address
	Weight    uint64
	IsFlash   bool
}

// PoolData is the denormalized view of a registered pool.
type PoolData struct {
	PoolToken farm.Address `json:"poolToken"`
	Pool      farm.Address `json:"pool"`
	Weight    uint64       `json:"weight"`
	IsFlash   bool         `json:"isFlash"`
}

// entry is the storage record of a registered pool.
type entry struct {
	PoolToken farm.Address
	Weight    uint64
	IsFlash   bool
}

func (e *entry) IsEmpty() bool {
	return e.PoolToken.IsZero()
}
