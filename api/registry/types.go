// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/farm"
)

// Summary is the view of the registry.
type Summary struct {
	Owner             *farm.Address         `json:"owner"`
	RewardToken       *farm.Address         `json:"rewardToken"`
	EscrowToken       *farm.Address         `json:"escrowToken"`
	EmissionRate      *math.HexOrDecimal256 `json:"emissionRate"`
	TotalWeight       uint64                `json:"totalWeight"`
	DecayInterval     uint64                `json:"decayInterval"`
	LastRatioUpdate   uint64                `json:"lastRatioUpdate"`
	FarmingEnd        uint64                `json:"farmingEnd"`
	ShouldUpdateRatio bool                  `json:"shouldUpdateRatio"`
	Pools             []*registry.PoolData  `json:"pools"`
}

// Decay is the result of a decay.
type Decay struct {
	EmissionRate    *math.HexOrDecimal256 `json:"emissionRate"`
	LastRatioUpdate uint64                `json:"lastRatioUpdate"`
}
