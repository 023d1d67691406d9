// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/vechain/farm/farm"
)

// RewardToWeight converts a reward into accumulator units: reward * 1e12 / weight.
func RewardToWeight(reward, weight *big.Int) *big.Int {
	if weight.Sign() == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(reward, farm.RewardPerWeightMultiplier)
	return v.Div(v, weight)
}

// WeightToReward converts a weight into the reward it earned at the given accumulator: weight * acc / 1e12.
func WeightToReward(weight, rewardPerWeight *big.Int) *big.Int {
	v := new(big.Int).Mul(weight, rewardPerWeight)
	return v.Div(v, farm.RewardPerWeightMultiplier)
}

// pending returns weight * acc / 1e12 - checkpoint, floored at zero.
func pending(weight, rewardPerWeight, checkpoint *big.Int) *big.Int {
	v := WeightToReward(weight, rewardPerWeight)
	if v.Cmp(checkpoint) <= 0 {
		return new(big.Int)
	}
	return v.Sub(v, checkpoint)
}

// saturatingSub returns a - b, or zero when b exceeds a.
func saturatingSub(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a, b)
}
