// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/vechain/farm/farm"
)

// Policy is what distinguishes pool variants sharing the engine.
type Policy interface {
	// MaxLockDuration is the longest lock a deposit may commit to. Longer requests are clamped.
	MaxLockDuration() uint64
	// Multiplier returns the weight multiplier of a deposit locked for lockDuration.
	Multiplier(lockDuration uint64) *big.Int
	// Auxiliary settles the staker's secondary reward streams. It runs before every
	// stake, unstake and claim, while the staker's weight is still the one the streams accrued on.
	Auxiliary(p *Pool, staker farm.Address) error
}

// CorePolicy is the policy of core pools: locks of up to MaxLockDuration, the multiplier grows
// linearly from WeightMultiplier at no lock to YearStakeWeightMultiplier at the maximum lock,
// and a vault reward stream.
type CorePolicy struct{}

func (CorePolicy) MaxLockDuration() uint64 {
	return farm.MaxLockDuration()
}

func (c CorePolicy) Multiplier(lockDuration uint64) *big.Int {
	max := c.MaxLockDuration()
	if lockDuration > max {
		lockDuration = max
	}
	// WM + lock * (YWM - WM) / max
	span := new(big.Int).Sub(farm.YearStakeWeightMultiplier, farm.WeightMultiplier)
	m := new(big.Int).SetUint64(lockDuration)
	m.Mul(m, span)
	m.Div(m, new(big.Int).SetUint64(max))
	return m.Add(m, farm.WeightMultiplier)
}

func (CorePolicy) Auxiliary(p *Pool, staker farm.Address) error {
	return p.processVaultRewards(staker)
}
