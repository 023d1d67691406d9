// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farm

import "math/big"

// Fixed point scales shared by every pool.
var (
	// RewardPerWeightMultiplier is the precision of the reward-per-weight accumulators.
	RewardPerWeightMultiplier = big.NewInt(1e12)
	// WeightMultiplier is the deposit weight multiplier of an unlocked deposit.
	WeightMultiplier = big.NewInt(1e6)
	// YearStakeWeightMultiplier is the deposit weight multiplier of a deposit locked for MaxLockDuration.
	YearStakeWeightMultiplier = big.NewInt(2e6)

	// EmissionDecayNumerator and EmissionDecayDenominator define the emission decay step, rate = rate * 99 / 100.
	EmissionDecayNumerator   = big.NewInt(99)
	EmissionDecayDenominator = big.NewInt(100)
)

// token identifiers read back from ledgers at construction to catch misconfiguration
var (
	RewardTokenUID = Blake2b([]byte("farm-reward-token"))
	EscrowTokenUID = Blake2b([]byte("farm-escrow-token"))
)
