// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package deposit

import (
	"math/big"
)

// Deposit is a single position of a staker in a pool.
type Deposit struct {
	TokenAmount *big.Int // principal still held by the deposit
	Weight      *big.Int // TokenAmount scaled by the lock multiplier
	LockedFrom  uint64   // lock start, 0 when never locked
	LockedUntil uint64   // lock end, 0 when never locked
	IsYield     bool     // created by compounding, principal is minted on withdrawal
}

// IsEmpty returns whether the deposit was never created or was fully withdrawn.
func (d *Deposit) IsEmpty() bool {
	return d.TokenAmount == nil || d.TokenAmount.Sign() == 0
}

// IsLocked returns whether the deposit cannot be withdrawn at now.
// A deposit becomes unlockable once now reaches LockedUntil.
func (d *Deposit) IsLocked(now uint64) bool {
	return d.LockedUntil > now
}

// LockDuration is the committed lock length the weight was computed with.
func (d *Deposit) LockDuration() uint64 {
	if d.LockedUntil <= d.LockedFrom {
		return 0
	}
	return d.LockedUntil - d.LockedFrom
}

func (d *Deposit) normalize() *Deposit {
	if d.TokenAmount == nil {
		d.TokenAmount = new(big.Int)
	}
	if d.Weight == nil {
		d.Weight = new(big.Int)
	}
	return d
}
