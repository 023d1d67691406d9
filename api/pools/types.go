// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/farm/builtin/pool"
	"github.com/vechain/farm/farm"
)

// Pool is the view of a pool.
type Pool struct {
	Address               *farm.Address         `json:"address"`
	PoolToken             *farm.Address         `json:"poolToken"`
	RewardToken           *farm.Address         `json:"rewardToken"`
	EscrowToken           *farm.Address         `json:"escrowToken"`
	Owner                 *farm.Address         `json:"owner"`
	Vault                 *farm.Address         `json:"vault"`
	Weight                uint64                `json:"weight"`
	IsFlash               bool                  `json:"isFlash"`
	CrossCompound         bool                  `json:"crossCompound"`
	YieldRewardsPerWeight *math.HexOrDecimal256 `json:"yieldRewardsPerWeight"`
	VaultRewardsPerWeight *math.HexOrDecimal256 `json:"vaultRewardsPerWeight"`
	UsersLockingWeight    *math.HexOrDecimal256 `json:"usersLockingWeight"`
	PoolTokenReserve      *math.HexOrDecimal256 `json:"poolTokenReserve"`
	LastYieldDistribution uint64                `json:"lastYieldDistribution"`
}

// Deposit is the view of a deposit.
type Deposit struct {
	ID          uint64                `json:"id"`
	TokenAmount *math.HexOrDecimal256 `json:"tokenAmount"`
	Weight      *math.HexOrDecimal256 `json:"weight"`
	LockedFrom  uint64                `json:"lockedFrom"`
	LockedUntil uint64                `json:"lockedUntil"`
	IsYield     bool                  `json:"isYield"`
}

// Staker is the view of a staker in a pool.
type Staker struct {
	Address             *farm.Address         `json:"address"`
	TokenAmount         *math.HexOrDecimal256 `json:"tokenAmount"`
	TotalWeight         *math.HexOrDecimal256 `json:"totalWeight"`
	SubYieldRewards     *math.HexOrDecimal256 `json:"subYieldRewards"`
	SubVaultRewards     *math.HexOrDecimal256 `json:"subVaultRewards"`
	Deposits            []*Deposit            `json:"deposits"`
	PendingYieldRewards *math.HexOrDecimal256 `json:"pendingYieldRewards"`
	PendingVaultRewards *math.HexOrDecimal256 `json:"pendingVaultRewards"`
}

// StakeRequest stakes Amount on behalf of Caller.
type StakeRequest struct {
	Caller    *farm.Address         `json:"caller"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
	LockUntil uint64                `json:"lockUntil"`
	UseEscrow bool                  `json:"useEscrow"`
}

// UnstakeRequest withdraws Amount from a deposit of Caller.
type UnstakeRequest struct {
	Caller    *farm.Address         `json:"caller"`
	DepositID uint64                `json:"depositId"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
	UseEscrow bool                  `json:"useEscrow"`
}

// RewardsRequest processes the rewards of Caller.
type RewardsRequest struct {
	Caller    *farm.Address `json:"caller"`
	UseEscrow bool          `json:"useEscrow"`
}

// VaultRewardsRequest pushes Amount of vault rewards, Caller must be the vault.
type VaultRewardsRequest struct {
	Caller *farm.Address         `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

func hex(v *big.Int) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(v)
}

func convertPool(p *pool.Pool) (*Pool, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	addr := p.Address()
	v := &Pool{
		Address:       &addr,
		PoolToken:     &cfg.PoolToken,
		RewardToken:   &cfg.RewardToken,
		EscrowToken:   &cfg.EscrowToken,
		Owner:         &cfg.Owner,
		Vault:         &cfg.Vault,
		IsFlash:       cfg.IsFlash,
		CrossCompound: cfg.CrossCompound,
	}
	if v.Weight, err = p.Weight(); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		get func() (*big.Int, error)
		dst **math.HexOrDecimal256
	}{
		{p.YieldRewardsPerWeight, &v.YieldRewardsPerWeight},
		{p.VaultRewardsPerWeight, &v.VaultRewardsPerWeight},
		{p.UsersLockingWeight, &v.UsersLockingWeight},
		{p.PoolTokenReserve, &v.PoolTokenReserve},
	} {
		x, err := f.get()
		if err != nil {
			return nil, err
		}
		*f.dst = hex(x)
	}
	if v.LastYieldDistribution, err = p.LastYieldDistribution(); err != nil {
		return nil, err
	}
	return v, nil
}

func convertStaker(p *pool.Pool, staker farm.Address) (*Staker, error) {
	u, err := p.User(staker)
	if err != nil {
		return nil, err
	}
	deposits, err := p.Deposits(staker)
	if err != nil {
		return nil, err
	}
	pendingYield, err := p.PendingYieldRewards(staker)
	if err != nil {
		return nil, err
	}
	pendingVault, err := p.PendingVaultRewards(staker)
	if err != nil {
		return nil, err
	}

	v := &Staker{
		Address:             &staker,
		TokenAmount:         hex(u.TokenAmount),
		TotalWeight:         hex(u.TotalWeight),
		SubYieldRewards:     hex(u.SubYieldRewards),
		SubVaultRewards:     hex(u.SubVaultRewards),
		Deposits:            make([]*Deposit, 0, len(deposits)),
		PendingYieldRewards: hex(pendingYield),
		PendingVaultRewards: hex(pendingVault),
	}
	for id, d := range deposits {
		v.Deposits = append(v.Deposits, &Deposit{
			ID:          uint64(id),
			TokenAmount: hex(d.TokenAmount),
			Weight:      hex(d.Weight),
			LockedFrom:  d.LockedFrom,
			LockedUntil: d.LockedUntil,
			IsYield:     d.IsYield,
		})
	}
	return v, nil
}
