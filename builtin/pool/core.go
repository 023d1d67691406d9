// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/pool/deposit"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/farm"
)

// Vault returns the address allowed to push vault rewards.
func (p *Pool) Vault() (farm.Address, error) {
	cfg, err := p.Config()
	if err != nil {
		return farm.Address{}, err
	}
	return cfg.Vault, nil
}

// SetVault rebinds the vault. Owner only.
func (p *Pool) SetVault(caller farm.Address, vault farm.Address) error {
	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if vault.IsZero() {
		return reverts.NewConfiguration("vault is zero address")
	}
	cfg, err := p.Config()
	if err != nil {
		return err
	}
	cfg.Vault = vault
	if err := p.config.Set(cfg); err != nil {
		return err
	}
	logger.Info("vault set", "pool", p.addr, "vault", vault)
	return nil
}

// ReceiveVaultRewards pulls amount of reward token from the vault and distributes it over the
// current locking weight. Vault only. A zero amount is a no-op.
func (p *Pool) ReceiveVaultRewards(caller farm.Address, amount *big.Int) error {
	logger.Debug("receiving vault rewards", "pool", p.addr, "caller", caller, "amount", amount)

	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	cfg, err := p.Config()
	if err != nil {
		return err
	}
	if cfg.Vault.IsZero() || caller != cfg.Vault {
		return reverts.NewAuthorization("caller is not the vault")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	locking, err := p.usersLockingWeight.Get()
	if err != nil {
		return err
	}
	if locking.Sign() == 0 {
		logger.Info("vault rewards rejected", "pool", p.addr, "error", "zero locking weight")
		return reverts.NewPrecondition("zero locking weight")
	}

	reward, err := p.env.Ledger(cfg.RewardToken)
	if err != nil {
		return err
	}
	if err := reward.TransferFrom(p.addr, caller, p.addr, amount); err != nil {
		return errors.Wrap(err, "transfer vault rewards")
	}
	if err := p.vaultRewardsPerWeight.Add(RewardToWeight(amount, locking)); err != nil {
		return err
	}
	if cfg.PoolToken == cfg.RewardToken {
		if err := p.poolTokenReserve.Add(amount); err != nil {
			return err
		}
	}

	logger.Info("vault rewards received", "pool", p.addr, "amount", amount)
	return nil
}

// processVaultRewards pays the staker's pending vault rewards. They are never compounded.
func (p *Pool) processVaultRewards(staker farm.Address) error {
	acc, err := p.vaultRewardsPerWeight.Get()
	if err != nil {
		return err
	}
	u, err := p.users.Get(staker)
	if err != nil {
		return err
	}
	amount := pending(u.TotalWeight, acc, u.SubVaultRewards)
	if amount.Sign() == 0 {
		return nil
	}

	cfg, err := p.Config()
	if err != nil {
		return err
	}
	reward, err := p.env.Ledger(cfg.RewardToken)
	if err != nil {
		return err
	}
	balance, err := reward.BalanceOf(p.addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return reverts.NewPrecondition("contract reward balance is insufficient")
	}

	if cfg.PoolToken == cfg.RewardToken {
		reserve, err := p.poolTokenReserve.Get()
		if err != nil {
			return err
		}
		// rounding dust may leave pending slightly above what was added to the reserve
		p.poolTokenReserve.Set(saturatingSub(reserve, amount))
	}

	u.SubVaultRewards = WeightToReward(u.TotalWeight, acc)
	if err := p.users.Set(staker, u); err != nil {
		return err
	}
	if err := reward.Transfer(p.addr, staker, amount); err != nil {
		return errors.Wrap(err, "transfer vault rewards")
	}

	metricRewardsClaimed().AddWithLabel(1, map[string]string{"pool": p.addr.String(), "kind": "vault"})
	logger.Info("vault rewards claimed", "pool", p.addr, "staker", staker, "amount", amount)
	return nil
}

// StakeAsPool credits amount as a new one-year yield deposit of the staker. Only registered
// pools may call it, to route the yield of other pools here.
func (p *Pool) StakeAsPool(caller farm.Address, staker farm.Address, amount *big.Int) error {
	logger.Debug("staking as pool", "pool", p.addr, "caller", caller, "staker", staker, "amount", amount)

	exists, err := p.registry.PoolExists(caller)
	if err != nil {
		return err
	}
	if !exists {
		return reverts.NewAuthorization("caller is not a registered pool")
	}

	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	if amount == nil || amount.Sign() <= 0 {
		return reverts.NewPrecondition("zero amount")
	}
	if err := p.sync(); err != nil {
		return err
	}
	if err := p.policy.Auxiliary(p, staker); err != nil {
		return err
	}
	u, err := p.users.Get(staker)
	if err != nil {
		return err
	}
	if !u.IsEmpty() {
		if err := p.processRewards(staker, true); err != nil {
			return err
		}
	}

	now := p.clock.Now()
	maxLock := p.policy.MaxLockDuration()
	if err := p.addDeposit(staker, &deposit.Deposit{
		TokenAmount: amount,
		Weight:      new(big.Int).Mul(amount, farm.YearStakeWeightMultiplier),
		LockedFrom:  now,
		LockedUntil: now + maxLock,
		IsYield:     true,
	}); err != nil {
		return err
	}

	cfg, err := p.Config()
	if err != nil {
		return err
	}
	if cfg.PoolToken == cfg.RewardToken {
		if err := p.poolTokenReserve.Add(amount); err != nil {
			return err
		}
	}

	logger.Info("staked as pool", "pool", p.addr, "from", caller, "staker", staker, "amount", amount)
	return nil
}
