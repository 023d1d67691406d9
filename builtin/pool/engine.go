// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/pool/deposit"
	"github.com/vechain/farm/builtin/pool/user"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/farm"
)

// Sync folds the emission accrued since the last distribution into the yield accumulator.
func (p *Pool) Sync() error {
	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	return p.sync()
}

func (p *Pool) sync() error {
	// decay is pull based, whoever touches a pool first after the interval pays for it
	due, err := p.registry.ShouldUpdateRatio()
	if err != nil {
		return err
	}
	if due {
		if err := p.registry.UpdateEmissionRate(); err != nil {
			return err
		}
	}

	last, err := p.lastYieldDistribution.Get()
	if err != nil {
		return err
	}
	end, err := p.registry.FarmingEnd()
	if err != nil {
		return err
	}
	now := p.clock.Now()
	if last >= end || now <= last {
		return nil
	}

	locking, err := p.usersLockingWeight.Get()
	if err != nil {
		return err
	}
	if locking.Sign() == 0 {
		return p.lastYieldDistribution.Set(now)
	}

	to := min(now, end)
	reward, err := p.registry.PoolEmission(p.addr, last, to)
	if err != nil {
		return err
	}
	if err := p.yieldRewardsPerWeight.Add(RewardToWeight(reward, locking)); err != nil {
		return err
	}
	if err := p.lastYieldDistribution.Set(to); err != nil {
		return err
	}

	logger.Trace("synced", "pool", p.addr, "from", last, "to", to, "reward", reward)
	return nil
}

// Stake moves amount of pool token from the staker into a new deposit locked until lockUntil,
// 0 meaning unlocked. Pending rewards of an existing position are processed first.
func (p *Pool) Stake(staker farm.Address, amount *big.Int, lockUntil uint64, useEscrow bool) error {
	logger.Debug("staking", "pool", p.addr, "staker", staker, "amount", amount, "lockUntil", lockUntil)

	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	if err := p.stake(staker, amount, lockUntil, useEscrow); err != nil {
		logger.Info("stake failed", "pool", p.addr, "staker", staker, "error", err)
		return err
	}

	metricStakes().Add(1)
	logger.Info("staked", "pool", p.addr, "staker", staker, "amount", amount)
	return nil
}

func (p *Pool) stake(staker farm.Address, amount *big.Int, lockUntil uint64, useEscrow bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.NewPrecondition("zero amount")
	}
	now := p.clock.Now()
	if lockUntil != 0 && lockUntil <= now {
		return reverts.NewPrecondition("invalid lock interval")
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
		if err := p.processRewards(staker, useEscrow); err != nil {
			return err
		}
	}

	cfg, err := p.Config()
	if err != nil {
		return err
	}
	ledger, err := p.env.Ledger(cfg.PoolToken)
	if err != nil {
		return err
	}
	before, err := ledger.BalanceOf(p.addr)
	if err != nil {
		return err
	}
	if err := ledger.TransferFrom(p.addr, staker, p.addr, amount); err != nil {
		return errors.Wrap(err, "transfer pool token")
	}
	after, err := ledger.BalanceOf(p.addr)
	if err != nil {
		return err
	}
	// credit what actually arrived
	received := saturatingSub(after, before)
	if received.Sign() == 0 {
		return reverts.NewPrecondition("nothing received")
	}

	d := &deposit.Deposit{TokenAmount: received}
	if lockUntil != 0 {
		d.LockedFrom = now
		d.LockedUntil = min(lockUntil, now+p.policy.MaxLockDuration())
	}
	d.Weight = new(big.Int).Mul(received, p.policy.Multiplier(d.LockDuration()))

	if err := p.addDeposit(staker, d); err != nil {
		return err
	}
	return p.poolTokenReserve.Add(received)
}

// addDeposit appends the deposit, updates the aggregates and re-baselines both checkpoints
// of the staker, so the new weight never claims rewards accrued before it existed.
func (p *Pool) addDeposit(staker farm.Address, d *deposit.Deposit) error {
	u, err := p.users.Get(staker)
	if err != nil {
		return err
	}
	if err := p.deposits.Set(staker, u.DepositsCount, d); err != nil {
		return err
	}
	u.DepositsCount++
	u.TokenAmount.Add(u.TokenAmount, d.TokenAmount)
	u.TotalWeight.Add(u.TotalWeight, d.Weight)
	if err := p.rebaseline(u); err != nil {
		return err
	}
	if err := p.users.Set(staker, u); err != nil {
		return err
	}
	return p.usersLockingWeight.Add(d.Weight)
}

func (p *Pool) rebaseline(u *user.User) error {
	yieldAcc, err := p.yieldRewardsPerWeight.Get()
	if err != nil {
		return err
	}
	vaultAcc, err := p.vaultRewardsPerWeight.Get()
	if err != nil {
		return err
	}
	u.SubYieldRewards = WeightToReward(u.TotalWeight, yieldAcc)
	u.SubVaultRewards = WeightToReward(u.TotalWeight, vaultAcc)
	return nil
}

// Unstake withdraws amount from the staker's deposit. Locked deposits are rejected.
// Yield deposits are paid out by minting, the others from custody.
func (p *Pool) Unstake(staker farm.Address, depositID uint64, amount *big.Int, useEscrow bool) error {
	logger.Debug("unstaking", "pool", p.addr, "staker", staker, "deposit", depositID, "amount", amount)

	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	if err := p.unstake(staker, depositID, amount, useEscrow); err != nil {
		logger.Info("unstake failed", "pool", p.addr, "staker", staker, "deposit", depositID, "error", err)
		return err
	}

	metricUnstakes().Add(1)
	logger.Info("unstaked", "pool", p.addr, "staker", staker, "deposit", depositID, "amount", amount)
	return nil
}

func (p *Pool) unstake(staker farm.Address, depositID uint64, amount *big.Int, useEscrow bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.NewPrecondition("zero amount")
	}
	u, err := p.users.Get(staker)
	if err != nil {
		return err
	}
	if depositID >= u.DepositsCount {
		return reverts.Newf(reverts.Precondition, "deposit %d does not exist", depositID)
	}
	d, err := p.deposits.Get(staker, depositID)
	if err != nil {
		return err
	}
	if d.TokenAmount.Cmp(amount) < 0 {
		return reverts.NewPrecondition("amount exceeds stake")
	}
	if d.IsLocked(p.clock.Now()) {
		return reverts.NewPrecondition("deposit not yet unlocked")
	}

	if err := p.sync(); err != nil {
		return err
	}
	if err := p.policy.Auxiliary(p, staker); err != nil {
		return err
	}
	if err := p.processRewards(staker, useEscrow); err != nil {
		return err
	}

	// rewards processing may have appended a deposit, reload both
	if u, err = p.users.Get(staker); err != nil {
		return err
	}
	if d, err = p.deposits.Get(staker, depositID); err != nil {
		return err
	}

	isYield := d.IsYield
	prevWeight := d.Weight
	remaining := new(big.Int).Sub(d.TokenAmount, amount)
	newWeight := new(big.Int).Mul(remaining, p.policy.Multiplier(d.LockDuration()))
	if remaining.Sign() == 0 {
		d = &deposit.Deposit{}
	} else {
		d.TokenAmount = remaining
		d.Weight = newWeight
	}
	if err := p.deposits.Set(staker, depositID, d); err != nil {
		return err
	}

	u.TokenAmount.Sub(u.TokenAmount, amount)
	u.TotalWeight.Sub(u.TotalWeight, prevWeight)
	u.TotalWeight.Add(u.TotalWeight, newWeight)
	if err := p.rebaseline(u); err != nil {
		return err
	}
	if err := p.users.Set(staker, u); err != nil {
		return err
	}

	locking, err := p.usersLockingWeight.Get()
	if err != nil {
		return err
	}
	locking.Sub(locking, prevWeight)
	p.usersLockingWeight.Set(locking.Add(locking, newWeight))

	reserve, err := p.poolTokenReserve.Get()
	if err != nil {
		return err
	}
	p.poolTokenReserve.Set(saturatingSub(reserve, amount))

	if isYield {
		if err := p.registry.MintRewardTo(p.addr, staker, amount); err != nil {
			return err
		}
		return nil
	}
	cfg, err := p.Config()
	if err != nil {
		return err
	}
	ledger, err := p.env.Ledger(cfg.PoolToken)
	if err != nil {
		return err
	}
	if err := ledger.Transfer(p.addr, staker, amount); err != nil {
		return errors.Wrap(err, "transfer pool token")
	}
	return nil
}

// ProcessRewards settles the staker's pending rewards. Nothing pending is a silent no-op.
// With useEscrow the yield is minted in the escrow token, otherwise it is compounded into
// a new one-year deposit when the pool stakes the reward token, or paid out in reward token.
func (p *Pool) ProcessRewards(staker farm.Address, useEscrow bool) error {
	logger.Debug("processing rewards", "pool", p.addr, "staker", staker, "escrow", useEscrow)

	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	if err := p.sync(); err != nil {
		return err
	}
	if err := p.policy.Auxiliary(p, staker); err != nil {
		return err
	}
	if err := p.processRewards(staker, useEscrow); err != nil {
		logger.Info("process rewards failed", "pool", p.addr, "staker", staker, "error", err)
		return err
	}
	return nil
}

// processRewards expects the pool to be synced.
func (p *Pool) processRewards(staker farm.Address, useEscrow bool) error {
	u, err := p.users.Get(staker)
	if err != nil {
		return err
	}
	acc, err := p.yieldRewardsPerWeight.Get()
	if err != nil {
		return err
	}
	amount := pending(u.TotalWeight, acc, u.SubYieldRewards)
	if amount.Sign() == 0 {
		return nil
	}

	cfg, err := p.Config()
	if err != nil {
		return err
	}

	var kind string
	switch {
	case useEscrow:
		kind = "escrow"
		escrow, err := p.env.Ledger(cfg.EscrowToken)
		if err != nil {
			return err
		}
		if err := escrow.Mint(p.addr, staker, amount); err != nil {
			return errors.Wrap(err, "mint escrow")
		}
	case cfg.PoolToken == cfg.RewardToken:
		kind = "compound"
		now := p.clock.Now()
		maxLock := p.policy.MaxLockDuration()
		if err := p.addDeposit(staker, &deposit.Deposit{
			TokenAmount: amount,
			Weight:      new(big.Int).Mul(amount, p.policy.Multiplier(maxLock)),
			LockedFrom:  now,
			LockedUntil: now + maxLock,
			IsYield:     true,
		}); err != nil {
			return err
		}
		if err := p.poolTokenReserve.Add(amount); err != nil {
			return err
		}
	default:
		target, err := p.crossCompoundTarget(cfg)
		if err != nil {
			return err
		}
		if target != nil {
			kind = "cross"
			if err := target.StakeAsPool(p.addr, staker, amount); err != nil {
				return err
			}
		} else {
			kind = "mint"
			if err := p.registry.MintRewardTo(p.addr, staker, amount); err != nil {
				return err
			}
		}
	}

	// the checkpoint covers the weight the compounded deposit may have added
	if u, err = p.users.Get(staker); err != nil {
		return err
	}
	u.SubYieldRewards = WeightToReward(u.TotalWeight, acc)
	if err := p.users.Set(staker, u); err != nil {
		return err
	}

	metricRewardsClaimed().AddWithLabel(1, map[string]string{"pool": p.addr.String(), "kind": kind})
	logger.Info("yield claimed", "pool", p.addr, "staker", staker, "amount", amount, "kind", kind)
	return nil
}

// crossCompoundTarget returns the reward token pool yield is routed to, nil to mint directly.
func (p *Pool) crossCompoundTarget(cfg *Config) (*Pool, error) {
	if !cfg.CrossCompound {
		return nil, nil
	}
	addr, err := p.registry.PoolByToken(cfg.RewardToken)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, nil
	}
	return p.env.Pool(addr)
}

// SetWeight changes the pool weight in the registry after accruing at the old weight. Owner only.
func (p *Pool) SetWeight(caller farm.Address, weight uint64) error {
	exit, err := p.enter()
	if err != nil {
		return err
	}
	defer exit()

	if err := p.onlyOwner(caller); err != nil {
		return err
	}
	if err := p.sync(); err != nil {
		return err
	}
	return p.registry.ChangePoolWeight(p.addr, p.addr, weight)
}

func (p *Pool) onlyOwner(caller farm.Address) error {
	cfg, err := p.Config()
	if err != nil {
		return err
	}
	if cfg.Owner.IsZero() || caller != cfg.Owner {
		return reverts.NewAuthorization("caller is not the pool owner")
	}
	return nil
}
