// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/farm"
)

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	valid := func() *Config {
		return &Config{
			PoolToken:   lpAddr,
			RewardToken: rewardAddr,
			EscrowToken: escrowAddr,
			Owner:       owner,
			InitTime:    initTime,
		}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero pool token", func(c *Config) { c.PoolToken = farm.Address{} }},
		{"zero owner", func(c *Config) { c.Owner = farm.Address{} }},
		{"zero init time", func(c *Config) { c.InitTime = 0 }},
		{"reward uid mismatch", func(c *Config) { c.RewardToken = escrowAddr }},
		{"escrow uid mismatch", func(c *Config) { c.EscrowToken = rewardAddr }},
		{"unknown pool token", func(c *Config) { c.PoolToken = otherAddr }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(farm.Address{0x77}, f.st, f.clock, f.reg, f.env, CorePolicy{})
			cfg := valid()
			tt.mutate(cfg)
			assert.True(t, reverts.IsConfiguration(p.Initialize(cfg)))
		})
	}

	p := New(farm.Address{0x77}, f.st, f.clock, f.reg, f.env, CorePolicy{})
	require.NoError(t, p.Initialize(valid()))
	assert.True(t, reverts.IsConfiguration(p.Initialize(valid())), "twice")

	last, err := p.LastYieldDistribution()
	require.NoError(t, err)
	assert.Equal(t, initTime, last)
}

func TestCorePolicy_Multiplier(t *testing.T) {
	policy := CorePolicy{}
	tests := []struct {
		lock uint64
		want int64
	}{
		{0, 1_000_000},
		{year / 4, 1_250_000},
		{year / 2, 1_500_000},
		{year, 2_000_000},
		{2 * year, 2_000_000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Multiplier(tt.lock).Int64(), "lock %d", tt.lock)
	}
}

func TestMath(t *testing.T) {
	assert.Equal(t, "8000000", RewardToWeight(big.NewInt(8000), big.NewInt(1e9)).String())
	assert.Equal(t, "0", RewardToWeight(big.NewInt(8000), big.NewInt(0)).String())
	assert.Equal(t, "8000", WeightToReward(big.NewInt(1e9), big.NewInt(8e6)).String())
	assert.Equal(t, "0", pending(big.NewInt(1e9), big.NewInt(8e6), big.NewInt(9000)).String())
	assert.Equal(t, "0", saturatingSub(big.NewInt(1), big.NewInt(2)).String())
}

func TestStake(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)

	d, err := p.Deposit(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, "1000", d.TokenAmount.String())
	assert.Equal(t, "1000000000", d.Weight.String())
	assert.Equal(t, uint64(0), d.LockedFrom)
	assert.False(t, d.IsYield)

	u, err := p.User(alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", u.TokenAmount.String())
	assert.Equal(t, "1000000000", u.TotalWeight.String())
	assert.Equal(t, uint64(1), u.DepositsCount)

	assert.Equal(t, "1000000000", mustBig(p.UsersLockingWeight()).String())
	assert.Equal(t, "1000", mustBig(p.PoolTokenReserve()).String())
	assert.Equal(t, "1000", f.balance(f.lp, p.Address()).String())
	assert.Equal(t, "0", f.balance(f.lp, alice).String())
}

func TestStake_Lock(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)
	now := f.clock.Now()

	f.stake(p, f.lp, alice, 1000, now+year/2)
	d, err := p.Deposit(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, now, d.LockedFrom)
	assert.Equal(t, now+year/2, d.LockedUntil)
	assert.Equal(t, "1500000000", d.Weight.String())

	// longer locks are clamped to one year
	f.stake(p, f.lp, alice, 1000, now+5*year)
	d, err = p.Deposit(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, now+year, d.LockedUntil)
	assert.Equal(t, "2000000000", d.Weight.String())
}

func TestStake_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)
	now := f.clock.Now()
	f.fund(f.lp, alice, p.Address(), 1000)

	assert.True(t, reverts.IsPrecondition(p.Stake(alice, big.NewInt(0), 0, false)))
	assert.True(t, reverts.IsPrecondition(p.Stake(alice, big.NewInt(10), now, false)), "lock ending now")
	assert.True(t, reverts.IsPrecondition(p.Stake(alice, big.NewInt(10), now-1, false)), "lock in the past")

	before := f.st.Changes()
	err := f.call(func() error { return p.Stake(alice, big.NewInt(1001), 0, false) })
	assert.True(t, reverts.IsPrecondition(err), "insufficient balance")
	assert.Equal(t, before, f.st.Changes())
}

func TestSync_Accrual(t *testing.T) {
	f := newFixture(t)
	f.rewardPool()
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Advance(10)

	// 10s * 1000/s * 800/1000
	assert.Equal(t, "8000", f.pending(p, alice).String())

	require.NoError(t, f.call(p.Sync))
	assert.Equal(t, "8000000", mustBig(p.YieldRewardsPerWeight()).String())
	last, err := p.LastYieldDistribution()
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), last)
	assert.Equal(t, "8000", f.pending(p, alice).String())
}

func TestSync_SplitByWeight(t *testing.T) {
	f := newFixture(t)
	f.rewardPool()
	p := f.lpPool(false)
	now := f.clock.Now()

	f.stake(p, f.lp, alice, 1000, 0)
	f.stake(p, f.lp, bob, 1000, now+year)
	f.clock.Advance(30)

	// 24000 split 1:2
	assert.Equal(t, "8000", f.pending(p, alice).String())
	assert.Equal(t, "16000", f.pending(p, bob).String())
}

func TestSync_ZeroLockingWeight(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)

	f.clock.Advance(100)
	require.NoError(t, f.call(p.Sync))

	last, err := p.LastYieldDistribution()
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), last)
	assert.Equal(t, "0", mustBig(p.YieldRewardsPerWeight()).String())

	// the idle period is never distributed
	f.stake(p, f.lp, alice, 1000, 0)
	assert.Equal(t, "0", f.pending(p, alice).String())
}

func TestSync_FarmingEnd(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Set(farmingEnd - 10)
	require.NoError(t, f.call(p.Sync))
	before := f.pending(p, alice)

	f.clock.Set(farmingEnd + 1000)
	// only the last 10s accrue, the whole emission goes to the only pool
	want := new(big.Int).Add(before, big.NewInt(10*emissionRate))
	assert.Equal(t, want.String(), f.pending(p, alice).String())

	require.NoError(t, f.call(p.Sync))
	assert.Equal(t, want.String(), f.pending(p, alice).String())
	last, err := p.LastYieldDistribution()
	require.NoError(t, err)
	assert.Equal(t, farmingEnd, last)

	f.clock.Advance(1000)
	require.NoError(t, f.call(p.Sync))
	assert.Equal(t, want.String(), f.pending(p, alice).String())
}

func TestSync_TriggersDecay(t *testing.T) {
	f := newFixtureWithDecay(t, 100)
	p := f.lpPool(false)

	f.clock.Advance(100)
	require.NoError(t, f.call(p.Sync))

	rate, err := f.reg.EmissionRate()
	require.NoError(t, err)
	assert.Equal(t, "990", rate.String())

	// not due again in the same clock unit
	require.NoError(t, f.call(p.Sync))
	rate, err = f.reg.EmissionRate()
	require.NoError(t, err)
	assert.Equal(t, "990", rate.String())
}

func TestPending_UnchangedWithoutElapsedTime(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Advance(10)
	want := f.pending(p, alice)

	require.NoError(t, f.call(p.Sync))
	assert.Equal(t, want.String(), f.pending(p, alice).String())

	f.stake(p, f.lp, bob, 5000, f.clock.Now()+year)
	assert.Equal(t, want.String(), f.pending(p, alice).String())
	assert.Equal(t, "0", f.pending(p, bob).String())
}

func TestUnstake_Locked(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)
	lockUntil := f.clock.Now() + year/2

	f.stake(p, f.lp, alice, 1000, lockUntil)
	f.clock.Set(lockUntil - 1)

	before := f.st.Changes()
	err := f.call(func() error { return p.Unstake(alice, 0, big.NewInt(1000), false) })
	assert.True(t, reverts.IsPrecondition(err))
	assert.Equal(t, before, f.st.Changes(), "a rejected unstake leaves state untouched")

	f.clock.Advance(1)
	require.NoError(t, f.call(func() error { return p.Unstake(alice, 0, big.NewInt(1000), false) }))
	assert.Equal(t, "1000", f.balance(f.lp, alice).String())
}

func TestUnstake_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)
	f.stake(p, f.lp, alice, 1000, 0)

	assert.True(t, reverts.IsPrecondition(p.Unstake(alice, 0, big.NewInt(0), false)))
	assert.True(t, reverts.IsPrecondition(p.Unstake(alice, 0, big.NewInt(1001), false)))
	assert.True(t, reverts.IsPrecondition(p.Unstake(alice, 1, big.NewInt(1), false)))
	assert.True(t, reverts.IsPrecondition(p.Unstake(bob, 0, big.NewInt(1), false)))
}

func TestUnstake_Partial(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)
	lockUntil := f.clock.Now() + year/2

	f.stake(p, f.lp, alice, 1000, lockUntil)
	f.clock.Set(lockUntil)
	require.NoError(t, f.call(func() error { return p.Unstake(alice, 0, big.NewInt(400), false) }))

	d, err := p.Deposit(alice, 0)
	require.NoError(t, err)
	assert.Equal(t, "600", d.TokenAmount.String())
	assert.Equal(t, "900000000", d.Weight.String(), "600 * 1.5e6")

	u, err := p.User(alice)
	require.NoError(t, err)
	assert.Equal(t, "600", u.TokenAmount.String())
	assert.Equal(t, "900000000", u.TotalWeight.String())
	assert.Equal(t, "900000000", mustBig(p.UsersLockingWeight()).String())
	assert.Equal(t, "600", mustBig(p.PoolTokenReserve()).String())
	assert.Equal(t, "400", f.balance(f.lp, alice).String())

	require.NoError(t, f.call(func() error { return p.Unstake(alice, 0, big.NewInt(600), false) }))
	d, err = p.Deposit(alice, 0)
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
	n, err := p.DepositsLength(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "withdrawn deposits keep their index")
	assert.Equal(t, "0", mustBig(p.UsersLockingWeight()).String())
}

func TestUnstake_PrincipalAtLockEnd(t *testing.T) {
	f := newFixture(t)
	p := f.rewardPool()
	lockUntil := f.clock.Now() + year

	f.stake(p, f.reward, alice, 1000, lockUntil)

	// compound twice along the way
	f.clock.Advance(year / 3)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))
	f.clock.Advance(year / 3)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))

	n, err := p.DepositsLength(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	f.clock.Set(lockUntil)
	before := f.balance(f.reward, alice)
	require.NoError(t, f.call(func() error { return p.Unstake(alice, 0, big.NewInt(1000), false) }))
	after := f.balance(f.reward, alice)

	assert.Equal(t, "1000", new(big.Int).Sub(after, before).String())

	// compounded yield deposits remain locked
	for id := uint64(1); id < 4; id++ {
		d, err := p.Deposit(alice, id)
		require.NoError(t, err)
		assert.True(t, d.IsYield)
		assert.True(t, d.IsLocked(f.clock.Now()))
	}
}

func TestUnstake_YieldDepositIsMinted(t *testing.T) {
	f := newFixture(t)
	p := f.rewardPool()

	f.stake(p, f.reward, alice, 1000, 0)
	f.clock.Advance(10)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))

	d, err := p.Deposit(alice, 1)
	require.NoError(t, err)
	require.True(t, d.IsYield)
	amount := new(big.Int).Set(d.TokenAmount)

	f.clock.Set(d.LockedUntil)
	supply, err := f.reward.TotalSupply()
	require.NoError(t, err)
	poolBalance := f.balance(f.reward, p.Address())

	require.NoError(t, f.call(func() error { return p.Unstake(alice, 1, amount, true) }))

	// paid by minting, custody untouched
	assert.Equal(t, poolBalance.String(), f.balance(f.reward, p.Address()).String())
	newSupply, err := f.reward.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).Sub(newSupply, supply).Cmp(amount))
}

func TestProcessRewards_ZeroPendingIsNoop(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)

	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))

	f.stake(p, f.lp, alice, 1000, 0)
	before := f.st.Changes()
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))
	assert.Equal(t, before, f.st.Changes())
}

func TestProcessRewards_Compound(t *testing.T) {
	f := newFixture(t)
	f.lpPool(false)
	p := f.rewardPool()

	f.stake(p, f.reward, alice, 1000, 0)
	f.clock.Advance(10)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))

	// 10s * 1000/s * 200/1000
	d, err := p.Deposit(alice, 1)
	require.NoError(t, err)
	assert.True(t, d.IsYield)
	assert.Equal(t, "2000", d.TokenAmount.String())
	assert.Equal(t, "4000000000", d.Weight.String())
	assert.Equal(t, f.clock.Now(), d.LockedFrom)
	assert.Equal(t, f.clock.Now()+year, d.LockedUntil)

	u, err := p.User(alice)
	require.NoError(t, err)
	assert.Equal(t, "3000", u.TokenAmount.String())
	assert.Equal(t, "5000000000", u.TotalWeight.String())
	assert.Equal(t, "5000000000", mustBig(p.UsersLockingWeight()).String())
	assert.Equal(t, "3000", mustBig(p.PoolTokenReserve()).String())
	assert.Equal(t, "0", f.pending(p, alice).String())
	assert.Equal(t, "0", f.balance(f.reward, alice).String())
}

func TestProcessRewards_Mint(t *testing.T) {
	f := newFixture(t)
	f.rewardPool()
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Advance(10)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))

	assert.Equal(t, "8000", f.balance(f.reward, alice).String())
	assert.Equal(t, "0", f.pending(p, alice).String())
	n, err := p.DepositsLength(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestProcessRewards_Escrow(t *testing.T) {
	f := newFixture(t)
	p := f.rewardPool()

	f.stake(p, f.reward, alice, 1000, 0)
	f.clock.Advance(10)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, true) }))

	// the only pool gets the whole emission
	assert.Equal(t, "10000", f.balance(f.escrow, alice).String())
	n, err := p.DepositsLength(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "escrow claims do not compound")
}

func TestProcessRewards_CrossCompound(t *testing.T) {
	f := newFixture(t)
	rp := f.rewardPool()
	p := f.lpPool(true)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Advance(10)
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))

	assert.Equal(t, "0", f.balance(f.reward, alice).String())
	d, err := rp.Deposit(alice, 0)
	require.NoError(t, err)
	assert.True(t, d.IsYield)
	assert.Equal(t, "8000", d.TokenAmount.String())
	assert.Equal(t, "16000000000", d.Weight.String())
	assert.Equal(t, f.clock.Now()+year, d.LockedUntil)
	assert.Equal(t, "8000", mustBig(rp.PoolTokenReserve()).String())
}

func TestStakeAsPool_Gated(t *testing.T) {
	f := newFixture(t)
	rp := f.rewardPool()
	lp := f.lpPool(false)

	err := rp.StakeAsPool(stranger, alice, big.NewInt(10))
	assert.True(t, reverts.IsAuthorization(err))

	require.NoError(t, f.call(func() error { return rp.StakeAsPool(lp.Address(), alice, big.NewInt(10)) }))
	u, err := rp.User(alice)
	require.NoError(t, err)
	assert.Equal(t, "20000000", u.TotalWeight.String())

	assert.True(t, reverts.IsPrecondition(rp.StakeAsPool(lp.Address(), alice, big.NewInt(0))))
}

func TestVault(t *testing.T) {
	f := newFixture(t)
	f.rewardPool()
	p := f.lpPool(false)
	f.fund(f.reward, vault, p.Address(), 10_000)

	// nothing to attribute the reward to
	err := f.call(func() error { return p.ReceiveVaultRewards(vault, big.NewInt(3000)) })
	assert.True(t, reverts.IsPrecondition(err))
	require.NoError(t, f.call(func() error { return p.ReceiveVaultRewards(vault, big.NewInt(0)) }))

	f.stake(p, f.lp, alice, 1000, 0)
	f.stake(p, f.lp, bob, 1000, f.clock.Now()+year)

	err = p.ReceiveVaultRewards(stranger, big.NewInt(3000))
	assert.True(t, reverts.IsAuthorization(err))

	require.NoError(t, f.call(func() error { return p.ReceiveVaultRewards(vault, big.NewInt(3000)) }))
	assert.Equal(t, "1000000", mustBig(p.VaultRewardsPerWeight()).String())
	assert.Equal(t, "3000", f.balance(f.reward, p.Address()).String())

	pa, err := p.PendingVaultRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, "1000", pa.String())
	pb, err := p.PendingVaultRewards(bob)
	require.NoError(t, err)
	assert.Equal(t, "2000", pb.String())

	// claimed before any weight change and never compounded
	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))
	assert.Equal(t, "1000", f.balance(f.reward, alice).String())
	pa, err = p.PendingVaultRewards(alice)
	require.NoError(t, err)
	assert.Equal(t, "0", pa.String())

	// lp pool reserve tracks the lp token only
	assert.Equal(t, "2000", mustBig(p.PoolTokenReserve()).String())
}

func TestVault_RewardPoolReserve(t *testing.T) {
	f := newFixture(t)
	p := f.rewardPool()
	f.fund(f.reward, vault, p.Address(), 1000)

	f.stake(p, f.reward, alice, 1000, 0)
	require.NoError(t, f.call(func() error { return p.ReceiveVaultRewards(vault, big.NewInt(1000)) }))
	assert.Equal(t, "2000", mustBig(p.PoolTokenReserve()).String())

	require.NoError(t, f.call(func() error { return p.ProcessRewards(alice, false) }))
	assert.Equal(t, "1000", f.balance(f.reward, alice).String())
	assert.Equal(t, "1000", mustBig(p.PoolTokenReserve()).String())
}

func TestVault_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)
	f.fund(f.reward, vault, p.Address(), 1000)

	f.stake(p, f.lp, alice, 1000, 0)
	require.NoError(t, f.call(func() error { return p.ReceiveVaultRewards(vault, big.NewInt(1000)) }))

	// drain the pool's reward balance behind its back
	require.NoError(t, f.reward.Transfer(p.Address(), stranger, big.NewInt(500)))

	err := f.call(func() error { return p.ProcessRewards(alice, false) })
	assert.True(t, reverts.IsPrecondition(err))
}

func TestSetVault(t *testing.T) {
	f := newFixture(t)
	p := f.lpPool(false)

	assert.True(t, reverts.IsAuthorization(p.SetVault(stranger, stranger)))
	assert.True(t, reverts.IsConfiguration(p.SetVault(owner, farm.Address{})))
	require.NoError(t, p.SetVault(owner, stranger))

	v, err := p.Vault()
	require.NoError(t, err)
	assert.Equal(t, stranger, v)

	f.stake(p, f.lp, alice, 1000, 0)
	assert.True(t, reverts.IsAuthorization(p.ReceiveVaultRewards(vault, big.NewInt(1))))
}

func TestSetWeight(t *testing.T) {
	f := newFixture(t)
	f.rewardPool()
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Advance(10)

	assert.True(t, reverts.IsAuthorization(p.SetWeight(stranger, 0)))
	require.NoError(t, f.call(func() error { return p.SetWeight(owner, 0) }))

	w, err := p.Weight()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), w)
	total, err := f.reg.TotalWeight()
	require.NoError(t, err)
	assert.Equal(t, rewardWeight, total)

	// accrued at the old weight, nothing after
	assert.Equal(t, "8000", f.pending(p, alice).String())
	f.clock.Advance(10)
	assert.Equal(t, "8000", f.pending(p, alice).String())
}

func TestUnregisteredPool_LosesMint(t *testing.T) {
	f := newFixture(t)
	f.rewardPool()
	p := f.lpPool(false)

	f.stake(p, f.lp, alice, 1000, 0)
	f.clock.Advance(10)
	require.NoError(t, f.call(p.Sync))
	require.NoError(t, f.reg.UnregisterPool(owner, p.Address()))
	assert.Equal(t, "8000", f.pending(p, alice).String())

	err := f.call(func() error { return p.ProcessRewards(alice, false) })
	assert.True(t, reverts.IsAuthorization(err))

	// the pool accrues nothing while out and can never come back
	f.clock.Advance(1000)
	require.NoError(t, f.call(p.Sync))
	err = f.reg.RegisterPool(owner, &registry.Descriptor{Pool: p.Address(), PoolToken: lpAddr, Weight: lpWeight})
	assert.True(t, reverts.IsPrecondition(err))
	assert.Equal(t, "8000", f.pending(p, alice).String())
	assert.Equal(t, 0, f.balance(f.reward, alice).Sign())

	// principal stays withdrawable through custody
	require.NoError(t, f.call(func() error { return p.Unstake(alice, 0, big.NewInt(1000), true) }))
	assert.Equal(t, "1000", f.balance(f.lp, alice).String())
}
