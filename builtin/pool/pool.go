// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/vechain/farm/builtin/pool/deposit"
	"github.com/vechain/farm/builtin/pool/user"
	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/clock"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/metrics"
	"github.com/vechain/farm/state"
)

var (
	logger = log.WithContext("pkg", "pool")

	metricStakes         = metrics.LazyLoadCounter("stakes_count")
	metricUnstakes       = metrics.LazyLoadCounter("unstakes_count")
	metricRewardsClaimed = metrics.LazyLoadCounterVec("rewards_claimed", []string{"pool", "kind"})
)

var (
	slotConfig                = farm.BytesToBytes32([]byte("config"))
	slotYieldRewardsPerWeight = farm.BytesToBytes32([]byte("yield-rewards-per-weight"))
	slotVaultRewardsPerWeight = farm.BytesToBytes32([]byte("vault-rewards-per-weight"))
	slotUsersLockingWeight    = farm.BytesToBytes32([]byte("users-locking-weight"))
	slotPoolTokenReserve      = farm.BytesToBytes32([]byte("pool-token-reserve"))
	slotLastYieldDistribution = farm.BytesToBytes32([]byte("last-yield-distribution"))
)

// Directory resolves a registered pool address to its pool.
type Directory interface {
	Pool(addr farm.Address) (*Pool, error)
}

// Env is everything a pool reaches outside its own storage.
type Env interface {
	token.Ledgers
	Directory
}

// Config is the identity of a pool, fixed at construction except the vault.
type Config struct {
	PoolToken     farm.Address
	RewardToken   farm.Address
	EscrowToken   farm.Address
	Owner         farm.Address
	Vault         farm.Address // may be zero until SetVault
	IsFlash       bool
	CrossCompound bool   // route yield of foreign-token pools into the reward token pool
	InitTime      uint64 // accrual starts here
}

// Pool is a native staking pool. The registry holds its weight, the pool holds its accumulators,
// users and deposits.
// Pool is not safe for concurrent use, calls are serialized by the caller.
type Pool struct {
	addr     farm.Address
	clock    clock.Clock
	registry *registry.Registry
	env      Env
	policy   Policy

	config                *solidity.Raw[*Config]
	yieldRewardsPerWeight *solidity.Uint256
	vaultRewardsPerWeight *solidity.Uint256
	usersLockingWeight    *solidity.Uint256
	poolTokenReserve      *solidity.Uint256
	lastYieldDistribution *solidity.Raw[uint64]
	users                 *user.Service
	deposits              *deposit.Service

	entered bool
}

// New binds the pool stored at addr.
func New(addr farm.Address, state *state.State, clk clock.Clock, reg *registry.Registry, env Env, policy Policy) *Pool {
	sctx := solidity.NewContext(addr, state)
	return &Pool{
		addr:     addr,
		clock:    clk,
		registry: reg,
		env:      env,
		policy:   policy,

		config:                solidity.NewRaw[*Config](sctx, slotConfig),
		yieldRewardsPerWeight: solidity.NewUint256(sctx, slotYieldRewardsPerWeight),
		vaultRewardsPerWeight: solidity.NewUint256(sctx, slotVaultRewardsPerWeight),
		usersLockingWeight:    solidity.NewUint256(sctx, slotUsersLockingWeight),
		poolTokenReserve:      solidity.NewUint256(sctx, slotPoolTokenReserve),
		lastYieldDistribution: solidity.NewRaw[uint64](sctx, slotLastYieldDistribution),
		users:                 user.New(sctx),
		deposits:              deposit.New(sctx),
	}
}

// Initialize writes the pool identity and verifies the reward and escrow tokens.
// It can only be called once.
func (p *Pool) Initialize(cfg *Config) error {
	if cfg.PoolToken.IsZero() || cfg.RewardToken.IsZero() || cfg.EscrowToken.IsZero() || cfg.Owner.IsZero() {
		return reverts.NewConfiguration("zero address")
	}
	if cfg.InitTime == 0 {
		return reverts.NewConfiguration("init time must be positive")
	}
	current, err := p.config.Get()
	if err != nil {
		return err
	}
	if current != nil && !current.PoolToken.IsZero() {
		return reverts.NewConfiguration("pool already initialized")
	}

	if err := p.verifyToken(cfg.RewardToken, farm.RewardTokenUID); err != nil {
		return err
	}
	if err := p.verifyToken(cfg.EscrowToken, farm.EscrowTokenUID); err != nil {
		return err
	}
	if _, err := p.env.Ledger(cfg.PoolToken); err != nil {
		return reverts.Newf(reverts.Configuration, "no ledger for pool token %v", cfg.PoolToken)
	}

	c := *cfg
	if err := p.config.Set(&c); err != nil {
		return err
	}
	if err := p.lastYieldDistribution.Set(cfg.InitTime); err != nil {
		return err
	}
	logger.Info("pool initialized", "pool", p.addr, "token", cfg.PoolToken, "init", cfg.InitTime)
	return nil
}

func (p *Pool) verifyToken(addr farm.Address, uid farm.Bytes32) error {
	ledger, err := p.env.Ledger(addr)
	if err != nil {
		return reverts.Newf(reverts.Configuration, "no ledger for token %v", addr)
	}
	got, err := ledger.TokenUID()
	if err != nil {
		return err
	}
	if got != uid {
		return reverts.Newf(reverts.Configuration, "unexpected uid for token %v", addr)
	}
	return nil
}

// enter acquires the non-reentrant lock. A ledger calling back into the pool is rejected.
func (p *Pool) enter() (func(), error) {
	if p.entered {
		return nil, reverts.NewAuthorization("reentrant call")
	}
	p.entered = true
	return func() { p.entered = false }, nil
}

//
// Getters - no state change
//

func (p *Pool) Address() farm.Address {
	return p.addr
}

// Config returns a copy of the pool identity.
func (p *Pool) Config() (*Config, error) {
	cfg, err := p.config.Get()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &Config{}, nil
	}
	return cfg, nil
}

// Weight returns the pool weight as held by the registry.
func (p *Pool) Weight() (uint64, error) {
	return p.registry.PoolWeight(p.addr)
}

func (p *Pool) YieldRewardsPerWeight() (*big.Int, error) {
	return p.yieldRewardsPerWeight.Get()
}

func (p *Pool) VaultRewardsPerWeight() (*big.Int, error) {
	return p.vaultRewardsPerWeight.Get()
}

func (p *Pool) UsersLockingWeight() (*big.Int, error) {
	return p.usersLockingWeight.Get()
}

func (p *Pool) PoolTokenReserve() (*big.Int, error) {
	return p.poolTokenReserve.Get()
}

func (p *Pool) LastYieldDistribution() (uint64, error) {
	return p.lastYieldDistribution.Get()
}

// User returns the aggregate record of the staker.
func (p *Pool) User(staker farm.Address) (*user.User, error) {
	return p.users.Get(staker)
}

// Balance returns the amount the staker holds in live deposits.
func (p *Pool) Balance(staker farm.Address) (*big.Int, error) {
	u, err := p.users.Get(staker)
	if err != nil {
		return nil, err
	}
	return u.TokenAmount, nil
}

// DepositsLength returns the number of deposits ever created by the staker.
func (p *Pool) DepositsLength(staker farm.Address) (uint64, error) {
	u, err := p.users.Get(staker)
	if err != nil {
		return 0, err
	}
	return u.DepositsCount, nil
}

func (p *Pool) Deposit(staker farm.Address, id uint64) (*deposit.Deposit, error) {
	return p.deposits.Get(staker, id)
}

// Deposits returns all deposits of the staker, withdrawn ones as empty entries.
func (p *Pool) Deposits(staker farm.Address) ([]*deposit.Deposit, error) {
	u, err := p.users.Get(staker)
	if err != nil {
		return nil, err
	}
	deposits := make([]*deposit.Deposit, 0, u.DepositsCount)
	for id := range u.DepositsCount {
		d, err := p.deposits.Get(staker, id)
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, nil
}

// PendingYieldRewards returns the primary reward the staker could claim now, projecting the
// accumulator to the current checkpoint without writing it.
func (p *Pool) PendingYieldRewards(staker farm.Address) (*big.Int, error) {
	acc, err := p.projectedYieldRewardsPerWeight()
	if err != nil {
		return nil, err
	}
	u, err := p.users.Get(staker)
	if err != nil {
		return nil, err
	}
	return pending(u.TotalWeight, acc, u.SubYieldRewards), nil
}

// PendingVaultRewards returns the vault reward the staker could claim now.
func (p *Pool) PendingVaultRewards(staker farm.Address) (*big.Int, error) {
	acc, err := p.vaultRewardsPerWeight.Get()
	if err != nil {
		return nil, err
	}
	u, err := p.users.Get(staker)
	if err != nil {
		return nil, err
	}
	return pending(u.TotalWeight, acc, u.SubVaultRewards), nil
}

func (p *Pool) projectedYieldRewardsPerWeight() (*big.Int, error) {
	acc, err := p.yieldRewardsPerWeight.Get()
	if err != nil {
		return nil, err
	}
	from, to, err := p.accrualWindow()
	if err != nil || to <= from {
		return acc, err
	}
	locking, err := p.usersLockingWeight.Get()
	if err != nil {
		return nil, err
	}
	if locking.Sign() == 0 {
		return acc, nil
	}
	reward, err := p.registry.PoolEmission(p.addr, from, to)
	if err != nil {
		return nil, err
	}
	return acc.Add(acc, RewardToWeight(reward, locking)), nil
}

// accrualWindow returns the span not yet folded into the accumulator, bounded by the farming end.
func (p *Pool) accrualWindow() (uint64, uint64, error) {
	last, err := p.lastYieldDistribution.Get()
	if err != nil {
		return 0, 0, err
	}
	end, err := p.registry.FarmingEnd()
	if err != nil {
		return 0, 0, err
	}
	now := p.clock.Now()
	if now > end {
		now = end
	}
	if now <= last {
		return last, last, nil
	}
	return last, now, nil
}
