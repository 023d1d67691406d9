// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"math"
	"math/big"
	"slices"

	"github.com/pkg/errors"

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
	logger = log.WithContext("pkg", "registry")

	metricEmissionRate  = metrics.LazyLoadGauge("emission_rate")
	metricEmissionDecay = metrics.LazyLoadCounter("emission_decays_count")
)

var (
	slotOwner           = farm.BytesToBytes32([]byte("owner"))
	slotRewardToken     = farm.BytesToBytes32([]byte("reward-token"))
	slotEscrowToken     = farm.BytesToBytes32([]byte("escrow-token"))
	slotEmissionRate    = farm.BytesToBytes32([]byte("emission-rate"))
	slotTotalWeight     = farm.BytesToBytes32([]byte("total-weight"))
	slotDecayInterval   = farm.BytesToBytes32([]byte("decay-interval"))
	slotLastRatioUpdate = farm.BytesToBytes32([]byte("last-ratio-update"))
	slotFarmingEnd      = farm.BytesToBytes32([]byte("farming-end"))
	slotPoolsByToken    = farm.BytesToBytes32([]byte("pools-by-token"))
	slotPools           = farm.BytesToBytes32([]byte("pools"))
	slotPoolList        = farm.BytesToBytes32([]byte("pool-list"))
	slotRemoved         = farm.BytesToBytes32([]byte("removed"))
)

// Registry tracks the registered pools and their weights, decays the global emission rate
// and is the only minter of the reward token.
type Registry struct {
	addr    farm.Address
	clock   clock.Clock
	ledgers token.Ledgers

	owner           *solidity.Address
	rewardToken     *solidity.Address
	escrowToken     *solidity.Address
	emissionRate    *solidity.Uint256
	totalWeight     *solidity.Raw[uint64]
	decayInterval   *solidity.Raw[uint64]
	lastRatioUpdate *solidity.Raw[uint64]
	farmingEnd      *solidity.Raw[uint64]
	poolsByToken    *solidity.Mapping[farm.Address, farm.Address]
	pools           *solidity.Mapping[farm.Address, *entry]
	poolList        *solidity.Raw[[]farm.Address]
	removed         *solidity.Mapping[farm.Address, bool]
}

// New binds the registry stored at addr. The reward token ledger is resolved through ledgers.
func New(addr farm.Address, state *state.State, clk clock.Clock, ledgers token.Ledgers) *Registry {
	sctx := solidity.NewContext(addr, state)
	return &Registry{
		addr:    addr,
		clock:   clk,
		ledgers: ledgers,

		owner:           solidity.NewAddress(sctx, slotOwner),
		rewardToken:     solidity.NewAddress(sctx, slotRewardToken),
		escrowToken:     solidity.NewAddress(sctx, slotEscrowToken),
		emissionRate:    solidity.NewUint256(sctx, slotEmissionRate),
		totalWeight:     solidity.NewRaw[uint64](sctx, slotTotalWeight),
		decayInterval:   solidity.NewRaw[uint64](sctx, slotDecayInterval),
		lastRatioUpdate: solidity.NewRaw[uint64](sctx, slotLastRatioUpdate),
		farmingEnd:      solidity.NewRaw[uint64](sctx, slotFarmingEnd),
		poolsByToken:    solidity.NewMapping[farm.Address, farm.Address](sctx, slotPoolsByToken),
		pools:           solidity.NewMapping[farm.Address, *entry](sctx, slotPools),
		poolList:        solidity.NewRaw[[]farm.Address](sctx, slotPoolList),
		removed:         solidity.NewMapping[farm.Address, bool](sctx, slotRemoved),
	}
}

// Initialize validates the parameters and writes them. It can only be called once.
func (r *Registry) Initialize(params *Params) error {
	if params.Owner.IsZero() || params.RewardToken.IsZero() || params.EscrowToken.IsZero() {
		return reverts.NewConfiguration("zero address")
	}
	if params.EmissionRate == nil || params.EmissionRate.Sign() <= 0 {
		return reverts.NewConfiguration("emission rate must be positive")
	}
	if params.DecayInterval == 0 {
		return reverts.NewConfiguration("decay interval must be positive")
	}
	if params.FarmingEnd <= params.InitTime {
		return reverts.NewConfiguration("farming end must be after init time")
	}
	reward, err := r.ledgers.Ledger(params.RewardToken)
	if err != nil {
		return reverts.Newf(reverts.Configuration, "no ledger for reward token %v", params.RewardToken)
	}
	uid, err := reward.TokenUID()
	if err != nil {
		return err
	}
	if uid != farm.RewardTokenUID {
		return reverts.NewConfiguration("unexpected reward token uid")
	}

	owner, err := r.owner.Get()
	if err != nil {
		return err
	}
	if !owner.IsZero() {
		return reverts.NewConfiguration("registry already initialized")
	}

	r.owner.Set(params.Owner)
	r.rewardToken.Set(params.RewardToken)
	r.escrowToken.Set(params.EscrowToken)
	r.emissionRate.Set(params.EmissionRate)
	if err := r.decayInterval.Set(params.DecayInterval); err != nil {
		return err
	}
	if err := r.lastRatioUpdate.Set(params.InitTime); err != nil {
		return err
	}
	if err := r.farmingEnd.Set(params.FarmingEnd); err != nil {
		return err
	}
	setEmissionGauge(params.EmissionRate)

	logger.Info("registry initialized", "owner", params.Owner, "rate", params.EmissionRate, "end", params.FarmingEnd)
	return nil
}

//
// Getters - no state change
//

func (r *Registry) Address() farm.Address {
	return r.addr
}

func (r *Registry) Owner() (farm.Address, error) {
	return r.owner.Get()
}

func (r *Registry) RewardToken() (farm.Address, error) {
	return r.rewardToken.Get()
}

func (r *Registry) EscrowToken() (farm.Address, error) {
	return r.escrowToken.Get()
}

func (r *Registry) EmissionRate() (*big.Int, error) {
	return r.emissionRate.Get()
}

func (r *Registry) TotalWeight() (uint64, error) {
	return r.totalWeight.Get()
}

func (r *Registry) DecayInterval() (uint64, error) {
	return r.decayInterval.Get()
}

func (r *Registry) LastRatioUpdate() (uint64, error) {
	return r.lastRatioUpdate.Get()
}

func (r *Registry) FarmingEnd() (uint64, error) {
	return r.farmingEnd.Get()
}

// Pools returns the addresses of all registered pools in registration order.
func (r *Registry) Pools() ([]farm.Address, error) {
	return r.poolList.Get()
}

// PoolByToken returns the pool registered for the token, the zero address if none.
func (r *Registry) PoolByToken(poolToken farm.Address) (farm.Address, error) {
	return r.poolsByToken.Get(poolToken)
}

// PoolExists reports whether the address is currently a registered pool.
func (r *Registry) PoolExists(pool farm.Address) (bool, error) {
	e, err := r.pools.Get(pool)
	if err != nil {
		return false, errors.Wrap(err, "failed to get pool")
	}
	return !e.IsEmpty(), nil
}

// PoolWeight returns the weight of a registered pool, zero for unknown addresses.
func (r *Registry) PoolWeight(pool farm.Address) (uint64, error) {
	e, err := r.pools.Get(pool)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pool")
	}
	return e.Weight, nil
}

// PoolData assembles the view of the pool registered for the token.
func (r *Registry) PoolData(poolToken farm.Address) (*PoolData, error) {
	pool, err := r.poolsByToken.Get(poolToken)
	if err != nil {
		return nil, err
	}
	if pool.IsZero() {
		return nil, reverts.Newf(reverts.Precondition, "no pool registered for token %v", poolToken)
	}
	e, err := r.pools.Get(pool)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool")
	}
	return &PoolData{
		PoolToken: e.PoolToken,
		Pool:      pool,
		Weight:    e.Weight,
		IsFlash:   e.IsFlash,
	}, nil
}

// ShouldUpdateRatio reports whether UpdateEmissionRate would succeed now.
func (r *Registry) ShouldUpdateRatio() (bool, error) {
	now := r.clock.Now()

	end, err := r.farmingEnd.Get()
	if err != nil {
		return false, err
	}
	if now > end {
		return false, nil
	}
	last, err := r.lastRatioUpdate.Get()
	if err != nil {
		return false, err
	}
	interval, err := r.decayInterval.Get()
	if err != nil {
		return false, err
	}
	return now >= last && now-last >= interval, nil
}

// PoolEmission returns the reward the pool earned between from and to at the current rate:
// (to - from) * rate * weight / totalWeight.
func (r *Registry) PoolEmission(pool farm.Address, from, to uint64) (*big.Int, error) {
	if to <= from {
		return new(big.Int), nil
	}
	total, err := r.totalWeight.Get()
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return new(big.Int), nil
	}
	weight, err := r.PoolWeight(pool)
	if err != nil {
		return nil, err
	}
	rate, err := r.emissionRate.Get()
	if err != nil {
		return nil, err
	}

	reward := new(big.Int).SetUint64(to - from)
	reward.Mul(reward, rate)
	reward.Mul(reward, new(big.Int).SetUint64(weight))
	return reward.Div(reward, new(big.Int).SetUint64(total)), nil
}

//
// Setters - state change
//

// RegisterPool records an already constructed pool. Owner only.
func (r *Registry) RegisterPool(caller farm.Address, desc *Descriptor) error {
	logger.Debug("registering pool", "caller", caller, "pool", desc.Pool, "token", desc.PoolToken, "weight", desc.Weight)

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if desc.Pool.IsZero() || desc.PoolToken.IsZero() {
		return reverts.NewConfiguration("zero address")
	}
	registered, err := r.poolsByToken.Get(desc.PoolToken)
	if err != nil {
		return err
	}
	if !registered.IsZero() {
		logger.Info("register pool failed", "token", desc.PoolToken, "error", "duplicate")
		return reverts.Newf(reverts.Precondition, "pool for token %v already registered", desc.PoolToken)
	}
	exists, err := r.PoolExists(desc.Pool)
	if err != nil {
		return err
	}
	if exists {
		return reverts.Newf(reverts.Precondition, "pool %v already registered", desc.Pool)
	}
	removed, err := r.removed.Get(desc.Pool)
	if err != nil {
		return err
	}
	if removed {
		return reverts.Newf(reverts.Precondition, "pool %v was unregistered", desc.Pool)
	}

	total, err := r.totalWeight.Get()
	if err != nil {
		return err
	}
	if total > math.MaxUint64-desc.Weight {
		return reverts.NewConfiguration("total weight overflow")
	}

	if err := r.poolsByToken.Set(desc.PoolToken, desc.Pool); err != nil {
		return err
	}
	if err := r.pools.Set(desc.Pool, &entry{
		PoolToken: desc.PoolToken,
		Weight:    desc.Weight,
		IsFlash:   desc.IsFlash,
	}); err != nil {
		return err
	}
	if err := r.totalWeight.Set(total + desc.Weight); err != nil {
		return err
	}
	list, err := r.poolList.Get()
	if err != nil {
		return err
	}
	if err := r.poolList.Set(append(list, desc.Pool)); err != nil {
		return err
	}

	logger.Info("pool registered", "pool", desc.Pool, "token", desc.PoolToken, "weight", desc.Weight, "flash", desc.IsFlash)
	return nil
}

// UnregisterPool removes a pool. It loses its weight and its mint capability for good, the
// address can never be registered again. Owner only.
func (r *Registry) UnregisterPool(caller farm.Address, pool farm.Address) error {
	logger.Debug("unregistering pool", "caller", caller, "pool", pool)

	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	e, err := r.pools.Get(pool)
	if err != nil {
		return err
	}
	if e.IsEmpty() {
		return reverts.Newf(reverts.Precondition, "pool %v is not registered", pool)
	}

	total, err := r.totalWeight.Get()
	if err != nil {
		return err
	}
	if err := r.totalWeight.Set(total - e.Weight); err != nil {
		return err
	}
	r.poolsByToken.Delete(e.PoolToken)
	r.pools.Delete(pool)
	if err := r.removed.Set(pool, true); err != nil {
		return err
	}

	list, err := r.poolList.Get()
	if err != nil {
		return err
	}
	list = slices.DeleteFunc(list, func(addr farm.Address) bool { return addr == pool })
	if err := r.poolList.Set(list); err != nil {
		return err
	}

	logger.Info("pool unregistered", "pool", pool, "token", e.PoolToken)
	return nil
}

// ChangePoolWeight sets the weight of a pool, keeping the total in step. Owner or the pool itself.
func (r *Registry) ChangePoolWeight(caller farm.Address, pool farm.Address, weight uint64) error {
	logger.Debug("changing pool weight", "caller", caller, "pool", pool, "weight", weight)

	owner, err := r.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner && caller != pool {
		return reverts.NewAuthorization("caller is neither the owner nor the pool")
	}
	e, err := r.pools.Get(pool)
	if err != nil {
		return err
	}
	if e.IsEmpty() {
		return reverts.Newf(reverts.Precondition, "pool %v is not registered", pool)
	}

	total, err := r.totalWeight.Get()
	if err != nil {
		return err
	}
	total -= e.Weight
	if total > math.MaxUint64-weight {
		return reverts.NewConfiguration("total weight overflow")
	}
	if err := r.totalWeight.Set(total + weight); err != nil {
		return err
	}
	old := e.Weight
	e.Weight = weight
	if err := r.pools.Set(pool, e); err != nil {
		return err
	}

	logger.Info("pool weight changed", "pool", pool, "from", old, "to", weight)
	return nil
}

// UpdateEmissionRate decays the emission rate by 1% once per decay interval until farming ends.
// Anyone may call it.
func (r *Registry) UpdateEmissionRate() error {
	ok, err := r.ShouldUpdateRatio()
	if err != nil {
		return err
	}
	if !ok {
		return reverts.NewPrecondition("too frequent")
	}

	rate, err := r.emissionRate.Get()
	if err != nil {
		return err
	}
	rate.Mul(rate, farm.EmissionDecayNumerator)
	rate.Div(rate, farm.EmissionDecayDenominator)
	r.emissionRate.Set(rate)

	if err := r.lastRatioUpdate.Set(r.clock.Now()); err != nil {
		return err
	}

	setEmissionGauge(rate)
	metricEmissionDecay().Add(1)
	logger.Info("emission rate decayed", "rate", rate)
	return nil
}

// SetEmissionRate overrides the emission rate. Owner only.
func (r *Registry) SetEmissionRate(caller farm.Address, rate *big.Int) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	if rate == nil || rate.Sign() < 0 {
		return reverts.NewConfiguration("invalid emission rate")
	}
	r.emissionRate.Set(rate)
	setEmissionGauge(rate)

	logger.Info("emission rate set", "rate", rate)
	return nil
}

// SetFarmingEnd moves the farming end checkpoint. It must stay after the last decay. Owner only.
func (r *Registry) SetFarmingEnd(caller farm.Address, end uint64) error {
	if err := r.onlyOwner(caller); err != nil {
		return err
	}
	last, err := r.lastRatioUpdate.Get()
	if err != nil {
		return err
	}
	if end <= last {
		return reverts.NewConfiguration("farming end must be after the last ratio update")
	}
	if err := r.farmingEnd.Set(end); err != nil {
		return err
	}

	logger.Info("farming end set", "end", end)
	return nil
}

// MintRewardTo mints reward tokens. Only registered pools may call it.
func (r *Registry) MintRewardTo(caller farm.Address, to farm.Address, amount *big.Int) error {
	exists, err := r.PoolExists(caller)
	if err != nil {
		return err
	}
	if !exists {
		logger.Info("mint rejected", "caller", caller, "error", "not a pool")
		return reverts.NewAuthorization("caller is not a registered pool")
	}
	rewardToken, err := r.rewardToken.Get()
	if err != nil {
		return err
	}
	reward, err := r.ledgers.Ledger(rewardToken)
	if err != nil {
		return err
	}
	if err := reward.Mint(r.addr, to, amount); err != nil {
		return errors.Wrap(err, "mint reward")
	}
	logger.Debug("minted reward", "pool", caller, "to", to, "amount", amount)
	return nil
}

func (r *Registry) onlyOwner(caller farm.Address) error {
	owner, err := r.owner.Get()
	if err != nil {
		return err
	}
	if owner.IsZero() || caller != owner {
		return reverts.NewAuthorization("caller is not the owner")
	}
	return nil
}

func setEmissionGauge(rate *big.Int) {
	if rate.IsInt64() {
		metricEmissionRate().Set(rate.Int64())
	} else {
		metricEmissionRate().Set(math.MaxInt64)
	}
}
