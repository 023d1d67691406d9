// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin assembles the native contracts of a farm over one state.
package builtin

import (
	"maps"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/pool"
	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/clock"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/state"
)

var logger = log.WithContext("pkg", "builtin")

// Native contract addresses.
var (
	RegistryAddress = farm.BytesToAddress([]byte("Registry"))
	FactoryAddress  = farm.BytesToAddress([]byte("Factory"))
)

var (
	slotNonce  = farm.BytesToBytes32([]byte("nonce"))
	slotTokens = farm.BytesToBytes32([]byte("tokens"))
	slotPools  = farm.BytesToBytes32([]byte("pools"))
)

// PoolOptions are the optional parameters of a new pool.
type PoolOptions struct {
	InitTime      uint64 // zero means now
	Vault         farm.Address
	CrossCompound bool
	IsFlash       bool
}

// Farm binds the registry, the ledgers and every pool ever created to a state.
// Farm is not safe for concurrent use.
type Farm struct {
	state    *state.State
	clock    clock.Clock
	registry *registry.Registry

	nonce  *solidity.Raw[uint64]
	tokens *solidity.Raw[[]farm.Address]
	pools  *solidity.Raw[[]farm.Address]

	ledgers token.LedgerMap
	bound   map[farm.Address]*pool.Pool
}

// New binds the farm stored in state. Tokens and pools created before are rebound, and the
// reward and escrow tokens of an initialized registry are verified.
func New(st *state.State, clk clock.Clock) (*Farm, error) {
	sctx := solidity.NewContext(FactoryAddress, st)
	f := &Farm{
		state:   st,
		clock:   clk,
		nonce:   solidity.NewRaw[uint64](sctx, slotNonce),
		tokens:  solidity.NewRaw[[]farm.Address](sctx, slotTokens),
		pools:   solidity.NewRaw[[]farm.Address](sctx, slotPools),
		ledgers: token.LedgerMap{},
		bound:   make(map[farm.Address]*pool.Pool),
	}
	f.registry = registry.New(RegistryAddress, st, clk, f)

	tokens, err := f.tokens.Get()
	if err != nil {
		return nil, errors.Wrap(err, "load tokens")
	}
	for _, addr := range tokens {
		f.ledgers.Add(token.New(addr, st))
	}
	pools, err := f.pools.Get()
	if err != nil {
		return nil, errors.Wrap(err, "load pools")
	}
	for _, addr := range pools {
		f.bound[addr] = pool.New(addr, st, clk, f.registry, f, pool.CorePolicy{})
	}

	if err := f.verify(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Farm) verify() error {
	owner, err := f.registry.Owner()
	if err != nil {
		return err
	}
	if owner.IsZero() {
		return nil
	}
	reward, err := f.registry.RewardToken()
	if err != nil {
		return err
	}
	escrow, err := f.registry.EscrowToken()
	if err != nil {
		return err
	}
	for _, c := range []struct {
		addr farm.Address
		uid  farm.Bytes32
	}{{reward, farm.RewardTokenUID}, {escrow, farm.EscrowTokenUID}} {
		l, err := f.ledgers.Ledger(c.addr)
		if err != nil {
			return reverts.Newf(reverts.Configuration, "no ledger for token %v", c.addr)
		}
		uid, err := l.TokenUID()
		if err != nil {
			return err
		}
		if uid != c.uid {
			return reverts.Newf(reverts.Configuration, "unexpected uid for token %v", c.addr)
		}
	}
	return nil
}

// Call runs fn atomically. Any error reverts every write fn made, along with the tokens and
// pools it bound.
func (f *Farm) Call(fn func() error) error {
	var (
		cp      = f.state.NewCheckpoint()
		ledgers = maps.Clone(f.ledgers)
		bound   = maps.Clone(f.bound)
	)
	if err := fn(); err != nil {
		f.state.RevertTo(cp)
		f.ledgers, f.bound = ledgers, bound
		return err
	}
	return nil
}

// Commit persists all calls made so far.
func (f *Farm) Commit() error {
	return f.state.Commit()
}

func (f *Farm) State() *state.State {
	return f.state
}

func (f *Farm) Clock() clock.Clock {
	return f.clock
}

func (f *Farm) Registry() *registry.Registry {
	return f.registry
}

// Ledger implements token.Ledgers.
func (f *Farm) Ledger(addr farm.Address) (token.Ledger, error) {
	return f.ledgers.Ledger(addr)
}

// Token returns the reference token deployed at addr.
func (f *Farm) Token(addr farm.Address) (*token.Token, error) {
	l, err := f.ledgers.Ledger(addr)
	if err != nil {
		return nil, err
	}
	t, ok := l.(*token.Token)
	if !ok {
		return nil, errors.Errorf("ledger %v is not a reference token", addr)
	}
	return t, nil
}

// Tokens returns the addresses of the deployed tokens, in deployment order.
func (f *Farm) Tokens() ([]farm.Address, error) {
	return f.tokens.Get()
}

// BindLedger binds an external ledger. The binding lives in memory only and takes
// precedence over a deployed token at the same address.
func (f *Farm) BindLedger(l token.Ledger) {
	f.ledgers.Add(l)
}

// Pool implements pool.Directory. Pools that were unregistered stay reachable for withdrawals.
func (f *Farm) Pool(addr farm.Address) (*pool.Pool, error) {
	p, ok := f.bound[addr]
	if !ok {
		return nil, reverts.Newf(reverts.Precondition, "no pool at %v", addr)
	}
	return p, nil
}

// PoolByToken returns the registered pool of the token.
func (f *Farm) PoolByToken(poolToken farm.Address) (*pool.Pool, error) {
	addr, err := f.registry.PoolByToken(poolToken)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, reverts.Newf(reverts.Precondition, "no pool for token %v", poolToken)
	}
	return f.Pool(addr)
}

// Pools returns every pool ever created, in creation order.
func (f *Farm) Pools() ([]farm.Address, error) {
	return f.pools.Get()
}

func (f *Farm) nextAddress() (farm.Address, error) {
	nonce, err := f.nonce.Get()
	if err != nil {
		return farm.Address{}, err
	}
	if err := f.nonce.Set(nonce + 1); err != nil {
		return farm.Address{}, err
	}
	return farm.CreateContractAddress(FactoryAddress, nonce), nil
}

// DeployToken creates a reference token owned by owner.
func (f *Farm) DeployToken(owner farm.Address, uid farm.Bytes32, name, symbol string) (*token.Token, error) {
	addr, err := f.nextAddress()
	if err != nil {
		return nil, err
	}
	t := token.New(addr, f.state)
	if err := t.Initialize(owner, uid, name, symbol); err != nil {
		return nil, err
	}
	tokens, err := f.tokens.Get()
	if err != nil {
		return nil, err
	}
	if err := f.tokens.Set(append(tokens, addr)); err != nil {
		return nil, err
	}
	f.ledgers.Add(t)

	logger.Info("token deployed", "token", addr, "symbol", symbol, "owner", owner)
	return t, nil
}

// Initialize initializes the registry.
func (f *Farm) Initialize(params *registry.Params) error {
	return f.registry.Initialize(params)
}

// CreatePool creates a core pool for poolToken and registers it with weight. Registry owner only.
// The escrow token owner still has to grant the pool the minter role for escrowed claims.
func (f *Farm) CreatePool(caller, poolToken farm.Address, weight uint64, opts PoolOptions) (*pool.Pool, error) {
	logger.Debug("creating pool", "caller", caller, "token", poolToken, "weight", weight)

	owner, err := f.registry.Owner()
	if err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, reverts.NewConfiguration("registry not initialized")
	}
	if caller != owner {
		return nil, reverts.NewAuthorization("caller is not the registry owner")
	}
	reward, err := f.registry.RewardToken()
	if err != nil {
		return nil, err
	}
	escrow, err := f.registry.EscrowToken()
	if err != nil {
		return nil, err
	}

	addr, err := f.nextAddress()
	if err != nil {
		return nil, err
	}
	initTime := opts.InitTime
	if initTime == 0 {
		initTime = f.clock.Now()
	}
	p := pool.New(addr, f.state, f.clock, f.registry, f, pool.CorePolicy{})
	if err := p.Initialize(&pool.Config{
		PoolToken:     poolToken,
		RewardToken:   reward,
		EscrowToken:   escrow,
		Owner:         caller,
		Vault:         opts.Vault,
		IsFlash:       opts.IsFlash,
		CrossCompound: opts.CrossCompound,
		InitTime:      initTime,
	}); err != nil {
		return nil, err
	}
	if err := f.registry.RegisterPool(caller, &registry.Descriptor{
		Pool:      addr,
		PoolToken: poolToken,
		Weight:    weight,
		IsFlash:   opts.IsFlash,
	}); err != nil {
		return nil, err
	}

	pools, err := f.pools.Get()
	if err != nil {
		return nil, err
	}
	if err := f.pools.Set(append(pools, addr)); err != nil {
		return nil, err
	}
	f.bound[addr] = p

	logger.Info("pool created", "pool", addr, "token", poolToken, "weight", weight)
	return p, nil
}
