// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/clock"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/state"
)

const (
	year          = uint64(365 * 24 * 3600)
	initTime      = uint64(1_000_000)
	farmingEnd    = initTime + 3*year
	decayInterval = 10 * year // never due unless a test lowers it
	emissionRate  = int64(1000)

	rewardWeight = uint64(200)
	lpWeight     = uint64(800)
)

var (
	owner        = farm.Address{0x0a}
	vault        = farm.Address{0x0b}
	stranger     = farm.Address{0x0c}
	alice        = farm.Address{0x01}
	bob          = farm.Address{0x02}
	registryAddr = farm.Address{0xf0}
	rewardAddr   = farm.Address{0xe1}
	escrowAddr   = farm.Address{0xe2}
	lpAddr       = farm.Address{0xe3}
	otherAddr    = farm.Address{0xe4}
)

type testEnv struct {
	token.LedgerMap
	pools map[farm.Address]*Pool
}

func (e *testEnv) Pool(addr farm.Address) (*Pool, error) {
	p, ok := e.pools[addr]
	if !ok {
		return nil, errors.Errorf("unknown pool %v", addr)
	}
	return p, nil
}

type fixture struct {
	t      *testing.T
	st     *state.State
	clock  *clock.Manual
	env    *testEnv
	reg    *registry.Registry
	reward *token.Token
	escrow *token.Token
	lp     *token.Token
	nonce  byte
}

func newToken(t *testing.T, st *state.State, addr farm.Address, uid farm.Bytes32, symbol string) *token.Token {
	tok := token.New(addr, st)
	require.NoError(t, tok.Initialize(owner, uid, symbol, symbol))
	require.NoError(t, tok.SetMinter(owner, owner, true))
	return tok
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithDecay(t, decayInterval)
}

func newFixtureWithDecay(t *testing.T, interval uint64) *fixture {
	st := state.New(nil)
	env := &testEnv{LedgerMap: token.LedgerMap{}, pools: map[farm.Address]*Pool{}}

	f := &fixture{
		t:      t,
		st:     st,
		clock:  clock.NewManual(initTime),
		env:    env,
		reward: newToken(t, st, rewardAddr, farm.RewardTokenUID, "RWD"),
		escrow: newToken(t, st, escrowAddr, farm.EscrowTokenUID, "ESC"),
		lp:     newToken(t, st, lpAddr, farm.Bytes32{0x1}, "LP"),
	}
	env.Add(f.reward)
	env.Add(f.escrow)
	env.Add(f.lp)

	f.reg = registry.New(registryAddr, st, f.clock, env)
	require.NoError(t, f.reg.Initialize(&registry.Params{
		Owner:         owner,
		RewardToken:   rewardAddr,
		EscrowToken:   escrowAddr,
		EmissionRate:  big.NewInt(emissionRate),
		DecayInterval: interval,
		InitTime:      initTime,
		FarmingEnd:    farmingEnd,
	}))
	require.NoError(t, f.reward.SetMinter(owner, registryAddr, true))
	return f
}

// createPool deploys, initializes and registers a core pool.
func (f *fixture) createPool(poolToken farm.Address, weight uint64, crossCompound bool) *Pool {
	f.nonce++
	addr := farm.Address{0x50, f.nonce}
	p := New(addr, f.st, f.clock, f.reg, f.env, CorePolicy{})
	require.NoError(f.t, p.Initialize(&Config{
		PoolToken:     poolToken,
		RewardToken:   rewardAddr,
		EscrowToken:   escrowAddr,
		Owner:         owner,
		Vault:         vault,
		CrossCompound: crossCompound,
		InitTime:      f.clock.Now(),
	}))
	require.NoError(f.t, f.reg.RegisterPool(owner, &registry.Descriptor{Pool: addr, PoolToken: poolToken, Weight: weight}))
	require.NoError(f.t, f.escrow.SetMinter(owner, addr, true))
	f.env.pools[addr] = p
	return p
}

// rewardPool is the pool staking the reward token, lpPool stakes a foreign token.
func (f *fixture) rewardPool() *Pool {
	return f.createPool(rewardAddr, rewardWeight, false)
}

func (f *fixture) lpPool(crossCompound bool) *Pool {
	return f.createPool(lpAddr, lpWeight, crossCompound)
}

// fund mints amount of the token to holder and approves the spender for it.
func (f *fixture) fund(tok *token.Token, holder, spender farm.Address, amount int64) {
	require.NoError(f.t, tok.Mint(owner, holder, big.NewInt(amount)))
	allowance, err := tok.Allowance(holder, spender)
	require.NoError(f.t, err)
	require.NoError(f.t, tok.Approve(holder, spender, allowance.Add(allowance, big.NewInt(amount))))
}

// call runs fn atomically, the way the farm does.
func (f *fixture) call(fn func() error) error {
	cp := f.st.NewCheckpoint()
	if err := fn(); err != nil {
		f.st.RevertTo(cp)
		return err
	}
	return nil
}

func (f *fixture) balance(tok token.Ledger, holder farm.Address) *big.Int {
	bal, err := tok.BalanceOf(holder)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) pending(p *Pool, staker farm.Address) *big.Int {
	v, err := p.PendingYieldRewards(staker)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) stake(p *Pool, tok *token.Token, staker farm.Address, amount int64, lockUntil uint64) {
	f.fund(tok, staker, p.Address(), amount)
	require.NoError(f.t, f.call(func() error {
		return p.Stake(staker, big.NewInt(amount), lockUntil, false)
	}))
}

func mustBig(v *big.Int, err error) *big.Int {
	if err != nil {
		panic(err)
	}
	return v
}
