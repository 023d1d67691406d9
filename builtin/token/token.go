// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements a reference fungible token ledger used for pool tokens,
// the reward token and the escrow token.
package token

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/state"
)

var logger = log.WithContext("pkg", "token")

var (
	slotUID         = farm.BytesToBytes32([]byte("uid"))
	slotName        = farm.BytesToBytes32([]byte("name"))
	slotSymbol      = farm.BytesToBytes32([]byte("symbol"))
	slotOwner       = farm.BytesToBytes32([]byte("owner"))
	slotTotalSupply = farm.BytesToBytes32([]byte("total-supply"))
	slotBalances    = farm.BytesToBytes32([]byte("balances"))
	slotAllowances  = farm.BytesToBytes32([]byte("allowances"))
	slotMinters     = farm.BytesToBytes32([]byte("minters"))
)

// Ledger is the token surface the registry and pools depend on.
// An implementation must never call back into the caller while moving or minting tokens.
type Ledger interface {
	Address() farm.Address
	TokenUID() (farm.Bytes32, error)
	BalanceOf(addr farm.Address) (*big.Int, error)
	Transfer(caller, to farm.Address, amount *big.Int) error
	TransferFrom(caller, from, to farm.Address, amount *big.Int) error
	Mint(caller, to farm.Address, amount *big.Int) error
}

// Ledgers resolves a token address to its ledger.
type Ledgers interface {
	Ledger(addr farm.Address) (Ledger, error)
}

// LedgerMap is a fixed set of ledgers keyed by token address.
type LedgerMap map[farm.Address]Ledger

func (m LedgerMap) Ledger(addr farm.Address) (Ledger, error) {
	l, ok := m[addr]
	if !ok {
		return nil, errors.Errorf("no ledger for token %v", addr)
	}
	return l, nil
}

// Add binds the ledger under its own address.
func (m LedgerMap) Add(l Ledger) {
	m[l.Address()] = l
}

// Token is the reference Ledger, stored as a native contract.
type Token struct {
	addr        farm.Address
	uid         *solidity.Raw[farm.Bytes32]
	name        *solidity.Raw[string]
	symbol      *solidity.Raw[string]
	owner       *solidity.Address
	totalSupply *solidity.Uint256
	balances    *solidity.Mapping[farm.Address, *big.Int]
	allowances  *solidity.Mapping[farm.Bytes32, *big.Int]
	minters     *solidity.Mapping[farm.Address, bool]
}

var _ Ledger = (*Token)(nil)

// New binds the token stored at addr.
func New(addr farm.Address, state *state.State) *Token {
	sctx := solidity.NewContext(addr, state)
	return &Token{
		addr:        addr,
		uid:         solidity.NewRaw[farm.Bytes32](sctx, slotUID),
		name:        solidity.NewRaw[string](sctx, slotName),
		symbol:      solidity.NewRaw[string](sctx, slotSymbol),
		owner:       solidity.NewAddress(sctx, slotOwner),
		totalSupply: solidity.NewUint256(sctx, slotTotalSupply),
		balances:    solidity.NewMapping[farm.Address, *big.Int](sctx, slotBalances),
		allowances:  solidity.NewMapping[farm.Bytes32, *big.Int](sctx, slotAllowances),
		minters:     solidity.NewMapping[farm.Address, bool](sctx, slotMinters),
	}
}

func allowanceKey(owner, spender farm.Address) farm.Bytes32 {
	return farm.Blake2b(owner.Bytes(), spender.Bytes())
}

// Initialize sets the immutable identity of the token. It can only be called once.
func (t *Token) Initialize(owner farm.Address, uid farm.Bytes32, name, symbol string) error {
	if owner.IsZero() {
		return reverts.NewConfiguration("token owner is zero address")
	}
	current, err := t.owner.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.NewConfiguration("token already initialized")
	}

	t.owner.Set(owner)
	if err := t.uid.Set(uid); err != nil {
		return err
	}
	if err := t.name.Set(name); err != nil {
		return err
	}
	return t.symbol.Set(symbol)
}

func (t *Token) Address() farm.Address {
	return t.addr
}

// TokenUID returns the fixed identifier components check at construction.
func (t *Token) TokenUID() (farm.Bytes32, error) {
	return t.uid.Get()
}

func (t *Token) Name() (string, error) {
	return t.name.Get()
}

func (t *Token) Symbol() (string, error) {
	return t.symbol.Get()
}

func (t *Token) Owner() (farm.Address, error) {
	return t.owner.Get()
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

func (t *Token) BalanceOf(addr farm.Address) (*big.Int, error) {
	bal, err := t.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return bal, nil
}

func (t *Token) Allowance(owner, spender farm.Address) (*big.Int, error) {
	allowance, err := t.allowances.Get(allowanceKey(owner, spender))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get allowance")
	}
	return allowance, nil
}

func (t *Token) IsMinter(addr farm.Address) (bool, error) {
	return t.minters.Get(addr)
}

// Approve sets the amount spender may move out of caller's balance.
func (t *Token) Approve(caller, spender farm.Address, amount *big.Int) error {
	if spender.IsZero() {
		return reverts.NewConfiguration("approve to zero address")
	}
	if amount.Sign() < 0 {
		return reverts.NewPrecondition("negative allowance")
	}
	return t.allowances.Set(allowanceKey(caller, spender), new(big.Int).Set(amount))
}

// Transfer moves amount from caller to to.
func (t *Token) Transfer(caller, to farm.Address, amount *big.Int) error {
	return t.move(caller, to, amount)
}

// TransferFrom moves amount from from to to, spending caller's allowance unless caller is from.
func (t *Token) TransferFrom(caller, from, to farm.Address, amount *big.Int) error {
	if caller != from {
		key := allowanceKey(from, caller)
		allowance, err := t.allowances.Get(key)
		if err != nil {
			return errors.Wrap(err, "failed to get allowance")
		}
		if allowance.Cmp(amount) < 0 {
			logger.Debug("insufficient allowance", "token", t.addr, "from", from, "spender", caller, "amount", amount)
			return reverts.NewPrecondition("insufficient allowance")
		}
		if err := t.allowances.Set(key, allowance.Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return t.move(from, to, amount)
}

func (t *Token) move(from, to farm.Address, amount *big.Int) error {
	if to.IsZero() {
		return reverts.NewConfiguration("transfer to zero address")
	}
	if amount.Sign() < 0 {
		return reverts.NewPrecondition("negative amount")
	}

	fromBal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		logger.Debug("insufficient balance", "token", t.addr, "from", from, "balance", fromBal, "amount", amount)
		return reverts.NewPrecondition("insufficient balance")
	}
	if err := t.balances.Set(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}

	toBal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	sum, err := add256(toBal, amount)
	if err != nil {
		return err
	}
	return t.balances.Set(to, sum)
}

// Mint creates amount new tokens for to. Only minters may call it.
func (t *Token) Mint(caller, to farm.Address, amount *big.Int) error {
	ok, err := t.minters.Get(caller)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("mint rejected", "token", t.addr, "caller", caller)
		return reverts.NewAuthorization("caller is not a minter")
	}
	if to.IsZero() {
		return reverts.NewConfiguration("mint to zero address")
	}
	if amount.Sign() < 0 {
		return reverts.NewPrecondition("negative amount")
	}

	supply, err := t.totalSupply.Get()
	if err != nil {
		return err
	}
	supply, err = add256(supply, amount)
	if err != nil {
		return err
	}
	t.totalSupply.Set(supply)

	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	// bal <= supply, cannot overflow once supply did not
	return t.balances.Set(to, bal.Add(bal, amount))
}

// SetMinter grants or revokes mint capability. Owner only.
func (t *Token) SetMinter(caller, minter farm.Address, enabled bool) error {
	owner, err := t.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner {
		return reverts.NewAuthorization("caller is not the token owner")
	}
	if minter.IsZero() {
		return reverts.NewConfiguration("minter is zero address")
	}
	if !enabled {
		t.minters.Delete(minter)
		return nil
	}
	return t.minters.Set(minter, true)
}

// add256 adds two amounts, rejecting results that do not fit in 256 bits.
func add256(a, b *big.Int) (*big.Int, error) {
	x, overflow := uint256.FromBig(a)
	if overflow {
		return nil, reverts.NewPrecondition("amount overflows uint256")
	}
	y, overflow := uint256.FromBig(b)
	if overflow {
		return nil, reverts.NewPrecondition("amount overflows uint256")
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, reverts.NewPrecondition("amount overflows uint256")
	}
	return sum.ToBig(), nil
}
