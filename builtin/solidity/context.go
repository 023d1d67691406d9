// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/state"
)

// Context binds the storage of a native contract: its address within the shared state.
type Context struct {
	address farm.Address
	state   *state.State
}

func NewContext(address farm.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() farm.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}
