// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/builtin/pool"
	"github.com/vechain/farm/farm"
)

type Pools struct {
	backend *utils.Serializer
	devMode bool
}

// New creates the pools api. Writes are mounted in dev mode only, the caller is then
// taken from the request body.
func New(backend *utils.Serializer, devMode bool) *Pools {
	return &Pools{backend, devMode}
}

func parseAddress(req *http.Request, name string) (farm.Address, error) {
	addr, err := farm.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return farm.Address{}, utils.BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}

func lookup(f *builtin.Farm, poolToken farm.Address) (*pool.Pool, error) {
	addr, err := f.Registry().PoolByToken(poolToken)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, utils.HTTPError(errors.Errorf("no pool for token %v", poolToken), http.StatusNotFound)
	}
	return f.Pool(addr)
}

func (p *Pools) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	token, err := parseAddress(req, "token")
	if err != nil {
		return err
	}
	var v *Pool
	if err := p.backend.View(func(f *builtin.Farm) error {
		pl, err := lookup(f, token)
		if err != nil {
			return err
		}
		v, err = convertPool(pl)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, v)
}

func (p *Pools) handleGetStaker(w http.ResponseWriter, req *http.Request) error {
	token, err := parseAddress(req, "token")
	if err != nil {
		return err
	}
	staker, err := parseAddress(req, "address")
	if err != nil {
		return err
	}
	var v *Staker
	if err := p.backend.View(func(f *builtin.Farm) error {
		pl, err := lookup(f, token)
		if err != nil {
			return err
		}
		v, err = convertStaker(pl, staker)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, v)
}

// call runs op on the pool of the request and responds with the caller's staker view.
func (p *Pools) call(w http.ResponseWriter, req *http.Request, body any, caller func() *farm.Address, op func(pl *pool.Pool, caller farm.Address) error) error {
	token, err := parseAddress(req, "token")
	if err != nil {
		return err
	}
	if err := utils.ParseJSON(req.Body, body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	c := caller()
	if c == nil {
		return utils.BadRequest(errors.New("body: caller required"))
	}

	var v *Staker
	if err := p.backend.Call(func(f *builtin.Farm) error {
		pl, err := lookup(f, token)
		if err != nil {
			return err
		}
		if err := op(pl, *c); err != nil {
			return err
		}
		v, err = convertStaker(pl, *c)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, v)
}

func (p *Pools) handleStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	return p.call(w, req, &body, func() *farm.Address { return body.Caller }, func(pl *pool.Pool, caller farm.Address) error {
		if body.Amount == nil {
			return utils.BadRequest(errors.New("body: amount required"))
		}
		return pl.Stake(caller, (*big.Int)(body.Amount), body.LockUntil, body.UseEscrow)
	})
}

func (p *Pools) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	var body UnstakeRequest
	return p.call(w, req, &body, func() *farm.Address { return body.Caller }, func(pl *pool.Pool, caller farm.Address) error {
		if body.Amount == nil {
			return utils.BadRequest(errors.New("body: amount required"))
		}
		return pl.Unstake(caller, body.DepositID, (*big.Int)(body.Amount), body.UseEscrow)
	})
}

func (p *Pools) handleProcessRewards(w http.ResponseWriter, req *http.Request) error {
	var body RewardsRequest
	return p.call(w, req, &body, func() *farm.Address { return body.Caller }, func(pl *pool.Pool, caller farm.Address) error {
		return pl.ProcessRewards(caller, body.UseEscrow)
	})
}

func (p *Pools) handleVaultRewards(w http.ResponseWriter, req *http.Request) error {
	var body VaultRewardsRequest
	return p.call(w, req, &body, func() *farm.Address { return body.Caller }, func(pl *pool.Pool, caller farm.Address) error {
		if body.Amount == nil {
			return utils.BadRequest(errors.New("body: amount required"))
		}
		return pl.ReceiveVaultRewards(caller, (*big.Int)(body.Amount))
	})
}

func (p *Pools) handleSync(w http.ResponseWriter, req *http.Request) error {
	token, err := parseAddress(req, "token")
	if err != nil {
		return err
	}
	var v *Pool
	if err := p.backend.Call(func(f *builtin.Farm) error {
		pl, err := lookup(f, token)
		if err != nil {
			return err
		}
		if err := pl.Sync(); err != nil {
			return err
		}
		v, err = convertPool(pl)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, v)
}

func (p *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{token}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(p.handleGetPool))
	sub.Path("/{token}/stakers/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(p.handleGetStaker))
	sub.Path("/{token}/sync").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(p.handleSync))

	if !p.devMode {
		return
	}
	sub.Path("/{token}/stake").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(p.handleStake))
	sub.Path("/{token}/unstake").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(p.handleUnstake))
	sub.Path("/{token}/rewards").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(p.handleProcessRewards))
	sub.Path("/{token}/vault-rewards").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(p.handleVaultRewards))
}
