// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"

	"github.com/vechain/farm/api/utils"
	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/builtin/registry"
)

type Registry struct {
	backend *utils.Serializer
}

func New(backend *utils.Serializer) *Registry {
	return &Registry{backend}
}

func (r *Registry) view(f *builtin.Farm) (*Summary, error) {
	reg := f.Registry()
	var v Summary
	owner, err := reg.Owner()
	if err != nil {
		return nil, err
	}
	reward, err := reg.RewardToken()
	if err != nil {
		return nil, err
	}
	escrow, err := reg.EscrowToken()
	if err != nil {
		return nil, err
	}
	rate, err := reg.EmissionRate()
	if err != nil {
		return nil, err
	}
	v.Owner, v.RewardToken, v.EscrowToken = &owner, &reward, &escrow
	v.EmissionRate = (*math.HexOrDecimal256)(rate)

	if v.TotalWeight, err = reg.TotalWeight(); err != nil {
		return nil, err
	}
	if v.DecayInterval, err = reg.DecayInterval(); err != nil {
		return nil, err
	}
	if v.LastRatioUpdate, err = reg.LastRatioUpdate(); err != nil {
		return nil, err
	}
	if v.FarmingEnd, err = reg.FarmingEnd(); err != nil {
		return nil, err
	}
	if v.ShouldUpdateRatio, err = reg.ShouldUpdateRatio(); err != nil {
		return nil, err
	}

	pools, err := reg.Pools()
	if err != nil {
		return nil, err
	}
	v.Pools = make([]*registry.PoolData, 0, len(pools))
	for _, addr := range pools {
		p, err := f.Pool(addr)
		if err != nil {
			return nil, err
		}
		cfg, err := p.Config()
		if err != nil {
			return nil, err
		}
		data, err := reg.PoolData(cfg.PoolToken)
		if err != nil {
			return nil, err
		}
		v.Pools = append(v.Pools, data)
	}
	return &v, nil
}

func (r *Registry) handleGetRegistry(w http.ResponseWriter, _ *http.Request) error {
	var v *Summary
	if err := r.backend.View(func(f *builtin.Farm) (err error) {
		v, err = r.view(f)
		return
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, v)
}

func (r *Registry) handleDecay(w http.ResponseWriter, _ *http.Request) error {
	var d Decay
	if err := r.backend.Call(func(f *builtin.Farm) error {
		reg := f.Registry()
		if err := reg.UpdateEmissionRate(); err != nil {
			return err
		}
		rate, err := reg.EmissionRate()
		if err != nil {
			return err
		}
		d.EmissionRate = (*math.HexOrDecimal256)(rate)
		d.LastRatioUpdate, err = reg.LastRatioUpdate()
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &d)
}

func (r *Registry) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(r.handleGetRegistry))
	sub.Path("/decay").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(r.handleDecay))
}
