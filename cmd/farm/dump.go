// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"io"
	"math/big"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/builtin/pool"
	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/clock"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/state"
)

type registryDump struct {
	Owner           farm.Address
	RewardToken     farm.Address
	EscrowToken     farm.Address
	EmissionRate    *big.Int
	TotalWeight     uint64
	DecayInterval   uint64
	LastRatioUpdate uint64
	FarmingEnd      uint64
	Pools           []*registry.PoolData
}

type poolDump struct {
	Address               farm.Address
	Config                *pool.Config
	Weight                uint64
	YieldRewardsPerWeight *big.Int
	VaultRewardsPerWeight *big.Int
	UsersLockingWeight    *big.Int
	PoolTokenReserve      *big.Int
	LastYieldDistribution uint64
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func dumpAction(ctx *cli.Context) error {
	initLogger(ctx)

	db, err := openDB(ctx.String(dataDirFlag.Name))
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := builtin.New(state.New(db), clock.System{})
	if err != nil {
		return err
	}
	return dump(os.Stdout, f)
}

func dump(w io.Writer, f *builtin.Farm) error {
	reg := f.Registry()
	var (
		r   registryDump
		err error
	)
	if r.Owner, err = reg.Owner(); err != nil {
		return err
	}
	if r.Owner.IsZero() {
		return errors.New("no farm initialized in the data dir")
	}
	if r.RewardToken, err = reg.RewardToken(); err != nil {
		return err
	}
	if r.EscrowToken, err = reg.EscrowToken(); err != nil {
		return err
	}
	if r.EmissionRate, err = reg.EmissionRate(); err != nil {
		return err
	}
	if r.TotalWeight, err = reg.TotalWeight(); err != nil {
		return err
	}
	if r.DecayInterval, err = reg.DecayInterval(); err != nil {
		return err
	}
	if r.LastRatioUpdate, err = reg.LastRatioUpdate(); err != nil {
		return err
	}
	if r.FarmingEnd, err = reg.FarmingEnd(); err != nil {
		return err
	}

	addrs, err := f.Pools()
	if err != nil {
		return err
	}
	pools := make([]*poolDump, 0, len(addrs))
	for _, addr := range addrs {
		p, err := f.Pool(addr)
		if err != nil {
			return err
		}
		d, err := dumpPool(p)
		if err != nil {
			return errors.Wrapf(err, "pool %v", addr)
		}
		if exists, err := reg.PoolExists(addr); err != nil {
			return err
		} else if exists {
			data, err := reg.PoolData(d.Config.PoolToken)
			if err != nil {
				return err
			}
			r.Pools = append(r.Pools, data)
		}
		pools = append(pools, d)
	}

	dumpConfig.Fdump(w, &r)
	for _, p := range pools {
		dumpConfig.Fdump(w, p)
	}
	return nil
}

func dumpPool(p *pool.Pool) (*poolDump, error) {
	d := &poolDump{Address: p.Address()}
	var err error
	if d.Config, err = p.Config(); err != nil {
		return nil, err
	}
	if d.Weight, err = p.Weight(); err != nil {
		return nil, err
	}
	if d.YieldRewardsPerWeight, err = p.YieldRewardsPerWeight(); err != nil {
		return nil, err
	}
	if d.VaultRewardsPerWeight, err = p.VaultRewardsPerWeight(); err != nil {
		return nil, err
	}
	if d.UsersLockingWeight, err = p.UsersLockingWeight(); err != nil {
		return nil, err
	}
	if d.PoolTokenReserve, err = p.PoolTokenReserve(); err != nil {
		return nil, err
	}
	if d.LastYieldDistribution, err = p.LastYieldDistribution(); err != nil {
		return nil, err
	}
	return d, nil
}
