// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the initial state of a farm from a yaml description.
package genesis

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/farm/builtin"
	"github.com/vechain/farm/builtin/registry"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/farm"
	"github.com/vechain/farm/log"
)

var logger = log.WithContext("pkg", "genesis")

// Token kinds.
const (
	KindReward = "reward"
	KindEscrow = "escrow"
	KindPool   = "pool"
)

// Genesis describes a farm: its tokens, registry and pools.
type Genesis struct {
	Owner      farm.Address `yaml:"owner"`
	LaunchTime uint64       `yaml:"launchTime"`
	Config     *farm.Config `yaml:"config"`
	Tokens     []Token      `yaml:"tokens"`
	Registry   Registry     `yaml:"registry"`
	Pools      []Pool       `yaml:"pools"`
}

// Token is a token deployed at genesis, referred to by its symbol.
type Token struct {
	Symbol     string      `yaml:"symbol"`
	Name       string      `yaml:"name"`
	Kind       string      `yaml:"kind"` // reward, escrow or pool
	Balances   []Balance   `yaml:"balances"`
	Allowances []Allowance `yaml:"allowances"`
}

// Balance is an initial balance.
type Balance struct {
	Address farm.Address          `yaml:"address"`
	Amount  *math.HexOrDecimal256 `yaml:"amount"`
}

// Allowance lets a pool pull tokens of the holder. The pool is named by its pool token symbol.
type Allowance struct {
	Holder farm.Address          `yaml:"holder"`
	Pool   string                `yaml:"pool"`
	Amount *math.HexOrDecimal256 `yaml:"amount"`
}

// Registry holds the emission parameters.
type Registry struct {
	EmissionRate  *math.HexOrDecimal256 `yaml:"emissionRate"`
	DecayInterval uint64                `yaml:"decayInterval"`
	InitTime      uint64                `yaml:"initTime"` // zero means launch time
	FarmingEnd    uint64                `yaml:"farmingEnd"`
}

// Pool is a core pool created at genesis.
type Pool struct {
	Token         string        `yaml:"token"`
	Weight        uint64        `yaml:"weight"`
	InitTime      uint64        `yaml:"initTime"` // zero means launch time
	Vault         *farm.Address `yaml:"vault"`
	CrossCompound bool          `yaml:"crossCompound"`
}

// Result maps the symbols of the genesis to the deployed addresses.
type Result struct {
	Tokens map[string]farm.Address
	Pools  map[string]farm.Address
}

// Load reads a genesis from a yaml file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis")
	}
	return Parse(data)
}

// Parse decodes a yaml genesis.
func Parse(data []byte) (*Genesis, error) {
	var gen Genesis
	if err := yaml.Unmarshal(data, &gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	return &gen, nil
}

// Validate checks the description is complete and consistent.
func (g *Genesis) Validate() error {
	if g.Owner.IsZero() {
		return reverts.NewConfiguration("owner must be set")
	}
	if g.LaunchTime == 0 {
		return reverts.NewConfiguration("launch time must be set")
	}

	kinds := make(map[string]string, len(g.Tokens))
	counts := make(map[string]int)
	for _, t := range g.Tokens {
		if t.Symbol == "" {
			return reverts.NewConfiguration("token symbol must be set")
		}
		if _, ok := kinds[t.Symbol]; ok {
			return reverts.Newf(reverts.Configuration, "duplicate token %s", t.Symbol)
		}
		switch t.Kind {
		case KindReward, KindEscrow, KindPool:
		default:
			return reverts.Newf(reverts.Configuration, "%s: unknown token kind %q", t.Symbol, t.Kind)
		}
		kinds[t.Symbol] = t.Kind
		counts[t.Kind]++

		for _, b := range t.Balances {
			if b.Address.IsZero() {
				return reverts.Newf(reverts.Configuration, "%s: balance of zero address", t.Symbol)
			}
			if b.Amount == nil || (*big.Int)(b.Amount).Sign() < 1 {
				return reverts.Newf(reverts.Configuration, "%s: balance of %v must be a positive integer", t.Symbol, b.Address)
			}
		}
	}
	if counts[KindReward] != 1 || counts[KindEscrow] != 1 {
		return reverts.NewConfiguration("exactly one reward and one escrow token required")
	}

	r := g.Registry
	if r.EmissionRate == nil || (*big.Int)(r.EmissionRate).Sign() < 1 {
		return reverts.NewConfiguration("emission rate must be positive")
	}
	if r.DecayInterval == 0 {
		return reverts.NewConfiguration("decay interval must be positive")
	}
	if r.FarmingEnd <= g.registryInitTime() {
		return reverts.NewConfiguration("farming end must be after init time")
	}

	pools := make(map[string]bool, len(g.Pools))
	for _, p := range g.Pools {
		if _, ok := kinds[p.Token]; !ok {
			return reverts.Newf(reverts.Configuration, "pool of unknown token %s", p.Token)
		}
		if pools[p.Token] {
			return reverts.Newf(reverts.Configuration, "duplicate pool of %s", p.Token)
		}
		pools[p.Token] = true
	}
	for _, t := range g.Tokens {
		for _, a := range t.Allowances {
			if !pools[a.Pool] {
				return reverts.Newf(reverts.Configuration, "%s: allowance for unknown pool %s", t.Symbol, a.Pool)
			}
			if a.Amount == nil || (*big.Int)(a.Amount).Sign() < 0 {
				return reverts.Newf(reverts.Configuration, "%s: allowance amount must be set", t.Symbol)
			}
		}
	}
	return nil
}

func (g *Genesis) registryInitTime() uint64 {
	if g.Registry.InitTime != 0 {
		return g.Registry.InitTime
	}
	return g.LaunchTime
}

func tokenUID(t *Token) farm.Bytes32 {
	switch t.Kind {
	case KindReward:
		return farm.RewardTokenUID
	case KindEscrow:
		return farm.EscrowTokenUID
	default:
		return farm.Blake2b([]byte("farm-pool-token"), []byte(t.Symbol))
	}
}

// Build deploys the tokens, initializes the registry and creates the pools described by g,
// all in one call. The owner of the genesis owns every token and every pool.
func (g *Genesis) Build(f *builtin.Farm) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	res := &Result{
		Tokens: make(map[string]farm.Address),
		Pools:  make(map[string]farm.Address),
	}

	err := f.Call(func() error {
		var (
			tokens         = make(map[string]*token.Token, len(g.Tokens))
			reward, escrow *token.Token
		)
		for i := range g.Tokens {
			t := &g.Tokens[i]
			deployed, err := f.DeployToken(g.Owner, tokenUID(t), t.Name, t.Symbol)
			if err != nil {
				return errors.Wrapf(err, "deploy %s", t.Symbol)
			}
			if err := deployed.SetMinter(g.Owner, g.Owner, true); err != nil {
				return err
			}
			for _, b := range t.Balances {
				if err := deployed.Mint(g.Owner, b.Address, (*big.Int)(b.Amount)); err != nil {
					return errors.Wrapf(err, "%s: balance of %v", t.Symbol, b.Address)
				}
			}
			if err := deployed.SetMinter(g.Owner, g.Owner, false); err != nil {
				return err
			}
			switch t.Kind {
			case KindReward:
				reward = deployed
			case KindEscrow:
				escrow = deployed
			}
			tokens[t.Symbol] = deployed
			res.Tokens[t.Symbol] = deployed.Address()
		}

		if err := f.Initialize(&registry.Params{
			Owner:         g.Owner,
			RewardToken:   reward.Address(),
			EscrowToken:   escrow.Address(),
			EmissionRate:  (*big.Int)(g.Registry.EmissionRate),
			DecayInterval: g.Registry.DecayInterval,
			InitTime:      g.registryInitTime(),
			FarmingEnd:    g.Registry.FarmingEnd,
		}); err != nil {
			return err
		}
		if err := reward.SetMinter(g.Owner, builtin.RegistryAddress, true); err != nil {
			return err
		}

		for _, p := range g.Pools {
			opts := builtin.PoolOptions{
				InitTime:      p.InitTime,
				CrossCompound: p.CrossCompound,
			}
			if opts.InitTime == 0 {
				opts.InitTime = g.LaunchTime
			}
			if p.Vault != nil {
				opts.Vault = *p.Vault
			}
			created, err := f.CreatePool(g.Owner, tokens[p.Token].Address(), p.Weight, opts)
			if err != nil {
				return errors.Wrapf(err, "pool of %s", p.Token)
			}
			if err := escrow.SetMinter(g.Owner, created.Address(), true); err != nil {
				return err
			}
			res.Pools[p.Token] = created.Address()
		}

		for _, t := range g.Tokens {
			for _, a := range t.Allowances {
				if err := tokens[t.Symbol].Approve(a.Holder, res.Pools[a.Pool], (*big.Int)(a.Amount)); err != nil {
					return errors.Wrapf(err, "%s: allowance of %v", t.Symbol, a.Holder)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("genesis built", "tokens", len(res.Tokens), "pools", len(res.Pools))
	return res, nil
}
