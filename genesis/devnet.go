// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vechain/farm/farm"
)

var devAccounts atomic.Value

// DevAccounts returns the pre-funded accounts of the dev farm.
// The first one owns the farm, the last one is the vault of every pool.
func DevAccounts() []farm.Address {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]farm.Address)
	}

	var accs []farm.Address
	privKeys := []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
	}
	for _, str := range privKeys {
		pk, err := crypto.HexToECDSA(str)
		if err != nil {
			panic(err)
		}
		accs = append(accs, farm.Address(crypto.PubkeyToAddress(pk.PublicKey)))
	}
	devAccounts.Store(accs)
	return accs
}

func amount(v int64, decimals int) *math.HexOrDecimal256 {
	x := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return (*math.HexOrDecimal256)(x.Mul(x, big.NewInt(v)))
}

// NewDevnet returns the farm used by the dev mode: a reward token pool and an lp pool
// compounding into it, three years of farming with a two week decay interval.
func NewDevnet(launchTime uint64) *Genesis {
	accs := DevAccounts()
	owner, vault := accs[0], accs[len(accs)-1]

	var (
		rewardBalances, lpBalances     []Balance
		rewardAllowances, lpAllowances []Allowance
	)
	for _, acc := range accs {
		rewardBalances = append(rewardBalances, Balance{acc, amount(1_000_000, 18)})
		lpBalances = append(lpBalances, Balance{acc, amount(1_000_000, 18)})
		rewardAllowances = append(rewardAllowances, Allowance{acc, "RWD", amount(1_000_000, 18)})
		lpAllowances = append(lpAllowances, Allowance{acc, "LP", amount(1_000_000, 18)})
	}

	return &Genesis{
		Owner:      owner,
		LaunchTime: launchTime,
		Tokens: []Token{
			{Symbol: "RWD", Name: "Reward", Kind: KindReward, Balances: rewardBalances, Allowances: rewardAllowances},
			{Symbol: "sRWD", Name: "Escrowed Reward", Kind: KindEscrow},
			{Symbol: "LP", Name: "Reward LP", Kind: KindPool, Balances: lpBalances, Allowances: lpAllowances},
		},
		Registry: Registry{
			EmissionRate:  amount(10, 18),
			DecayInterval: 14 * 24 * 3600,
			FarmingEnd:    launchTime + 3*365*24*3600,
		},
		Pools: []Pool{
			{Token: "RWD", Weight: 200, Vault: &vault},
			{Token: "LP", Weight: 800, Vault: &vault, CrossCompound: true},
		},
	}
}
