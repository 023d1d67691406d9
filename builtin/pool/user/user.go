// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package user

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/farm"
)

var slotUsers = farm.BytesToBytes32([]byte("users"))

// User aggregates the deposits of a staker in one pool.
type User struct {
	TokenAmount     *big.Int // sum of live deposit amounts
	TotalWeight     *big.Int // sum of live deposit weights
	SubYieldRewards *big.Int // yield checkpoint, TotalWeight * yield accumulator at the last touch
	SubVaultRewards *big.Int // vault checkpoint, TotalWeight * vault accumulator at the last touch
	DepositsCount   uint64   // deposits ever created, withdrawn ones included
}

// IsEmpty returns whether the user holds no weight.
func (u *User) IsEmpty() bool {
	return u.TotalWeight.Sign() == 0
}

func (u *User) normalize() *User {
	for _, v := range []**big.Int{&u.TokenAmount, &u.TotalWeight, &u.SubYieldRewards, &u.SubVaultRewards} {
		if *v == nil {
			*v = new(big.Int)
		}
	}
	return u
}

// Service stores users by staker address.
type Service struct {
	users *solidity.Mapping[farm.Address, *User]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		users: solidity.NewMapping[farm.Address, *User](sctx, slotUsers),
	}
}

// Get returns the user record, a zeroed one for unknown stakers.
func (s *Service) Get(staker farm.Address) (*User, error) {
	u, err := s.users.Get(staker)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return u.normalize(), nil
}

func (s *Service) Set(staker farm.Address, u *User) error {
	if err := s.users.Set(staker, u); err != nil {
		return errors.Wrap(err, "failed to set user")
	}
	return nil
}
