// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package deposit

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/farm"
)

var slotDeposits = farm.BytesToBytes32([]byte("deposits"))

// Service stores deposits by staker and index.
type Service struct {
	deposits *solidity.Mapping[farm.Bytes32, *Deposit]
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		deposits: solidity.NewMapping[farm.Bytes32, *Deposit](sctx, slotDeposits),
	}
}

func depositKey(staker farm.Address, id uint64) farm.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return farm.Blake2b(staker.Bytes(), b[:])
}

// Get returns the deposit, an empty one if it does not exist.
func (s *Service) Get(staker farm.Address, id uint64) (*Deposit, error) {
	d, err := s.deposits.Get(depositKey(staker, id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deposit")
	}
	return d.normalize(), nil
}

func (s *Service) Set(staker farm.Address, id uint64, d *Deposit) error {
	if d.IsEmpty() {
		s.deposits.Delete(depositKey(staker, id))
		return nil
	}
	if err := s.deposits.Set(depositKey(staker, id), d); err != nil {
		return errors.Wrap(err, "failed to set deposit")
	}
	return nil
}
