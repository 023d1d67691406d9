// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies why a call was rejected.
type Kind uint8

const (
	// Configuration rejects invalid construction parameters: zero addresses, bad numbers, wrong token identity.
	Configuration Kind = iota + 1
	// Authorization rejects a caller lacking owner, pool or vault privilege.
	Authorization
	// Precondition rejects a call whose state requirements do not hold yet.
	Precondition
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Authorization:
		return "authorization"
	case Precondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// ErrRevert is a whole-call rejection. The state is left untouched by the caller's checkpoint.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func NewConfiguration(message string) *ErrRevert { return New(Configuration, message) }
func NewAuthorization(message string) *ErrRevert { return New(Authorization, message) }
func NewPrecondition(message string) *ErrRevert  { return New(Precondition, message) }

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func IsRevertErr(err any) bool {
	_, ok := asRevert(err)
	return ok
}

func IsConfiguration(err error) bool { return isKind(err, Configuration) }
func IsAuthorization(err error) bool { return isKind(err, Authorization) }
func IsPrecondition(err error) bool  { return isKind(err, Precondition) }

func isKind(err error, kind Kind) bool {
	ve, ok := asRevert(err)
	return ok && ve.kind == kind
}

func asRevert(err any) (*ErrRevert, bool) {
	if err == nil {
		return nil, false
	}
	e, ok := err.(error)
	if !ok {
		return nil, false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) && ve != nil {
		return ve, true
	}
	return nil, false
}
