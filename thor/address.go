// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	// AddressLength length of address in bytes.
	AddressLength = common.AddressLength
)

// Address address of account.
type Address common.Address

var (
	_ json.Marshaler   = (*Address)(nil)
	_ json.Unmarshaler = (*Address)(nil)
)

// String implements the stringer interface
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns byte slice form of address.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns if address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalJSON implements json.Marshaler.
func (a *Address) MarshalJSON() ([]byte, error) {
	if a == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return err
	}
	parsed, err := ParseAddress(hex)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress convert string presented address into Address type.
func ParseAddress(s string) (Address, error) {
	if len(s) == AddressLength*2 {
	} else if len(s) == AddressLength*2+2 {
		if strings.ToLower(s[:2]) != "0x" {
			return Address{}, errors.New("invalid prefix")
		}
		s = s[2:]
	} else {
		return Address{}, errors.New("invalid length")
	}

	var addr Address
	_, err := hex.Decode(addr[:], []byte(s))
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}

// MustParseAddress convert string presented address into Address type, panic on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// BytesToAddress converts bytes slice into address.
// If b is larger than address legnth, b will be cropped (from the left).
// If b is smaller than address length, b will be extended (from the left).
func BytesToAddress(b []byte) Address {
	return Address(common.BytesToAddress(b))
}

// NormalizeAddress maps a flexible address representation to the canonical form.
//
// Accepted inputs are Address, *Address, a 20-byte slice, or a hex string with or
// without the 0x prefix. A blank input (nil, empty slice or empty string) yields
// nil, which is only accepted when allowBlank is set. It's used for recipients
// where blank means contract creation.
func NormalizeAddress(v any, allowBlank bool) (*Address, error) {
	var blank bool
	switch x := v.(type) {
	case nil:
		blank = true
	case Address:
		return &x, nil
	case *Address:
		if x == nil {
			blank = true
			break
		}
		cpy := *x
		return &cpy, nil
	case common.Address:
		addr := Address(x)
		return &addr, nil
	case []byte:
		if len(x) == 0 {
			blank = true
			break
		}
		if len(x) != AddressLength {
			return nil, fmt.Errorf("invalid address length %d", len(x))
		}
		addr := BytesToAddress(x)
		return &addr, nil
	case string:
		if x == "" {
			blank = true
			break
		}
		addr, err := ParseAddress(x)
		if err != nil {
			return nil, errors.WithMessage(err, "address")
		}
		return &addr, nil
	default:
		return nil, fmt.Errorf("unsupported address type %T", v)
	}

	if blank && !allowBlank {
		return nil, errors.New("blank address not allowed")
	}
	return nil, nil
}
