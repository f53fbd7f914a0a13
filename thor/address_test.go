// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	want := MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")

	tests := []struct {
		name       string
		in         any
		allowBlank bool
		want       *Address
		wantErr    bool
	}{
		{"address", want, false, &want, false},
		{"pointer", &want, false, &want, false},
		{"common", common.Address(want), false, &want, false},
		{"bytes", want.Bytes(), false, &want, false},
		{"hex with prefix", want.String(), false, &want, false},
		{"hex without prefix", want.String()[2:], false, &want, false},
		{"short bytes", []byte{1, 2, 3}, false, nil, true},
		{"bad hex", "0xzz67d83b7b8d80addcb281a71d54fc7b3364ffed", false, nil, true},
		{"unsupported", 42, true, nil, true},
		{"nil blank allowed", nil, true, nil, false},
		{"empty string blank allowed", "", true, nil, false},
		{"empty bytes blank allowed", []byte{}, true, nil, false},
		{"nil pointer blank allowed", (*Address)(nil), true, nil, false},
		{"blank not allowed", "", false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAddress(tt.in, tt.allowBlank)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAddressCopies(t *testing.T) {
	src := MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	got, err := NormalizeAddress(&src, false)
	require.NoError(t, err)
	got[0] = 0
	assert.Equal(t, byte(0x75), src[0])
}

func TestGasLimitQualify(t *testing.T) {
	parent := InitialGasLimit
	step := parent / GasLimitBoundDivisor

	assert.Equal(t, parent, GasLimit(0).Qualify(parent))
	assert.Equal(t, parent+step, GasLimit(parent*2).Qualify(parent))
	assert.Equal(t, parent-step, GasLimit(MinGasLimit).Qualify(parent))
	assert.Equal(t, parent+1, GasLimit(parent+1).Qualify(parent))
	assert.True(t, GasLimit(parent+step).IsValid(parent))
	assert.False(t, GasLimit(parent+step+1).IsValid(parent))
	assert.False(t, GasLimit(MinGasLimit-1).IsValid(parent))
}
