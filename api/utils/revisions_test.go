// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/blockexec/thor"
)

func TestParseRevision(t *testing.T) {
	id := thor.Blake2b([]byte("block"))
	tests := []struct {
		revision  string
		allowNext bool
		want      any
		wantErr   bool
	}{
		{"", false, revBest, false},
		{"best", false, revBest, false},
		{"next", true, revNext, false},
		{"next", false, nil, true},
		{id.String(), false, id, false},
		{id.String()[2:], false, id, false},
		{"0x" + id.String()[3:] + "z", false, nil, true},
		{"1234", false, uint32(1234), false},
		{"0x10", false, uint32(16), false},
		{"4294967296", false, nil, true},
		{"-1", false, nil, true},
		{"abc", false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.revision, func(t *testing.T) {
			rev, err := ParseRevision(tt.revision, tt.allowNext)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rev.val)
			assert.Equal(t, tt.want == revNext, rev.IsNext())
		})
	}
}
