// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package thor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarshalUnmarshall(t *testing.T) {
	originalHex := `"0x00000000000000000000000000000000000000000000000000006d6173746572"`

	var unmarshaledValue Bytes32

	err := unmarshaledValue.UnmarshalJSON([]byte(originalHex))
	assert.NoError(t, err)

	err = json.Unmarshal([]byte(originalHex), &unmarshaledValue)
	assert.NoError(t, err)

	directMarshallJSON, err := unmarshaledValue.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, originalHex, string(directMarshallJSON))

	marshalPtr, err := json.Marshal(&unmarshaledValue)
	assert.NoError(t, err)
	assert.Equal(t, originalHex, string(marshalPtr))
}

func TestParseBytes32(t *testing.T) {
	_, err := ParseBytes32("0x1234")
	assert.EqualError(t, err, "invalid length")

	_, err = ParseBytes32("1x" + strings.Repeat("0", 64))
	assert.EqualError(t, err, "invalid prefix")

	b, err := ParseBytes32("0x000000000000000000000000000000000000000000000000000000000000ffff")
	assert.NoError(t, err)
	assert.Equal(t, BytesToBytes32([]byte{0xff, 0xff}), b)
	assert.Equal(t, -1, Bytes32{}.Compare(b))
}

func TestHashes(t *testing.T) {
	// well known digests of the empty input
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		Keccak256().String())
	assert.Equal(t,
		"0x0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		Blake2b([]byte{}).String())
	assert.Equal(t, Blake2b([]byte("ab")), Blake2b([]byte("a"), []byte("b")))
	assert.Equal(t, Keccak256([]byte("ab")), Keccak256([]byte("a"), []byte("b")))
}
