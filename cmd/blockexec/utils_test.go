// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"flag"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/thor"
)

func newContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

func TestSelectGenesis(t *testing.T) {
	flags := []cli.Flag{genesisFlag}

	gene, err := selectGenesis(newContext(t, flags))
	require.NoError(t, err)
	assert.Equal(t, genesis.NewDevnet().ID(), gene.ID())

	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
launchTime: 1526400000
gasLimit: 20000000
coinbase: "0x0000000000000000000000000000000000000001"
accounts:
  - address: "0x0000000000000000000000000000000000000002"
    balance: "1000000"
`), 0o600))

	gene, err = selectGenesis(newContext(t, flags, "--genesis", path))
	require.NoError(t, err)
	assert.NotEqual(t, genesis.NewDevnet().ID(), gene.ID())

	repo, err := initChainRepository(gene, muxdb.NewMem())
	require.NoError(t, err)
	assert.Equal(t, uint64(20000000), repo.GenesisBlock().Header().GasLimit())
	assert.Equal(t, thor.BytesToAddress([]byte{1}), repo.GenesisBlock().Header().Beneficiary())

	_, err = selectGenesis(newContext(t, flags, "--genesis", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestParseBeneficiary(t *testing.T) {
	flags := []cli.Flag{beneficiaryFlag}

	addr, err := parseBeneficiary(newContext(t, flags))
	require.NoError(t, err)
	assert.Equal(t, genesis.DevAccounts()[0].Address, addr)

	addr, err = parseBeneficiary(newContext(t, flags, "--beneficiary", "0x0000000000000000000000000000000000000003"))
	require.NoError(t, err)
	assert.Equal(t, thor.BytesToAddress([]byte{3}), addr)

	_, err = parseBeneficiary(newContext(t, flags, "--beneficiary", "0x03"))
	assert.Error(t, err)
}

func TestOpenMainDB(t *testing.T) {
	flags := []cli.Flag{dataDirFlag, persistFlag}
	dataDir := t.TempDir()
	ctx := newContext(t, flags, "--data-dir", dataDir, "--persist")

	gene := genesis.NewDevnet()
	instanceDir, err := makeInstanceDir(ctx, gene)
	require.NoError(t, err)
	assert.Equal(t, dataDir, filepath.Dir(instanceDir))

	db, err := openMainDB(ctx, instanceDir)
	require.NoError(t, err)
	repo, err := initChainRepository(gene, db)
	require.NoError(t, err)
	assert.Equal(t, gene.ID(), repo.BestBlockSummary().Header.ID())
	require.NoError(t, db.Close())
	assert.DirExists(t, filepath.Join(instanceDir, "main.db"))

	// reopen
	db, err = openMainDB(ctx, instanceDir)
	require.NoError(t, err)
	defer db.Close()
	repo, err = initChainRepository(gene, db)
	require.NoError(t, err)
	assert.Equal(t, gene.ID(), repo.GenesisBlock().Header().ID())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want *big.Int
		ok   bool
	}{
		{"", new(big.Int), true},
		{"0", new(big.Int), true},
		{"1000", big.NewInt(1000), true},
		{"0x10", big.NewInt(16), true},
		{"-1", nil, false},
		{"abc", nil, false},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, 0, tt.want.Cmp(got), tt.in)
	}
}

func TestParsePayload(t *testing.T) {
	flags := []cli.Flag{dataFlag, valueFlag, gasPriceFlag}

	data, value, gasPrice, err := parsePayload(newContext(t, flags))
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, 0, value.Sign())
	assert.Nil(t, gasPrice)

	data, value, gasPrice, err = parsePayload(newContext(t, flags, "--data", "0x1234", "--value", "7", "--gas-price", "0x1"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34}, data)
	assert.Equal(t, big.NewInt(7), value)
	assert.Equal(t, big.NewInt(1), gasPrice)

	_, _, _, err = parsePayload(newContext(t, flags, "--data", "1234"))
	assert.Error(t, err)

	addr, err := parseOptionalAddress("")
	require.NoError(t, err)
	assert.Nil(t, addr)
	_, err = parseOptionalAddress("0x12")
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]uint64{"nonce": 1}))
	assert.Equal(t, "{\n  \"nonce\": 1\n}\n", buf.String())
}
