// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for block-chain databases",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a YAML (or JSON) genesis file, the dev network is used if not set",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "blockchain data storage option, if set data will be saved to disk",
	}
	beneficiaryFlag = cli.StringFlag{
		Name:  "beneficiary",
		Usage: "address for block fees, the first dev account by default",
	}
	gasLimitFlag = cli.Uint64Flag{
		Name:  "gas-limit",
		Usage: "block gas limit to approach, 0 to follow the parent block",
	}
	blockIntervalFlag = cli.Uint64Flag{
		Name:  "block-interval",
		Value: 10,
		Usage: "block packing interval in seconds",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiCallGasLimitFlag = cli.Uint64Flag{
		Name:  "api-call-gas-limit",
		Value: 10_000_000,
		Usage: "limit contract call gas",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection, served at /metrics of the API",
	}
	disablePrunerFlag = cli.BoolFlag{
		Name:  "disable-pruner",
		Usage: "disable state pruner to keep all history",
	}
	pruneKeepFlag = cli.Uint64Flag{
		Name:  "prune-keep",
		Value: 128,
		Usage: "number of recent blocks whose states are retained by the pruner",
	}

	// client flags
	apiURLFlag = cli.StringFlag{
		Name:  "api-url",
		Value: "http://localhost:8669",
		Usage: "API endpoint of the node",
	}
	toFlag = cli.StringFlag{
		Name:  "to",
		Usage: "recipient address, blank for contract creation",
	}
	fromFlag = cli.StringFlag{
		Name:  "from",
		Usage: "caller address",
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "hex encoded private key to sign the tx",
	}
	dataFlag = cli.StringFlag{
		Name:  "data",
		Usage: "hex encoded call data",
	}
	valueFlag = cli.StringFlag{
		Name:  "value",
		Value: "0",
		Usage: "amount to transfer, decimal or 0x prefixed hex",
	}
	gasFlag = cli.Uint64Flag{
		Name:  "gas",
		Value: 100_000,
		Usage: "gas provision, 0 for the node's call gas limit when calling",
	}
	gasPriceFlag = cli.StringFlag{
		Name:  "gas-price",
		Usage: "gas price, decimal or 0x prefixed hex",
	}
	addressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "account to inspect, the best block is inspected if not set",
	}
	storageKeyFlag = cli.StringFlag{
		Name:  "storage-key",
		Usage: "storage slot of the account to inspect",
	}
	revisionFlag = cli.StringFlag{
		Name:  "revision",
		Value: "best",
		Usage: "block id or number to inspect",
	}
)
