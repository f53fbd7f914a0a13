// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/blockexec/api"
	"github.com/vechain/blockexec/api/node"
	"github.com/vechain/blockexec/contract"
	"github.com/vechain/blockexec/health"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/metrics"
	"github.com/vechain/blockexec/packer"
	"github.com/vechain/blockexec/pruner"
	"github.com/vechain/blockexec/runtime"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/txpool"
	"github.com/vechain/blockexec/vm"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "blockexec",
		Usage:     "Block state execution node for test & dev",
		Copyright: "2018 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			persistFlag,
			beneficiaryFlag,
			gasLimitFlag,
			blockIntervalFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiCallGasLimitFlag,
			enableAPILogsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			disablePrunerFlag,
			pruneKeepFlag,
		},
		Action: soloAction,
		Commands: []cli.Command{
			{
				Name:  "call",
				Usage: "simulate a call against the pending block of a running node",
				Flags: []cli.Flag{
					apiURLFlag,
					toFlag,
					fromFlag,
					dataFlag,
					valueFlag,
					gasFlag,
					gasPriceFlag,
				},
				Action: callAction,
			},
			{
				Name:  "transact",
				Usage: "sign a tx and send it to a running node",
				Flags: []cli.Flag{
					apiURLFlag,
					keyFlag,
					toFlag,
					dataFlag,
					valueFlag,
					gasFlag,
					gasPriceFlag,
				},
				Action: transactAction,
			},
			{
				Name:  "inspect",
				Usage: "inspect an account or a block of a running node",
				Flags: []cli.Flag{
					apiURLFlag,
					addressFlag,
					storageKeyFlag,
					revisionFlag,
				},
				Action: inspectAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func soloAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { logger.Info("exited") }()

	initLogger(ctx.Int(verbosityFlag.Name), ctx.Bool(jsonLogsFlag.Name))
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	interval := ctx.Uint64(blockIntervalFlag.Name)
	if interval == 0 {
		return errors.New("block interval must be positive")
	}
	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	beneficiary, err := parseBeneficiary(ctx)
	if err != nil {
		return err
	}

	instanceDir := "Memory"
	if ctx.Bool(persistFlag.Name) {
		if instanceDir, err = makeInstanceDir(ctx, gene); err != nil {
			return err
		}
	}
	mainDB, err := openMainDB(ctx, instanceDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	repo, err := initChainRepository(gene, mainDB)
	if err != nil {
		return err
	}
	stater := state.NewStater(mainDB)

	txPool := txpool.New(repo, stater, txpool.DefaultOptions)
	defer func() { logger.Info("closing tx pool..."); txPool.Close() }()

	executor := runtime.New(vm.NewBuiltin())
	pk := packer.New(repo, mainDB, executor, beneficiary, ctx.Uint64(gasLimitFlag.Name))

	if !ctx.Bool(disablePrunerFlag.Name) {
		keep := uint32(ctx.Uint64(pruneKeepFlag.Name))
		pr := pruner.New(mainDB, repo, pk.Locker(), pruner.Options{KeepBlocks: keep, Interval: keep})
		defer func() { logger.Info("stopping pruner..."); pr.Stop() }()
	}

	blockInterval := time.Duration(interval) * time.Second
	healthStatus := health.New(blockInterval)
	healthStatus.NewBestBlock(repo.BestBlockSummary().Header.ID())

	handler := api.New(repo, stater, pk, contract.NewSimulator(executor), txPool, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		CallGasLimit:    ctx.Uint64(apiCallGasLimitFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		Health:          healthStatus,
		NodeInfo: node.Info{
			GenesisID:   gene.ID(),
			Name:        gene.Name(),
			Beneficiary: beneficiary,
			Version:     fullVersion(),
		},
	})
	apiURL, srvCloser, err := startAPIServer(ctx.String(apiAddrFlag.Name), handler)
	if err != nil {
		return err
	}
	defer func() { logger.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(gene, repo, beneficiary, instanceDir, apiURL)

	return newSolo(repo, txPool, pk, blockInterval, healthStatus).Run(exitSignal)
}
