// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/co"
	"github.com/vechain/blockexec/genesis"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
)

func initLogger(lvl int, jsonLogs bool) *slog.LevelVar {
	logLevel := log.FromLegacyLevel(lvl)
	output := io.Writer(os.Stdout)
	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"

	level := &slog.LevelVar{}
	level.Set(logLevel)

	var handler slog.Handler
	if jsonLogs {
		handler = log.JSONHandlerWithLevel(output, level)
	} else {
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return level
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "org.vechain.blockexec")
		}
		return filepath.Join(home, ".org.vechain.blockexec")
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	custom, err := genesis.LoadCustomGenesis(path)
	if err != nil {
		return nil, err
	}
	return genesis.NewCustomNet(custom)
}

func parseBeneficiary(ctx *cli.Context) (thor.Address, error) {
	value := ctx.String(beneficiaryFlag.Name)
	if value == "" {
		return genesis.DevAccounts()[0].Address, nil
	}
	addr, err := thor.ParseAddress(value)
	if err != nil {
		return thor.Address{}, errors.Wrap(err, "invalid beneficiary")
	}
	return addr, nil
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}

	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create instance dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

// openMainDB opens the persistent db in the instance dir, or a memory db if not persisted.
func openMainDB(ctx *cli.Context, instanceDir string) (*muxdb.MuxDB, error) {
	if !ctx.Bool(persistFlag.Name) {
		return muxdb.NewMem(), nil
	}
	dir := filepath.Join(instanceDir, "main.db")
	db, err := muxdb.Open(dir, &muxdb.Options{
		TrieNodeCacheSizeMB:    256,
		OpenFilesCacheCapacity: 500,
		ReadCacheMB:            256,
		WriteBufferMB:          128,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func initChainRepository(gene *genesis.Genesis, db *muxdb.MuxDB) (*chain.Repository, error) {
	genesisBlock, err := gene.Build(state.NewStater(db))
	if err != nil {
		return nil, errors.Wrap(err, "build genesis block")
	}
	repo, err := chain.NewRepository(db, genesisBlock)
	if err != nil {
		return nil, errors.Wrap(err, "initialize block chain")
	}
	return repo, nil
}

func startAPIServer(addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       10 * time.Second,
	}
	var goes co.Goes
	goes.Go(func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			logger.Error("API server stopped", "err", err)
		}
	})
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func printStartupMessage(
	gene *genesis.Genesis,
	repo *chain.Repository,
	beneficiary thor.Address,
	instanceDir string,
	apiURL string,
) {
	best := repo.BestBlockSummary().Header

	fmt.Printf(`Starting %v
    Network      [ %v %v ]
    Best block   [ %v #%v @%v ]
    Beneficiary  [ %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
`,
		"blockexec "+fullVersion(),
		gene.ID(), gene.Name(),
		best.ID(), best.Number(), time.Unix(int64(best.Timestamp()), 0),
		beneficiary,
		instanceDir,
		apiURL)
}
