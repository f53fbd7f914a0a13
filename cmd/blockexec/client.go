// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/thorclient"
)

func callAction(ctx *cli.Context) error {
	to, err := parseOptionalAddress(ctx.String(toFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "to")
	}
	from, err := parseOptionalAddress(ctx.String(fromFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "from")
	}
	data, value, gasPrice, err := parsePayload(ctx)
	if err != nil {
		return err
	}

	calldata := thorclient.CallData(from, value, data, ctx.Uint64(gasFlag.Name))
	if gasPrice != nil {
		calldata.GasPrice = (*math.HexOrDecimal256)(gasPrice)
	}
	res, err := thorclient.New(ctx.String(apiURLFlag.Name)).Call(to, calldata)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, res)
}

func transactAction(ctx *cli.Context) error {
	key, err := cry.ParseSigner(ctx.String(keyFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "key")
	}
	to, err := parseOptionalAddress(ctx.String(toFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "to")
	}
	data, value, gasPrice, err := parsePayload(ctx)
	if err != nil {
		return err
	}
	if gasPrice == nil {
		gasPrice = thor.DefaultGasPrice
	}

	trx, err := thorclient.New(ctx.String(apiURLFlag.Name)).
		Transact(key, to, value, data, ctx.Uint64(gasFlag.Name), gasPrice)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, map[string]any{
		"id":     trx.ID(),
		"origin": key.Address(),
		"nonce":  trx.Nonce(),
	})
}

func inspectAction(ctx *cli.Context) error {
	client := thorclient.New(ctx.String(apiURLFlag.Name))
	revision := ctx.String(revisionFlag.Name)

	addr, err := parseOptionalAddress(ctx.String(addressFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "address")
	}
	if addr == nil {
		blk, err := client.ExpandedBlock(revision)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, blk)
	}

	account, err := client.Account(addr, thorclient.Revision(revision))
	if err != nil {
		return err
	}
	out := map[string]any{
		"address": addr,
		"balance": account.Balance,
		"nonce":   account.Nonce,
	}
	if account.HasCode {
		code, err := client.AccountCode(addr, thorclient.Revision(revision))
		if err != nil {
			return err
		}
		out["code"] = code.Code
	}
	if k := ctx.String(storageKeyFlag.Name); k != "" {
		key, err := thor.ParseBytes32(k)
		if err != nil {
			return errors.WithMessage(err, "storage key")
		}
		value, err := client.Storage(addr, &key, thorclient.Revision(revision))
		if err != nil {
			return err
		}
		out["storage"] = map[string]string{key.String(): value.Value}
	}
	return printJSON(os.Stdout, out)
}

func parseOptionalAddress(s string) (*thor.Address, error) {
	if s == "" {
		return nil, nil
	}
	addr, err := thor.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// parsePayload parses the data, value and gas price flags. The gas price is nil if not set.
func parsePayload(ctx *cli.Context) (data []byte, value *big.Int, gasPrice *big.Int, err error) {
	if s := ctx.String(dataFlag.Name); s != "" {
		if data, err = hexutil.Decode(s); err != nil {
			return nil, nil, nil, errors.WithMessage(err, "data")
		}
	}
	if value, err = parseAmount(ctx.String(valueFlag.Name)); err != nil {
		return nil, nil, nil, errors.WithMessage(err, "value")
	}
	if s := ctx.String(gasPriceFlag.Name); s != "" {
		if gasPrice, err = parseAmount(s); err != nil {
			return nil, nil, nil, errors.WithMessage(err, "gas price")
		}
	}
	return
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
