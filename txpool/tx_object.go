// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package txpool

import (
	"bytes"
	"math/big"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

type txObject struct {
	*tx.Transaction
	origin thor.Address

	timeAdded      int64
	localSubmitted bool // tx is submitted locally on this node, or relayed from a peer.

	executable bool // don't touch this value, will be updated by the pool
}

func resolveTx(trx *tx.Transaction, localSubmitted bool) (*txObject, error) {
	if trx.IsStamped() {
		return nil, errors.New("sender stamped")
	}
	origin, err := trx.Sender()
	if err != nil {
		return nil, err
	}
	intrinsicGas, err := trx.IntrinsicGas()
	if err != nil {
		return nil, err
	}
	if trx.Gas() < intrinsicGas {
		return nil, errors.New("intrinsic gas exceeds provided gas")
	}
	return &txObject{
		Transaction:    trx,
		origin:         origin,
		timeAdded:      time.Now().UnixNano(),
		localSubmitted: localSubmitted,
	}, nil
}

func (o *txObject) Origin() thor.Address {
	return o.origin
}

// Validate checks the tx against the head state. It doesn't tell whether the tx is executable,
// since the nonce may be ahead of the state nonce.
func (o *txObject) Validate(st *state.State, headBlock *block.Header) error {
	if o.Gas() > headBlock.GasLimit() {
		return errors.New("gas too large")
	}
	nonce, err := st.GetNonce(o.origin)
	if err != nil {
		return err
	}
	if o.Nonce() < nonce {
		return errors.New("nonce too low")
	}
	balance, err := st.GetBalance(o.origin)
	if err != nil {
		return err
	}
	if balance.Cmp(o.Cost()) < 0 {
		return errors.New("insufficient funds")
	}
	return nil
}

// sortTxObjsByNonce sorts objs of the same origin by nonce, the earliest added goes first if nonce equals.
func sortTxObjsByNonce(txObjs []*txObject) {
	sort.Slice(txObjs, func(i, j int) bool {
		if n1, n2 := txObjs[i].Nonce(), txObjs[j].Nonce(); n1 != n2 {
			return n1 < n2
		}
		return txObjs[i].timeAdded < txObjs[j].timeAdded
	})
}

// higherPriced returns whether o1 should be packed before o2.
func higherPriced(o1, o2 *txObject) bool {
	if c := o1.GasPrice().Cmp(o2.GasPrice()); c != 0 {
		return c > 0
	}
	return o1.timeAdded < o2.timeAdded
}

// pickExecutables picks the executable objs of one origin, which have consecutive nonces from
// the state nonce and can be paid by the balance in total.
// The rest are returned as pending, except those can never be executed, which are returned as dropped.
func pickExecutables(txObjs []*txObject, nonce uint64, balance *big.Int) (executables, pending, dropped []*txObject) {
	sortTxObjsByNonce(txObjs)

	var (
		expected = nonce
		needs    = new(big.Int)
		broken   bool
	)
	for _, obj := range txObjs {
		switch {
		case obj.Nonce() < nonce:
			// settled
			dropped = append(dropped, obj)
		case broken || obj.Nonce() != expected:
			broken = true
			pending = append(pending, obj)
		default:
			needs.Add(needs, obj.Cost())
			if needs.Cmp(balance) > 0 {
				broken = true
				needs.Sub(needs, obj.Cost())
				if obj.Cost().Cmp(balance) > 0 {
					dropped = append(dropped, obj)
				} else {
					pending = append(pending, obj)
				}
				continue
			}
			executables = append(executables, obj)
			expected++
		}
	}
	return
}

// mergeByPrice merges executables of all origins, keeping the nonce order per origin.
func mergeByPrice(byOrigin map[thor.Address][]*txObject) []*txObject {
	var (
		total int
		heads = make([]thor.Address, 0, len(byOrigin))
	)
	for origin, objs := range byOrigin {
		total += len(objs)
		heads = append(heads, origin)
	}
	// stable iteration for equal prices
	sort.Slice(heads, func(i, j int) bool {
		return bytes.Compare(heads[i][:], heads[j][:]) < 0
	})

	merged := make([]*txObject, 0, total)
	for len(merged) < total {
		var best *txObject
		for _, origin := range heads {
			if objs := byOrigin[origin]; len(objs) > 0 {
				if best == nil || higherPriced(objs[0], best) {
					best = objs[0]
				}
			}
		}
		merged = append(merged, best)
		byOrigin[best.origin] = byOrigin[best.origin][1:]
	}
	return merged
}
