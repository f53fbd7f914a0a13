// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
	"github.com/vechain/blockexec/tx"
)

// Builder helper to build genesis block.
type Builder struct {
	timestamp uint64
	gasLimit  uint64
	coinbase  thor.Address

	stateProcs []func(state *state.State) error
	extraData  [28]byte
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// GasLimit set gas limit.
func (b *Builder) GasLimit(limit uint64) *Builder {
	b.gasLimit = limit
	return b
}

// Coinbase set the beneficiary of the genesis block.
func (b *Builder) Coinbase(addr thor.Address) *Builder {
	b.coinbase = addr
	return b
}

// State add a state process
func (b *Builder) State(proc func(state *state.State) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// ExtraData set extra data, which will be put into last 28 bytes of genesis parent id.
func (b *Builder) ExtraData(data [28]byte) *Builder {
	b.extraData = data
	return b
}

// ComputeID compute genesis ID.
func (b *Builder) ComputeID() (thor.Bytes32, error) {
	db := muxdb.NewMem()
	defer db.Close()

	blk, err := b.Build(state.NewStater(db))
	if err != nil {
		return thor.Bytes32{}, err
	}
	return blk.Header().ID(), nil
}

// Build build genesis block according to presets. The allocated state is committed.
func (b *Builder) Build(stater *state.Stater) (*block.Block, error) {
	st, err := stater.NewState(thor.Bytes32{})
	if err != nil {
		return nil, err
	}

	for _, proc := range b.stateProcs {
		if err := proc(st); err != nil {
			return nil, errors.Wrap(err, "state process")
		}
	}

	stateRoot, err := st.Commit()
	if err != nil {
		return nil, errors.Wrap(err, "commit state")
	}

	parentID := block.GenesisParentID() // so, genesis number is 0
	copy(parentID[4:], b.extraData[:])

	return new(block.Builder).
		ParentID(parentID).
		Timestamp(b.timestamp).
		GasLimit(b.gasLimit).
		Beneficiary(b.coinbase).
		StateRoot(stateRoot).
		ReceiptsRoot(tx.Receipts(nil).RootHash()).
		Build(), nil
}
