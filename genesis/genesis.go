// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis describes the distinguished root state of a chain.
package genesis

import (
	"github.com/vechain/blockexec/block"
	"github.com/vechain/blockexec/state"
	"github.com/vechain/blockexec/thor"
)

// Genesis to build genesis block.
type Genesis struct {
	builder *Builder
	id      thor.Bytes32
	name    string
}

// New creates a genesis from the builder.
func New(name string, builder *Builder) (*Genesis, error) {
	id, err := builder.ComputeID()
	if err != nil {
		return nil, err
	}
	return &Genesis{builder, id, name}, nil
}

// Build build the genesis block, and commits the allocated state.
// It's deterministic, building twice on any db yields the same block.
func (g *Genesis) Build(stater *state.Stater) (*block.Block, error) {
	blk, err := g.builder.Build(stater)
	if err != nil {
		return nil, err
	}
	if blk.Header().ID() != g.id {
		panic("built genesis ID incorrect")
	}
	return blk, nil
}

// ID returns genesis block ID.
func (g *Genesis) ID() thor.Bytes32 {
	return g.id
}

// Name returns network name.
func (g *Genesis) Name() string {
	return g.name
}

func mustComputeID(builder *Builder) thor.Bytes32 {
	id, err := builder.ComputeID()
	if err != nil {
		panic(err)
	}
	return id
}
