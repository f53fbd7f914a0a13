// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/vechain/blockexec/chain"
	"github.com/vechain/blockexec/log"
	"github.com/vechain/blockexec/thor"
)

var logger = log.WithContext("pkg", "api")

const (
	revBest int64 = -1
	revNext int64 = -3
)

// Revision is a block number, a block ID, best or next.
type Revision struct {
	val any
}

// IsNext returns whether it refers to the block being packed on top of the best block.
func (rev *Revision) IsNext() bool {
	return rev.val == revNext
}

// ParseRevision parses a query parameter into a block number or block ID.
func ParseRevision(revision string, allowNext bool) (*Revision, error) {
	if revision == "" || revision == "best" {
		return &Revision{revBest}, nil
	}

	if revision == "next" {
		if !allowNext {
			return nil, errors.New("invalid revision: next is not allowed")
		}
		return &Revision{revNext}, nil
	}

	if len(revision) == 66 || len(revision) == 64 {
		blockID, err := thor.ParseBytes32(revision)
		if err != nil {
			return nil, err
		}
		return &Revision{blockID}, nil
	}
	n, err := strconv.ParseUint(revision, 0, 0)
	if err != nil {
		return nil, err
	}
	if n > math.MaxUint32 {
		return nil, errors.New("block number out of max uint32")
	}
	return &Revision{uint32(n)}, nil
}

// GetSummary returns the block summary for the given revision.
// The best block is returned for next.
func GetSummary(rev *Revision, repo *chain.Repository) (*chain.BlockSummary, error) {
	var id thor.Bytes32
	switch rev := rev.val.(type) {
	case thor.Bytes32:
		id = rev
	case uint32:
		var err error
		if id, err = repo.GetBlockIDByNumber(rev); err != nil {
			return nil, err
		}
	case int64:
		return repo.BestBlockSummary(), nil
	default:
		return nil, errors.New("invalid revision")
	}
	return repo.GetBlockSummary(id)
}
