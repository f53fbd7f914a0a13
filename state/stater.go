// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/vechain/blockexec/muxdb"
	"github.com/vechain/blockexec/thor"
)

// Stater is the state creator.
type Stater struct {
	db *muxdb.MuxDB
}

// NewStater create a new stater.
func NewStater(db *muxdb.MuxDB) *Stater {
	return &Stater{db}
}

// NewState create a new state object.
func (s *Stater) NewState(root thor.Bytes32) (*State, error) {
	return New(s.db, root)
}

// DB returns the underlying db.
func (s *Stater) DB() *muxdb.MuxDB {
	return s.db
}
