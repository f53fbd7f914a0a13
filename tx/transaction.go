// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/blockexec/cry"
	"github.com/vechain/blockexec/thor"
)

// ErrBadSignature is returned when the sender can not be recovered from the signature.
var ErrBadSignature = errors.New("bad signature")

// Transaction is an immutable tx type.
type Transaction struct {
	body body

	// stamped sender, set for simulated txs only and never encoded.
	stamped *thor.Address

	cache struct {
		signingHash atomic.Value
		id          atomic.Value
		sender      atomic.Value
		size        atomic.Value
	}
}

// body describes details of a tx.
type body struct {
	Nonce     uint64
	GasPrice  *big.Int
	Gas       uint64
	To        *thor.Address `rlp:"nil"`
	Value     *big.Int
	Data      []byte
	Signature []byte
}

// ID returns the id of tx. It's the hash of the encoded tx, including the signature.
func (t *Transaction) ID() (id thor.Bytes32) {
	if cached := t.cache.id.Load(); cached != nil {
		return cached.(thor.Bytes32)
	}
	defer func() { t.cache.id.Store(id) }()

	hw := thor.NewBlake2b()
	rlp.Encode(hw, &t.body)
	hw.Sum(id[:0])
	return
}

// SigningHash returns hash of tx excludes signature.
func (t *Transaction) SigningHash() (hash thor.Bytes32) {
	if cached := t.cache.signingHash.Load(); cached != nil {
		return cached.(thor.Bytes32)
	}
	defer func() { t.cache.signingHash.Store(hash) }()

	data, _ := rlp.EncodeToBytes([]any{
		t.body.Nonce,
		t.body.GasPrice,
		t.body.Gas,
		t.body.To,
		t.body.Value,
		t.body.Data,
	})
	return thor.Keccak256(data)
}

// Nonce returns nonce value.
func (t *Transaction) Nonce() uint64 {
	return t.body.Nonce
}

// GasPrice returns gas price.
func (t *Transaction) GasPrice() *big.Int {
	return new(big.Int).Set(t.body.GasPrice)
}

// Gas returns gas provision for this tx, aka startgas.
func (t *Transaction) Gas() uint64 {
	return t.body.Gas
}

// To returns the recipient. It's nil for contract creation.
func (t *Transaction) To() *thor.Address {
	if t.body.To == nil {
		return nil
	}
	cpy := *t.body.To
	return &cpy
}

// Value returns the amount to transfer.
func (t *Transaction) Value() *big.Int {
	return new(big.Int).Set(t.body.Value)
}

// Data returns the data payload.
func (t *Transaction) Data() []byte {
	return append([]byte(nil), t.body.Data...)
}

// IsContractCreation returns whether the tx creates a contract.
func (t *Transaction) IsContractCreation() bool {
	return t.body.To == nil
}

// Signature returns signature.
func (t *Transaction) Signature() []byte {
	return append([]byte(nil), t.body.Signature...)
}

// WithSignature create a new tx with signature set.
func (t *Transaction) WithSignature(sig []byte) *Transaction {
	newTx := Transaction{
		body: t.body,
	}
	// copy sig
	newTx.body.Signature = append([]byte(nil), sig...)
	return &newTx
}

// WithSender create a new unsigned tx with the sender stamped.
// It's used for simulation only, where no signature verification is wanted.
func (t *Transaction) WithSender(sender thor.Address) *Transaction {
	newTx := Transaction{
		body:    t.body,
		stamped: &sender,
	}
	newTx.body.Signature = nil
	return &newTx
}

// IsStamped returns whether the sender of tx is stamped rather than signed.
func (t *Transaction) IsStamped() bool {
	return t.stamped != nil
}

// Sender returns the sender of tx. It's the stamped sender if set,
// or recovered from the signature. ErrBadSignature is returned when recovery fails.
func (t *Transaction) Sender() (sender thor.Address, err error) {
	if t.stamped != nil {
		return *t.stamped, nil
	}
	if cached := t.cache.sender.Load(); cached != nil {
		return cached.(thor.Address), nil
	}

	sender, err = cry.Recover(t.SigningHash(), t.body.Signature)
	if err != nil {
		return thor.Address{}, errors.Wrap(ErrBadSignature, err.Error())
	}
	t.cache.sender.Store(sender)
	return sender, nil
}

// Cost returns the max amount the sender pays, that's value + gasPrice * gas.
func (t *Transaction) Cost() *big.Int {
	cost := new(big.Int).SetUint64(t.body.Gas)
	cost.Mul(cost, t.body.GasPrice)
	return cost.Add(cost, t.body.Value)
}

// IntrinsicGas returns intrinsic gas of tx.
func (t *Transaction) IntrinsicGas() (uint64, error) {
	return IntrinsicGas(t.body.Data, t.body.To == nil)
}

// IntrinsicGas computes the gas charged before execution for the payload.
func IntrinsicGas(data []byte, contractCreation bool) (uint64, error) {
	gas := thor.TxGas
	if contractCreation {
		gas = thor.TxGasContractCreation
	}
	if len(data) == 0 {
		return gas, nil
	}

	var nz uint64
	for _, b := range data {
		if b != 0 {
			nz++
		}
	}
	if (math.MaxUint64-gas)/thor.TxDataNonZeroGas < nz {
		return 0, errors.New("intrinsic gas too large")
	}
	gas += nz * thor.TxDataNonZeroGas

	z := uint64(len(data)) - nz
	if (math.MaxUint64-gas)/thor.TxDataZeroGas < z {
		return 0, errors.New("intrinsic gas too large")
	}
	gas += z * thor.TxDataZeroGas
	return gas, nil
}

// Size returns size in bytes when RLP encoded.
func (t *Transaction) Size() uint64 {
	if cached := t.cache.size.Load(); cached != nil {
		return cached.(uint64)
	}
	var size writeCounter
	rlp.Encode(&size, t)
	t.cache.size.Store(uint64(size))
	return uint64(size)
}

// EncodeRLP implements rlp.Encoder
func (t *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &t.body)
}

// DecodeRLP implements rlp.Decoder
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var body body
	if err := s.Decode(&body); err != nil {
		return err
	}
	*t = Transaction{
		body: body,
	}
	return nil
}

func (t *Transaction) String() string {
	var (
		from string
		to   string
	)
	if sender, err := t.Sender(); err != nil {
		from = "N/A"
	} else {
		from = sender.String()
	}
	if t.body.To == nil {
		to = "[contract creation]"
	} else {
		to = t.body.To.String()
	}

	return fmt.Sprintf(`
	Tx(%v, %v)
	From:           %v
	To:             %v
	Nonce:          %v
	GasPrice:       %v
	Gas:            %v
	Value:          %v
	Data:           %v
	Signature:      %v
`, t.ID(), t.Size(), from, to, t.body.Nonce, t.body.GasPrice, t.body.Gas,
		t.body.Value, hexutil.Encode(t.body.Data), hexutil.Encode(t.body.Signature))
}

type writeCounter uint64

func (c *writeCounter) Write(b []byte) (int, error) {
	*c += writeCounter(len(b))
	return len(b), nil
}
