package testutil

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// NewTestLogger creates a logger that writes through the test's log output
func NewTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// Addr builds a deterministic address from a single byte
func Addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

// Units scales a whole token amount into its raw integer representation
func Units(amount int64, decimals int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(amount), scale)
}

// SupplyTopic returns the Supply event signature hash
func SupplyTopic() common.Hash {
	return crypto.Keccak256Hash([]byte("Supply(address,address,address,uint256,uint16)"))
}

// SupplyLogParams describes one synthetic Supply log
type SupplyLogParams struct {
	Pool       common.Address
	Block      uint64
	LogIndex   uint
	Reserve    common.Address
	User       common.Address
	OnBehalfOf common.Address
	Amount     *big.Int
	Referral   uint16
}

// NewSupplyLog builds a raw log encoded the way the pool contract emits
// Supply events: reserve, onBehalfOf and referralCode indexed, user and
// amount in the data segment
func NewSupplyLog(p SupplyLogParams) types.Log {
	data := make([]byte, 64)
	copy(data[12:32], p.User.Bytes())
	p.Amount.FillBytes(data[32:64])

	var referralTopic common.Hash
	binary.BigEndian.PutUint16(referralTopic[30:32], p.Referral)

	var txHash common.Hash
	binary.BigEndian.PutUint64(txHash[0:8], p.Block)
	binary.BigEndian.PutUint64(txHash[8:16], uint64(p.LogIndex))

	return types.Log{
		Address: p.Pool,
		Topics: []common.Hash{
			SupplyTopic(),
			addressTopic(p.Reserve),
			addressTopic(p.OnBehalfOf),
			referralTopic,
		},
		Data:        data,
		BlockNumber: p.Block,
		TxHash:      txHash,
		Index:       p.LogIndex,
	}
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}
