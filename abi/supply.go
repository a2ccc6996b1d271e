package abi

import (
	"fmt"
	"math/big"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// supplyEventABI is the Supply event emitted by the Aave V3 pool contract
const supplyEventABI = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"reserve","type":"address"},{"indexed":false,"name":"user","type":"address"},{"indexed":true,"name":"onBehalfOf","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":true,"name":"referralCode","type":"uint16"}],"name":"Supply","type":"event"}
]`

// SupplyEvent is one decoded Supply log
type SupplyEvent struct {
	BlockNumber  uint64         `json:"block_number"`
	TxHash       common.Hash    `json:"transaction_hash"`
	LogIndex     uint           `json:"log_index"`
	Reserve      common.Address `json:"reserve"`
	User         common.Address `json:"user"`
	OnBehalfOf   common.Address `json:"on_behalf_of"`
	AmountRaw    *big.Int       `json:"amount_raw"`
	Amount       float64        `json:"amount"`
	ReferralCode uint16         `json:"referral_code"`

	// Timestamp is the unix time of the containing block, 0 until enriched
	Timestamp uint64 `json:"timestamp"`
}

// SupplyDecoder decodes Supply logs into SupplyEvent records
type SupplyDecoder struct {
	event    ethabi.Event
	decimals int
	divisor  *big.Float
}

// NewSupplyDecoder creates a decoder for the given token decimal precision
func NewSupplyDecoder(decimals int) (*SupplyDecoder, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("decimals cannot be negative")
	}

	parsed, err := ethabi.JSON(strings.NewReader(supplyEventABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Supply event ABI: %w", err)
	}

	event, ok := parsed.Events["Supply"]
	if !ok {
		return nil, fmt.Errorf("Supply event not found in ABI")
	}

	divisor := new(big.Float).SetInt(new(big.Int).Exp(
		big.NewInt(10), big.NewInt(int64(decimals)), nil))

	return &SupplyDecoder{
		event:    event,
		decimals: decimals,
		divisor:  divisor,
	}, nil
}

// Topic returns the Supply event signature hash (topic0)
func (d *SupplyDecoder) Topic() common.Hash {
	return d.event.ID
}

// Decimals returns the decimal precision applied by Decode
func (d *SupplyDecoder) Decimals() int {
	return d.decimals
}

// Decode parses a raw log into a SupplyEvent. The amount is converted to
// the token's decimal representation; Timestamp is left at 0.
func (d *SupplyDecoder) Decode(log types.Log) (SupplyEvent, error) {
	if len(log.Topics) == 0 {
		return SupplyEvent{}, fmt.Errorf("log has no topics")
	}
	if log.Topics[0] != d.event.ID {
		return SupplyEvent{}, fmt.Errorf("unexpected event signature %s", log.Topics[0].Hex())
	}
	// topic0 + reserve + onBehalfOf + referralCode
	if len(log.Topics) != 4 {
		return SupplyEvent{}, fmt.Errorf("expected 4 topics, got %d", len(log.Topics))
	}

	// Non-indexed inputs: user (address), amount (uint256)
	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return SupplyEvent{}, fmt.Errorf("failed to unpack log data: %w", err)
	}
	if len(values) != 2 {
		return SupplyEvent{}, fmt.Errorf("expected 2 data values, got %d", len(values))
	}

	user, ok := values[0].(common.Address)
	if !ok {
		return SupplyEvent{}, fmt.Errorf("user field is not an address")
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return SupplyEvent{}, fmt.Errorf("amount field is not an integer")
	}
	if amount.Sign() < 0 {
		return SupplyEvent{}, fmt.Errorf("negative supply amount %s", amount.String())
	}

	referral := new(big.Int).SetBytes(log.Topics[3][:])
	if !referral.IsUint64() || referral.Uint64() > 0xffff {
		return SupplyEvent{}, fmt.Errorf("referral code %s out of uint16 range", referral.String())
	}

	return SupplyEvent{
		BlockNumber:  log.BlockNumber,
		TxHash:       log.TxHash,
		LogIndex:     log.Index,
		Reserve:      common.BytesToAddress(log.Topics[1][12:]),
		User:         user,
		OnBehalfOf:   common.BytesToAddress(log.Topics[2][12:]),
		AmountRaw:    amount,
		Amount:       d.toDecimal(amount),
		ReferralCode: uint16(referral.Uint64()),
	}, nil
}

// toDecimal divides a raw token amount by 10^decimals
func (d *SupplyDecoder) toDecimal(raw *big.Int) float64 {
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), d.divisor).Float64()
	return value
}
