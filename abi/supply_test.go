package abi

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/supplyscan/internal/testutil"
)

func TestNewSupplyDecoder(t *testing.T) {
	tests := []struct {
		name     string
		decimals int
		wantErr  bool
	}{
		{name: "usdc precision", decimals: 6},
		{name: "zero decimals", decimals: 0},
		{name: "eighteen decimals", decimals: 18},
		{name: "negative decimals", decimals: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewSupplyDecoder(tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.decimals, decoder.Decimals())
		})
	}
}

func TestSupplyDecoderTopic(t *testing.T) {
	decoder, err := NewSupplyDecoder(6)
	require.NoError(t, err)

	assert.Equal(t, testutil.SupplyTopic(), decoder.Topic())
	assert.Equal(t,
		"0x2b627736bca15cd5381dcf80b0bf11fd197d01a037c52b927a881a10fb73ba61",
		decoder.Topic().Hex(),
	)
}

func TestSupplyDecoderDecode(t *testing.T) {
	decoder, err := NewSupplyDecoder(6)
	require.NoError(t, err)

	reserve := testutil.Addr(0xAA)
	user := testutil.Addr(0xBB)
	onBehalfOf := testutil.Addr(0xCC)

	log := testutil.NewSupplyLog(testutil.SupplyLogParams{
		Block:      12345,
		LogIndex:   7,
		Reserve:    reserve,
		User:       user,
		OnBehalfOf: onBehalfOf,
		Amount:     big.NewInt(1_500_000),
		Referral:   42,
	})

	event, err := decoder.Decode(log)
	require.NoError(t, err)

	assert.Equal(t, uint64(12345), event.BlockNumber)
	assert.Equal(t, uint(7), event.LogIndex)
	assert.Equal(t, reserve, event.Reserve)
	assert.Equal(t, user, event.User)
	assert.Equal(t, onBehalfOf, event.OnBehalfOf)
	assert.Equal(t, big.NewInt(1_500_000), event.AmountRaw)
	assert.InDelta(t, 1.5, event.Amount, 1e-9)
	assert.Equal(t, uint16(42), event.ReferralCode)
	assert.Zero(t, event.Timestamp)
}

func TestSupplyDecoderDecodeErrors(t *testing.T) {
	decoder, err := NewSupplyDecoder(6)
	require.NoError(t, err)

	valid := testutil.NewSupplyLog(testutil.SupplyLogParams{
		Block:      1,
		Reserve:    testutil.Addr(1),
		User:       testutil.Addr(2),
		OnBehalfOf: testutil.Addr(3),
		Amount:     big.NewInt(100),
	})

	tests := []struct {
		name   string
		mutate func(types.Log) types.Log
	}{
		{
			name: "no topics",
			mutate: func(l types.Log) types.Log {
				l.Topics = nil
				return l
			},
		},
		{
			name: "wrong signature",
			mutate: func(l types.Log) types.Log {
				l.Topics[0] = common.HexToHash("0xdead")
				return l
			},
		},
		{
			name: "missing indexed topics",
			mutate: func(l types.Log) types.Log {
				l.Topics = l.Topics[:3]
				return l
			},
		},
		{
			name: "truncated data",
			mutate: func(l types.Log) types.Log {
				l.Data = l.Data[:31]
				return l
			},
		},
		{
			name: "referral code overflow",
			mutate: func(l types.Log) types.Log {
				l.Topics[3] = common.HexToHash("0x10000")
				return l
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := tt.mutate(testutil.NewSupplyLog(testutil.SupplyLogParams{
				Block:      valid.BlockNumber,
				Reserve:    testutil.Addr(1),
				User:       testutil.Addr(2),
				OnBehalfOf: testutil.Addr(3),
				Amount:     big.NewInt(100),
			}))

			_, err := decoder.Decode(log)
			assert.Error(t, err)
		})
	}
}

func TestSupplyDecoderAmountScaling(t *testing.T) {
	tests := []struct {
		name     string
		decimals int
		raw      *big.Int
		want     float64
	}{
		{name: "one usdc", decimals: 6, raw: big.NewInt(1_000_000), want: 1},
		{name: "fractional", decimals: 6, raw: big.NewInt(1_234_567), want: 1.234567},
		{name: "zero", decimals: 6, raw: big.NewInt(0), want: 0},
		{name: "no scaling", decimals: 0, raw: big.NewInt(777), want: 777},
		{name: "large supply", decimals: 6, raw: testutil.Units(250_000_000, 6), want: 250_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder, err := NewSupplyDecoder(tt.decimals)
			require.NoError(t, err)

			log := testutil.NewSupplyLog(testutil.SupplyLogParams{
				Block:      1,
				Reserve:    testutil.Addr(1),
				User:       testutil.Addr(2),
				OnBehalfOf: testutil.Addr(3),
				Amount:     tt.raw,
			})

			event, err := decoder.Decode(log)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, event.Amount, 1e-9)
		})
	}
}
