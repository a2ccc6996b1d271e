package report

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/supplyscan/abi"
	"github.com/0xmhha/supplyscan/analyze"
	"github.com/0xmhha/supplyscan/internal/testutil"
)

func sampleEvents() []abi.SupplyEvent {
	return []abi.SupplyEvent{
		{
			BlockNumber:  52_000_000,
			TxHash:       common.HexToHash("0xabc123"),
			LogIndex:     3,
			Reserve:      testutil.Addr(0x11),
			User:         testutil.Addr(0x22),
			OnBehalfOf:   testutil.Addr(0x33),
			AmountRaw:    big.NewInt(1_500_000),
			Amount:       1.5,
			ReferralCode: 0,
			Timestamp:    1_700_000_000,
		},
		{
			BlockNumber:  51_999_990,
			TxHash:       common.HexToHash("0xdef456"),
			LogIndex:     0,
			Reserve:      testutil.Addr(0x11),
			User:         testutil.Addr(0x44),
			OnBehalfOf:   testutil.Addr(0x44),
			AmountRaw:    testutil.Units(250_000, 6),
			Amount:       250_000,
			ReferralCode: 7,
			Timestamp:    0,
		},
	}
}

func TestEventsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	events := sampleEvents()

	require.NoError(t, WriteEventsCSV(path, events))

	got, err := ReadEventsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestWriteEventsCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")

	require.NoError(t, WriteEventsCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(eventColumns, ",")+"\n", string(data))
}

func TestWriteEventsCSVLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")

	require.NoError(t, WriteEventsCSV(path, sampleEvents()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "events.csv", entries[0].Name())
}

func TestWriteEventsCSVBadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "events.csv")
	assert.Error(t, WriteEventsCSV(path, sampleEvents()))
}

func TestReadEventsCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "wrong header width", content: "a,b,c\n"},
		{
			name: "bad block number",
			content: strings.Join(eventColumns, ",") + "\n" +
				"notanumber,0x1,0,0x2,0x3,0x4,100,0.0001,0,0\n",
		},
		{
			name: "bad amount",
			content: strings.Join(eventColumns, ",") + "\n" +
				"1,0x1,0,0x2,0x3,0x4,100,notafloat,0,0\n",
		},
		{
			name: "bad referral code",
			content: strings.Join(eventColumns, ",") + "\n" +
				"1,0x1,0,0x2,0x3,0x4,100,0.0001,99999,0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := ReadEventsCSV(path)
			assert.Error(t, err)
		})
	}
}

func TestWriteTopSuppliersCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	suppliers := []analyze.SupplierStat{
		{Address: testutil.Addr(1), Total: 250_000, TxCount: 3},
		{Address: testutil.Addr(2), Total: 1.5, TxCount: 1},
	}

	require.NoError(t, WriteTopSuppliersCSV(path, suppliers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "rank,address,total_usdc,tx_count", lines[0])
	assert.Equal(t, "1,"+testutil.Addr(1).Hex()+",250000,3", lines[1])
	assert.Equal(t, "2,"+testutil.Addr(2).Hex()+",1.5,1", lines[2])
}
