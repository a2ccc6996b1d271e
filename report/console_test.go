package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xmhha/supplyscan/abi"
	"github.com/0xmhha/supplyscan/analyze"
	"github.com/0xmhha/supplyscan/internal/testutil"
)

func TestPrintSummary(t *testing.T) {
	events := []abi.SupplyEvent{
		{OnBehalfOf: testutil.Addr(1), User: testutil.Addr(9), Amount: 900},
		{OnBehalfOf: testutil.Addr(2), User: testutil.Addr(9), Amount: 100},
	}
	summary := analyze.Summarize(events)

	var buf bytes.Buffer
	PrintSummary(&buf, summary, 10)
	out := buf.String()

	assert.Contains(t, out, "Events analyzed:     2")
	assert.Contains(t, out, "Unique suppliers:    2")
	assert.Contains(t, out, "Total supplied:      1,000.00 USDC")
	assert.Contains(t, out, testutil.Addr(1).Hex())
	assert.Contains(t, out, "Share of total:      90.00%")
	assert.Contains(t, out, "Top 2 suppliers")
}

func TestPrintSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, analyze.Summarize(nil), 10)

	assert.Contains(t, buf.String(), "No supply events to report.")
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{name: "zero", in: 0, want: "0.00"},
		{name: "small", in: 1.5, want: "1.50"},
		{name: "thousands", in: 1234.56, want: "1,234.56"},
		{name: "millions", in: 250_000_000, want: "250,000,000.00"},
		{name: "rounding carries", in: 9.999, want: "10.00"},
		{name: "negative", in: -1234.5, want: "-1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmount(tt.in))
		})
	}
}
