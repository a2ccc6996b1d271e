package report

import (
	"fmt"
	"io"
	"math"

	"github.com/0xmhha/supplyscan/analyze"
)

// PrintSummary writes a human-readable report of the scan results
func PrintSummary(w io.Writer, summary *analyze.Summary, topN int) {
	fmt.Fprintln(w, "================================================================")
	fmt.Fprintln(w, "  USDC SUPPLY ANALYSIS")
	fmt.Fprintln(w, "================================================================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Overview")
	fmt.Fprintf(w, "  Events analyzed:     %d\n", summary.EventCount)
	fmt.Fprintf(w, "  Unique suppliers:    %d\n", summary.UniqueSuppliers)
	fmt.Fprintf(w, "  Unique senders:      %d\n", summary.UniqueUsers)
	fmt.Fprintf(w, "  Total supplied:      %s USDC\n", formatAmount(summary.TotalAmount))
	fmt.Fprintln(w)

	if summary.EventCount == 0 {
		fmt.Fprintln(w, "No supply events to report.")
		return
	}

	fmt.Fprintln(w, "Transaction statistics")
	fmt.Fprintf(w, "  Mean:                %s USDC\n", formatAmount(summary.Mean))
	fmt.Fprintf(w, "  Median:              %s USDC\n", formatAmount(summary.Median))
	fmt.Fprintf(w, "  Smallest:            %s USDC\n", formatAmount(summary.Min))
	fmt.Fprintf(w, "  Largest:             %s USDC\n", formatAmount(summary.Max))
	fmt.Fprintln(w)

	if len(summary.Suppliers) > 0 {
		whale := summary.Suppliers[0]
		fmt.Fprintln(w, "Whale analysis")
		fmt.Fprintf(w, "  Largest supplier:    %s\n", whale.Address.Hex())
		fmt.Fprintf(w, "  Supplied:            %s USDC across %d transactions\n",
			formatAmount(whale.Total), whale.TxCount)
		fmt.Fprintf(w, "  Share of total:      %.2f%%\n", summary.TopWhaleShare*100)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Concentration")
	fmt.Fprintf(w, "  Top 10 suppliers:    %.2f%% of total\n", summary.Top10Share*100)
	fmt.Fprintf(w, "  Top 50 suppliers:    %.2f%% of total\n", summary.Top50Share*100)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Size distribution")
	for _, bucket := range summary.Buckets {
		fmt.Fprintf(w, "  %-12s %6d  (%.1f%%)\n", bucket.Label, bucket.Count, bucket.Share*100)
	}
	fmt.Fprintln(w)

	top := summary.TopSuppliers(topN)
	fmt.Fprintf(w, "Top %d suppliers\n", len(top))
	for i, supplier := range top {
		fmt.Fprintf(w, "  %2d. %s  %s USDC  (%d tx)\n",
			i+1, supplier.Address.Hex(), formatAmount(supplier.Total), supplier.TxCount)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "================================================================")
}

// formatAmount renders an amount with thousands separators and two decimals
func formatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}

	neg := v < 0
	if neg {
		v = -v
	}

	whole := int64(v)
	frac := int64(math.Round((v - float64(whole)) * 100))
	if frac >= 100 {
		whole++
		frac -= 100
	}

	digits := fmt.Sprintf("%d", whole)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%02d", sign, string(out), frac)
}
