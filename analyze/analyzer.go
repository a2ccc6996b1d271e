package analyze

import (
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/supplyscan/abi"
)

// SupplierStat aggregates all supply events credited to one address
type SupplierStat struct {
	Address common.Address
	Total   float64
	TxCount int
}

// Bucket is one bin of the amount distribution. Min is inclusive, Max is
// exclusive; a NaN Max means unbounded.
type Bucket struct {
	Label string
	Min   float64
	Max   float64
	Count int
	Share float64
}

// Summary holds aggregate statistics over a set of supply events
type Summary struct {
	EventCount      int
	UniqueSuppliers int
	UniqueUsers     int
	TotalAmount     float64
	Mean            float64
	Median          float64
	Min             float64
	Max             float64

	// Concentration of the total amount, as fractions in [0, 1]
	TopWhaleShare float64
	Top10Share    float64
	Top50Share    float64

	// Suppliers is ranked by total amount descending. Addresses with equal
	// totals keep their first-appearance order.
	Suppliers []SupplierStat

	Buckets []Bucket
}

var bucketBounds = []Bucket{
	{Label: "0 - 1k", Min: 0, Max: 1_000},
	{Label: "1k - 10k", Min: 1_000, Max: 10_000},
	{Label: "10k - 100k", Min: 10_000, Max: 100_000},
	{Label: "100k+", Min: 100_000, Max: math.NaN()},
}

// Summarize computes aggregate statistics, the supplier ranking and the
// amount distribution for a set of supply events. An empty input yields a
// zero-valued summary.
func Summarize(events []abi.SupplyEvent) *Summary {
	summary := &Summary{
		EventCount: len(events),
		Buckets:    makeBuckets(),
	}
	if len(events) == 0 {
		return summary
	}

	amounts := make([]float64, len(events))
	for i, event := range events {
		amounts[i] = event.Amount
		summary.TotalAmount += event.Amount
	}

	sorted := make([]float64, len(amounts))
	copy(sorted, amounts)
	sort.Float64s(sorted)

	summary.Min = sorted[0]
	summary.Max = sorted[len(sorted)-1]
	summary.Mean = summary.TotalAmount / float64(len(amounts))
	summary.Median = median(sorted)

	summary.Suppliers = RankSuppliers(events)
	summary.UniqueSuppliers = len(summary.Suppliers)

	users := make(map[common.Address]struct{})
	for _, event := range events {
		users[event.User] = struct{}{}
	}
	summary.UniqueUsers = len(users)

	if summary.TotalAmount > 0 {
		summary.TopWhaleShare = topShare(summary.Suppliers, 1, summary.TotalAmount)
		summary.Top10Share = topShare(summary.Suppliers, 10, summary.TotalAmount)
		summary.Top50Share = topShare(summary.Suppliers, 50, summary.TotalAmount)
	}

	fillBuckets(summary.Buckets, amounts)
	return summary
}

// RankSuppliers groups events by the credited address and ranks the groups
// by total amount descending. Equal totals keep first-appearance order.
func RankSuppliers(events []abi.SupplyEvent) []SupplierStat {
	index := make(map[common.Address]int)
	suppliers := make([]SupplierStat, 0)

	for _, event := range events {
		i, seen := index[event.OnBehalfOf]
		if !seen {
			i = len(suppliers)
			index[event.OnBehalfOf] = i
			suppliers = append(suppliers, SupplierStat{Address: event.OnBehalfOf})
		}
		suppliers[i].Total += event.Amount
		suppliers[i].TxCount++
	}

	sort.SliceStable(suppliers, func(a, b int) bool {
		return suppliers[a].Total > suppliers[b].Total
	})
	return suppliers
}

// TopSuppliers returns the first n ranked suppliers, or all of them when
// fewer exist
func (s *Summary) TopSuppliers(n int) []SupplierStat {
	if n > len(s.Suppliers) {
		n = len(s.Suppliers)
	}
	if n < 0 {
		n = 0
	}
	return s.Suppliers[:n]
}

// median expects a sorted slice
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// topShare returns the fraction of total held by the n largest suppliers
func topShare(suppliers []SupplierStat, n int, total float64) float64 {
	if n > len(suppliers) {
		n = len(suppliers)
	}
	var sum float64
	for _, s := range suppliers[:n] {
		sum += s.Total
	}
	return sum / total
}

func makeBuckets() []Bucket {
	buckets := make([]Bucket, len(bucketBounds))
	copy(buckets, bucketBounds)
	return buckets
}

func fillBuckets(buckets []Bucket, amounts []float64) {
	for _, amount := range amounts {
		for i := range buckets {
			if amount < buckets[i].Min {
				continue
			}
			if !math.IsNaN(buckets[i].Max) && amount >= buckets[i].Max {
				continue
			}
			buckets[i].Count++
			break
		}
	}
	if len(amounts) == 0 {
		return
	}
	for i := range buckets {
		buckets[i].Share = float64(buckets[i].Count) / float64(len(amounts))
	}
}
