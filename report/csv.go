package report

import (
	"encoding/csv"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xmhha/supplyscan/abi"
	"github.com/0xmhha/supplyscan/analyze"
)

var eventColumns = []string{
	"block_number",
	"transaction_hash",
	"log_index",
	"reserve",
	"user",
	"on_behalf_of",
	"amount_raw",
	"amount_usdc",
	"referral_code",
	"timestamp",
}

var supplierColumns = []string{
	"rank",
	"address",
	"total_usdc",
	"tx_count",
}

// WriteEventsCSV writes decoded supply events to path. The file is written
// to a temporary sibling first and renamed into place, so a failed write
// never leaves a torn file behind.
func WriteEventsCSV(path string, events []abi.SupplyEvent) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(eventColumns); err != nil {
			return err
		}
		for _, event := range events {
			record := []string{
				strconv.FormatUint(event.BlockNumber, 10),
				event.TxHash.Hex(),
				strconv.FormatUint(uint64(event.LogIndex), 10),
				event.Reserve.Hex(),
				event.User.Hex(),
				event.OnBehalfOf.Hex(),
				event.AmountRaw.String(),
				strconv.FormatFloat(event.Amount, 'f', -1, 64),
				strconv.FormatUint(uint64(event.ReferralCode), 10),
				strconv.FormatUint(event.Timestamp, 10),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadEventsCSV reads back a file produced by WriteEventsCSV
func ReadEventsCSV(path string) ([]abi.SupplyEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	if len(records[0]) != len(eventColumns) {
		return nil, fmt.Errorf("unexpected header width %d in %s", len(records[0]), path)
	}

	events := make([]abi.SupplyEvent, 0, len(records)-1)
	for i, record := range records[1:] {
		event, err := parseEventRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d of %s: %w", i+2, path, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// WriteTopSuppliersCSV writes the ranked supplier table to path
func WriteTopSuppliersCSV(path string, suppliers []analyze.SupplierStat) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(supplierColumns); err != nil {
			return err
		}
		for i, supplier := range suppliers {
			record := []string{
				strconv.Itoa(i + 1),
				supplier.Address.Hex(),
				strconv.FormatFloat(supplier.Total, 'f', -1, 64),
				strconv.Itoa(supplier.TxCount),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeAtomic writes CSV content to a temp file in the target directory and
// renames it over path on success
func writeAtomic(path string, write func(*csv.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func parseEventRecord(record []string) (abi.SupplyEvent, error) {
	if len(record) != len(eventColumns) {
		return abi.SupplyEvent{}, fmt.Errorf("expected %d fields, got %d", len(eventColumns), len(record))
	}

	block, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return abi.SupplyEvent{}, fmt.Errorf("bad block number %q: %w", record[0], err)
	}
	logIndex, err := strconv.ParseUint(record[2], 10, 64)
	if err != nil {
		return abi.SupplyEvent{}, fmt.Errorf("bad log index %q: %w", record[2], err)
	}
	amountRaw, ok := new(big.Int).SetString(record[6], 10)
	if !ok {
		return abi.SupplyEvent{}, fmt.Errorf("bad raw amount %q", record[6])
	}
	amount, err := strconv.ParseFloat(record[7], 64)
	if err != nil {
		return abi.SupplyEvent{}, fmt.Errorf("bad amount %q: %w", record[7], err)
	}
	referral, err := strconv.ParseUint(record[8], 10, 16)
	if err != nil {
		return abi.SupplyEvent{}, fmt.Errorf("bad referral code %q: %w", record[8], err)
	}
	timestamp, err := strconv.ParseUint(record[9], 10, 64)
	if err != nil {
		return abi.SupplyEvent{}, fmt.Errorf("bad timestamp %q: %w", record[9], err)
	}

	return abi.SupplyEvent{
		BlockNumber:  block,
		TxHash:       common.HexToHash(record[1]),
		LogIndex:     uint(logIndex),
		Reserve:      common.HexToAddress(record[3]),
		User:         common.HexToAddress(record[4]),
		OnBehalfOf:   common.HexToAddress(record[5]),
		AmountRaw:    amountRaw,
		Amount:       amount,
		ReferralCode: uint16(referral),
		Timestamp:    timestamp,
	}, nil
}
