package upload

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/invsync/inventory-sync-server/internal/syncer"
)

// Column names expected in the header row of an uploaded spreadsheet
// export. "Available Primary" is the stock level column name used by the
// source feed.
const (
	ColumnName     = "Name"
	ColumnSKU      = "SKU"
	ColumnQuantity = "Available Primary"
)

// RowError is a parse failure for one data row. The row is skipped; the
// rest of the file is still processed.
type RowError struct {
	RowNo   int64
	SKU     string
	Message string
}

// Parse reads a header-mapped CSV upload into sync items.
//
// encoding may be "", "utf-8" or "windows-1251". The SKU and
// "Available Primary" columns are required in the header; Name is
// optional. Row-level problems (blank SKU, non-numeric or negative
// quantity, short record) are collected as RowErrors rather than
// aborting the parse. Only an unreadable file or a bad header is fatal.
func Parse(r io.Reader, encoding string) ([]syncer.Item, []RowError, error) {
	switch encoding {
	case "", "utf-8":
	case "windows-1251":
		r = charmap.Windows1251.NewDecoder().Reader(r)
	default:
		return nil, nil, fmt.Errorf("unsupported encoding: %q", encoding)
	}

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerMap := make(map[string]int)
	for i, name := range header {
		headerMap[strings.TrimSpace(name)] = i
	}

	skuIdx, ok := headerMap[ColumnSKU]
	if !ok {
		return nil, nil, fmt.Errorf("header not found: %s", ColumnSKU)
	}
	qtyIdx, ok := headerMap[ColumnQuantity]
	if !ok {
		return nil, nil, fmt.Errorf("header not found: %s", ColumnQuantity)
	}
	nameIdx, hasName := headerMap[ColumnName]

	var items []syncer.Item
	var rowErrors []RowError
	var rowNo int64

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNo++
		if err != nil {
			rowErrors = append(rowErrors, RowError{RowNo: rowNo, Message: fmt.Sprintf("csv read error: %v", err)})
			continue
		}

		if skuIdx >= len(record) || qtyIdx >= len(record) {
			rowErrors = append(rowErrors, RowError{RowNo: rowNo, Message: "row has fewer columns than header"})
			continue
		}

		sku := strings.TrimSpace(record[skuIdx])
		if sku == "" {
			rowErrors = append(rowErrors, RowError{RowNo: rowNo, Message: "empty SKU"})
			continue
		}

		qty, err := strconv.Atoi(strings.TrimSpace(record[qtyIdx]))
		if err != nil {
			rowErrors = append(rowErrors, RowError{RowNo: rowNo, SKU: sku, Message: fmt.Sprintf("invalid quantity %q", record[qtyIdx])})
			continue
		}
		if qty < 0 {
			rowErrors = append(rowErrors, RowError{RowNo: rowNo, SKU: sku, Message: fmt.Sprintf("negative quantity %d", qty)})
			continue
		}

		item := syncer.Item{SKU: sku, Quantity: qty}
		if hasName && nameIdx < len(record) {
			item.Name = strings.TrimSpace(record[nameIdx])
		}
		items = append(items, item)
	}

	return items, rowErrors, nil
}
