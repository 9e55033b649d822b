package domain

import (
	"fmt"

	"github.com/dvloznov/transaction-unifier/internal/csvio"
)

// WriteFile persists transactions as a canonical CSV file.
func WriteFile(path string, txs []Transaction) error {
	table := csvio.NewTable(CanonicalColumns)
	for _, tx := range txs {
		table.Append(tx.Record())
	}
	return table.WriteFile(path)
}

// ReadFile loads a canonical CSV file written by WriteFile. The header must
// be exactly CanonicalColumns.
func ReadFile(path string) ([]Transaction, error) {
	table, err := csvio.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(table.Header) != len(CanonicalColumns) {
		return nil, fmt.Errorf("%s: header has %d columns, want %d", path, len(table.Header), len(CanonicalColumns))
	}
	for i, name := range CanonicalColumns {
		if table.Header[i] != name {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", path, i, table.Header[i], name)
		}
	}

	txs := make([]Transaction, 0, len(table.Rows))
	for i, row := range table.Rows {
		tx, err := fromRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
