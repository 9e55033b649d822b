package pipeline

import (
	"github.com/dvloznov/transaction-unifier/internal/domain"
)

// Concat joins the standardized frames in the given order, preserving each
// frame's row order. No rows are added, dropped or reordered.
func Concat(frames ...[]domain.Transaction) []domain.Transaction {
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	merged := make([]domain.Transaction, 0, total)
	for _, f := range frames {
		merged = append(merged, f...)
	}
	return merged
}

// NameTable maps synthetic user identifiers to display names. It is built
// once from the card frame (the only source carrying names) and read-only
// afterwards.
type NameTable map[string]string

// BuildNameTable derives the identity-to-name table. Rows missing either
// field are skipped; when an identifier maps to several names the first one
// seen wins.
func BuildNameTable(card []domain.Transaction) NameTable {
	table := make(NameTable)
	for _, tx := range card {
		if tx.UserID == "" || tx.FullName == "" {
			continue
		}
		if _, ok := table[tx.UserID]; !ok {
			table[tx.UserID] = tx.FullName
		}
	}
	return table
}

// Backfill returns a copy of the merged frame where rows missing a full name
// get one from the table. Identifiers absent from the table keep an unset
// name; that is not an error.
func Backfill(merged []domain.Transaction, names NameTable) []domain.Transaction {
	out := make([]domain.Transaction, len(merged))
	copy(out, merged)
	for i := range out {
		if out[i].FullName != "" {
			continue
		}
		if name, ok := names[out[i].UserID]; ok {
			out[i].FullName = name
		}
	}
	return out
}
