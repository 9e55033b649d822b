// Package domain defines the canonical transaction record that every source
// dataset is projected onto, plus its CSV representation.
package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CanonicalColumns is the column set of the merged output, in output order.
var CanonicalColumns = []string{
	"Transaction Date",
	"Transaction Amount",
	"Merchant",
	"User ID",
	"Full Name",
	"Product Category",
}

// Transaction is one normalized transaction. Merchant, FullName and
// ProductCategory are optional and empty when the source did not carry them.
type Transaction struct {
	Date            civil.Date      `json:"transaction_date"`
	Amount          decimal.Decimal `json:"transaction_amount"`
	Merchant        string          `json:"merchant,omitempty"`
	UserID          string          `json:"user_id"`
	FullName        string          `json:"full_name,omitempty"`
	ProductCategory string          `json:"product_category,omitempty"`
}

// Record returns the transaction as a CSV row matching CanonicalColumns.
func (t Transaction) Record() []string {
	return []string{
		t.Date.String(),
		t.Amount.String(),
		t.Merchant,
		t.UserID,
		t.FullName,
		t.ProductCategory,
	}
}

func fromRecord(row []string) (Transaction, error) {
	if len(row) != len(CanonicalColumns) {
		return Transaction{}, fmt.Errorf("row has %d fields, want %d", len(row), len(CanonicalColumns))
	}

	date, err := civil.ParseDate(row[0])
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid transaction date %q: %w", row[0], err)
	}
	amount, err := decimal.NewFromString(row[1])
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid transaction amount %q: %w", row[1], err)
	}

	return Transaction{
		Date:            date,
		Amount:          amount,
		Merchant:        row[2],
		UserID:          row[3],
		FullName:        row[4],
		ProductCategory: row[5],
	}, nil
}
