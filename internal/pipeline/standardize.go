package pipeline

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/transaction-unifier/internal/csvio"
	"github.com/dvloznov/transaction-unifier/internal/domain"
)

// Canonical column names shared by stage outputs.
const canonicalUserCol = "User ID"

// columnMap names the source columns holding each canonical field. Empty
// names mean the source does not carry the field.
type columnMap struct {
	date     string
	amount   string
	merchant string
	user     string
	fullName string
	category string
}

var (
	householdColumns = columnMap{
		date:     householdDateCol,
		amount:   householdAmountCol,
		merchant: householdMerchantCol,
		user:     canonicalUserCol,
	}
	cardColumns = columnMap{
		date:     cardDateCol,
		amount:   "Transaction Amount",
		merchant: "Merchant Name",
		user:     canonicalUserCol,
		fullName: cardFullNameCol,
	}
	walletColumns = columnMap{
		date:     walletDateCol,
		amount:   walletUSDCol,
		merchant: "merchant_name",
		user:     walletUserCol,
		category: "product_category",
	}
)

// Standardize projects a cleaned source frame onto the canonical record
// shape. It is a pure rename/select: values are expected to be normalized
// already (dates as YYYY-MM-DD, amounts as decimal strings). A missing mapped
// column is a SchemaError for the source.
func Standardize(source string, cols columnMap, t *csvio.Table) ([]domain.Transaction, error) {
	required := []string{cols.date, cols.amount, cols.merchant, cols.user}
	if cols.fullName != "" {
		required = append(required, cols.fullName)
	}
	if cols.category != "" {
		required = append(required, cols.category)
	}
	if err := requireColumns(t, source, required...); err != nil {
		return nil, err
	}

	dateIdx, _ := t.Col(cols.date)
	amountIdx, _ := t.Col(cols.amount)
	merchantIdx, _ := t.Col(cols.merchant)
	userIdx, _ := t.Col(cols.user)

	nameIdx := -1
	if cols.fullName != "" {
		nameIdx, _ = t.Col(cols.fullName)
	}
	categoryIdx := -1
	if cols.category != "" {
		categoryIdx, _ = t.Col(cols.category)
	}

	txs := make([]domain.Transaction, 0, len(t.Rows))
	for i, row := range t.Rows {
		date, err := civil.ParseDate(row[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("source %s: row %d: unexpected date %q after cleaning: %w", source, i+1, row[dateIdx], err)
		}
		amount, err := decimal.NewFromString(row[amountIdx])
		if err != nil {
			return nil, fmt.Errorf("source %s: row %d: unexpected amount %q after cleaning: %w", source, i+1, row[amountIdx], err)
		}

		tx := domain.Transaction{
			Date:     date,
			Amount:   amount,
			Merchant: row[merchantIdx],
			UserID:   row[userIdx],
		}
		if nameIdx >= 0 {
			tx.FullName = row[nameIdx]
		}
		if categoryIdx >= 0 {
			tx.ProductCategory = row[categoryIdx]
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// StandardizeHousehold projects the cleaned household frame.
func StandardizeHousehold(t *csvio.Table) ([]domain.Transaction, error) {
	return Standardize("household", householdColumns, t)
}

// StandardizeCard projects the cleaned card frame.
func StandardizeCard(t *csvio.Table) ([]domain.Transaction, error) {
	return Standardize("card", cardColumns, t)
}

// StandardizeWallet projects the cleaned wallet frame.
func StandardizeWallet(t *csvio.Table) ([]domain.Transaction, error) {
	return Standardize("wallet", walletColumns, t)
}
