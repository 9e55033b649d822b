package export

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/transaction-unifier/internal/domain"
)

// insertBatchSize bounds each streaming insert request.
const insertBatchSize = 500

// TransactionRow is the warehouse shape of a canonical transaction.
type TransactionRow struct {
	TransactionDate civil.Date          `bigquery:"transaction_date"`
	Amount          float64             `bigquery:"amount"`
	Merchant        bigquery.NullString `bigquery:"merchant"`
	UserID          string              `bigquery:"user_id"`
	FullName        bigquery.NullString `bigquery:"full_name"`
	ProductCategory bigquery.NullString `bigquery:"product_category"`
}

func rowFromTransaction(tx domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionDate: tx.Date,
		Amount:          tx.Amount.InexactFloat64(),
		Merchant:        nullString(tx.Merchant),
		UserID:          tx.UserID,
		FullName:        nullString(tx.FullName),
		ProductCategory: nullString(tx.ProductCategory),
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// BigQueryExporter writes the final merged frame to one BigQuery table.
type BigQueryExporter struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewBigQueryExporter creates an exporter for project.dataset.table.
func NewBigQueryExporter(ctx context.Context, projectID, dataset, table string) (*BigQueryExporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQueryExporter{client: client, dataset: dataset, table: table}, nil
}

// Close releases the underlying client.
func (e *BigQueryExporter) Close() error {
	return e.client.Close()
}

// Export streams the transactions into the table in batches.
func (e *BigQueryExporter) Export(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	inserter := e.client.Dataset(e.dataset).Table(e.table).Inserter()
	for start := 0; start < len(txs); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(txs) {
			end = len(txs)
		}
		rows := make([]*TransactionRow, 0, end-start)
		for _, tx := range txs[start:end] {
			rows = append(rows, rowFromTransaction(tx))
		}
		if err := inserter.Put(ctx, rows); err != nil {
			return fmt.Errorf("insert rows %d..%d: %w", start, end, err)
		}
	}
	return nil
}

// CountRows returns the current row count of the export table.
func (e *BigQueryExporter) CountRows(ctx context.Context) (int64, error) {
	q := e.client.Query(fmt.Sprintf("SELECT COUNT(*) AS n FROM `%s.%s`", e.dataset, e.table))

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	for {
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count query iter: %w", err)
		}
	}
	return row.N, nil
}
