package pipeline

import (
	"math/rand"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/transaction-unifier/internal/config"
	"github.com/dvloznov/transaction-unifier/internal/csvio"
)

// Raw column names of the household ledger export.
const (
	householdSubcategoryCol = "Subcategory"
	householdDateCol        = "Date"
	householdAmountCol      = "USD"
	householdMerchantCol    = "merchant"
)

// HouseholdStage cleans the household ledger: it drops uncategorized and
// unparseable rows, keeps amounts at or above the configured threshold,
// resamples dates into the household window and assigns user identifiers by
// cycling a small fixed pool in row order.
type HouseholdStage struct {
	cfg       config.Household
	resampler *DateResampler
	log       zerolog.Logger
}

// NewHouseholdStage builds the stage from its configuration.
func NewHouseholdStage(cfg config.Household, rng *rand.Rand, log zerolog.Logger) (*HouseholdStage, error) {
	start, end, err := cfg.Window.Dates()
	if err != nil {
		return nil, err
	}
	return &HouseholdStage{
		cfg:       cfg,
		resampler: NewDateResampler(start, end, rng),
		log:       log,
	}, nil
}

// Name identifies the stage in logs and errors.
func (s *HouseholdStage) Name() string { return "household" }

// Run transforms the raw table into the cleaned household frame. The output
// keeps the source columns (with resampled dates and normalized amounts) and
// gains a "User ID" column.
func (s *HouseholdStage) Run(t *csvio.Table) (*csvio.Table, error) {
	if err := requireColumns(t, s.Name(), householdSubcategoryCol, householdDateCol, householdAmountCol, householdMerchantCol); err != nil {
		return nil, err
	}

	subcatIdx, _ := t.Col(householdSubcategoryCol)
	dateIdx, _ := t.Col(householdDateCol)
	amountIdx, _ := t.Col(householdAmountCol)

	threshold := decimal.NewFromFloat(s.cfg.AmountThreshold)
	assigner := NewCyclicAssigner(s.cfg.PoolSize)

	out := csvio.NewTable(t.Header)
	var userIDs []string
	dropped := 0

	for _, row := range t.Rows {
		if strings.TrimSpace(row[subcatIdx]) == "" {
			dropped++
			continue
		}
		if !parseRawDate(row[dateIdx]) {
			dropped++
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row[amountIdx]))
		if err != nil {
			dropped++
			continue
		}
		if amount.Cmp(threshold) < 0 {
			dropped++
			continue
		}

		clean := append([]string(nil), row...)
		clean[dateIdx] = s.resampler.Sample().String()
		clean[amountIdx] = amount.String()
		out.Append(clean)
		userIDs = append(userIDs, assigner.Assign(""))
	}

	if err := out.AddColumn(canonicalUserCol, userIDs); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("source", s.Name()).
		Int("rows_in", len(t.Rows)).
		Int("rows_out", len(out.Rows)).
		Int("rows_dropped", dropped).
		Msg("source stage complete")

	return out, nil
}
