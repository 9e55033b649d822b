package pipeline

import (
	"math/rand"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/transaction-unifier/internal/config"
	"github.com/dvloznov/transaction-unifier/internal/csvio"
)

// Raw column names of the digital-wallet export.
const (
	walletUserCol   = "user_id"
	walletAmountCol = "product_amount"
	walletFeeCol    = "transaction_fee"
	walletStatusCol = "transaction_status"
	walletDateCol   = "transaction_date"
	walletUSDCol    = "USD"
)

// WalletStage cleans the digital-wallet events: dates are resampled, raw user
// identifiers go through the identity mapper, the USD amount is derived from
// product amount plus fee at the configured conversion rate, and only rows
// with the configured success status survive. The mapper is fitted before the
// status filter, so failed transactions still occupy stable identity slots.
type WalletStage struct {
	cfg       config.Wallet
	resampler *DateResampler
	mapper    *IdentityMapper
	log       zerolog.Logger
}

// NewWalletStage builds the stage from its configuration.
func NewWalletStage(cfg config.Wallet, overflowPolicy string, rng *rand.Rand, log zerolog.Logger) (*WalletStage, error) {
	start, end, err := cfg.Window.Dates()
	if err != nil {
		return nil, err
	}
	return &WalletStage{
		cfg:       cfg,
		resampler: NewDateResampler(start, end, rng),
		mapper:    NewIdentityMapper(cfg.MapperLimit, overflowPolicy == config.OverflowSticky, rng),
		log:       log,
	}, nil
}

// Name identifies the stage in logs and errors.
func (s *WalletStage) Name() string { return "wallet" }

// Run transforms the raw table into the cleaned wallet frame. The output
// keeps the source columns (resampled dates, remapped user identifiers) and
// gains a derived "USD" column.
func (s *WalletStage) Run(t *csvio.Table) (*csvio.Table, error) {
	if err := requireColumns(t, s.Name(),
		walletUserCol, walletAmountCol, walletFeeCol, walletStatusCol, walletDateCol); err != nil {
		return nil, err
	}

	userIdx, _ := t.Col(walletUserCol)
	amountIdx, _ := t.Col(walletAmountCol)
	feeIdx, _ := t.Col(walletFeeCol)
	statusIdx, _ := t.Col(walletStatusCol)
	dateIdx, _ := t.Col(walletDateCol)

	rate := decimal.NewFromFloat(s.cfg.ConversionRate)

	// First pass: drop rows with unparseable dates or amounts, resample the
	// surviving dates and derive the USD amount.
	parsed := csvio.NewTable(t.Header)
	var rawIDs, usd []string
	dropped := 0

	for _, row := range t.Rows {
		if !parseRawDate(row[dateIdx]) {
			dropped++
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row[amountIdx]))
		if err != nil {
			dropped++
			continue
		}
		fee, err := decimal.NewFromString(strings.TrimSpace(row[feeIdx]))
		if err != nil {
			dropped++
			continue
		}

		clean := append([]string(nil), row...)
		clean[dateIdx] = s.resampler.Sample().String()
		parsed.Append(clean)
		rawIDs = append(rawIDs, row[userIdx])
		usd = append(usd, amount.Add(fee).Mul(rate).String())
	}

	// Remap identities over everything that parsed, then keep only
	// successful transactions.
	mapped := s.mapper.MapColumn(rawIDs)

	out := csvio.NewTable(parsed.Header)
	var keptUSD []string
	for i, row := range parsed.Rows {
		if row[statusIdx] != s.cfg.SuccessStatus {
			dropped++
			continue
		}
		row[userIdx] = mapped[i]
		out.Append(row)
		keptUSD = append(keptUSD, usd[i])
	}

	if err := out.AddColumn(walletUSDCol, keptUSD); err != nil {
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
