package pipeline

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/dvloznov/transaction-unifier/internal/config"
	"github.com/dvloznov/transaction-unifier/internal/csvio"
)

// Raw column names of the credit-card flow export.
const (
	cardNameCol     = "Name"
	cardSurnameCol  = "Surname"
	cardDateCol     = "Date"
	cardFullNameCol = "FullName"
)

// CardStage cleans the credit-card flow. Displayed names are decoupled from
// the raw customer identifiers: the first name_limit distinct full names are
// tiled over the whole frame, and user identifiers come from a cyclic pool,
// optionally remapped through the identity mapper afterwards. When no rows
// are dropped and the pool size equals the mapper limit the remap is a pure
// relabeling; keeping it is the historical behavior, configurable via
// card.remap.
type CardStage struct {
	cfg       config.Card
	resampler *DateResampler
	mapper    *IdentityMapper
	log       zerolog.Logger
}

// NewCardStage builds the stage from its configuration.
func NewCardStage(cfg config.Card, overflowPolicy string, rng *rand.Rand, log zerolog.Logger) (*CardStage, error) {
	start, end, err := cfg.Window.Dates()
	if err != nil {
		return nil, err
	}
	return &CardStage{
		cfg:       cfg,
		resampler: NewDateResampler(start, end, rng),
		mapper:    NewIdentityMapper(cfg.MapperLimit, overflowPolicy == config.OverflowSticky, rng),
		log:       log,
	}, nil
}

// Name identifies the stage in logs and errors.
func (s *CardStage) Name() string { return "card" }

// Run transforms the raw table into the cleaned card frame. The output keeps
// the source columns and gains "FullName" and "User ID" columns.
func (s *CardStage) Run(t *csvio.Table) (*csvio.Table, error) {
	if err := requireColumns(t, s.Name(), cardNameCol, cardSurnameCol, cardDateCol); err != nil {
		return nil, err
	}

	nameIdx, _ := t.Col(cardNameCol)
	surnameIdx, _ := t.Col(cardSurnameCol)
	dateIdx, _ := t.Col(cardDateCol)

	// Merge the two name fields, then tile the first name_limit distinct
	// full names over every row in original order. Tiling happens before
	// the date filter, so dropped rows still consume pool slots.
	merged := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		merged[i] = row[nameIdx] + " " + row[surnameIdx]
	}
	names := tile(distinct(merged, s.cfg.NameLimit), len(t.Rows))

	assigner := NewCyclicAssigner(s.cfg.PoolSize)
	userIDs := make([]string, len(t.Rows))
	for i := range t.Rows {
		userIDs[i] = assigner.Assign("")
	}

	out := csvio.NewTable(t.Header)
	var keptNames, keptIDs []string
	dropped := 0

	for i, row := range t.Rows {
		if !parseRawDate(row[dateIdx]) {
			dropped++
			continue
		}
		clean := append([]string(nil), row...)
		clean[dateIdx] = s.resampler.Sample().String()
		out.Append(clean)
		keptNames = append(keptNames, names[i])
		keptIDs = append(keptIDs, userIDs[i])
	}

	if s.cfg.Remap {
		keptIDs = s.mapper.MapColumn(keptIDs)
	}

	if err := out.AddColumn(cardFullNameCol, keptNames); err != nil {
		return nil, err
	}
	if err := out.AddColumn(canonicalUserCol, keptIDs); err != nil {
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

// distinct returns up to limit distinct values in first-occurrence order.
func distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, limit)
	var out []string
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// tile repeats values from the start until n entries are produced.
func tile(values []string, n int) []string {
	if len(values) == 0 || n == 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = values[i%len(values)]
	}
	return out
}
