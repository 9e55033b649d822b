package pipeline

import (
	"fmt"
	"math/rand"
)

// SyntheticID formats a synthetic user identifier, e.g. SyntheticID(7) ==
// "USER__007".
func SyntheticID(n int) string {
	return fmt.Sprintf("USER__%03d", n)
}

// Assigner produces a synthetic user identifier for one row. The two
// implementations are deliberately distinct policies: CyclicAssigner cycles a
// fixed pool deterministically and ignores the raw value, IdentityMapper keeps
// a stable bijection for the first N distinct raw identifiers and randomizes
// the rest.
type Assigner interface {
	Assign(raw string) string
}

// CyclicAssigner hands out SyntheticID(1)..SyntheticID(size) in row order,
// wrapping around when the pool is exhausted.
type CyclicAssigner struct {
	pool []string
	next int
}

// NewCyclicAssigner creates an assigner over a pool of size identifiers.
func NewCyclicAssigner(size int) *CyclicAssigner {
	pool := make([]string, size)
	for i := range pool {
		pool[i] = SyntheticID(i + 1)
	}
	return &CyclicAssigner{pool: pool}
}

// Assign returns the next identifier in the cycle. The raw value is ignored.
func (a *CyclicAssigner) Assign(string) string {
	id := a.pool[a.next]
	a.next = (a.next + 1) % len(a.pool)
	return id
}

// IdentityMapper maps raw identifiers onto the bounded synthetic space
// SyntheticID(1)..SyntheticID(limit). The first limit distinct raw values seen
// by Fit get stable assignments in first-occurrence order; anything else is an
// overflow identifier and draws a random in-range identifier.
//
// With the "random" policy an overflow identifier draws independently per
// occurrence, so two rows with the same raw value can end up under different
// users. The "sticky" policy memoizes the first draw per raw value for the
// duration of the run.
type IdentityMapper struct {
	limit  int
	sticky bool
	rng    *rand.Rand

	known    map[string]string
	overflow map[string]string
}

// NewIdentityMapper creates a mapper. sticky selects the memoized overflow
// policy. The caller owns the rand source; a seeded source makes the mapper
// deterministic.
func NewIdentityMapper(limit int, sticky bool, rng *rand.Rand) *IdentityMapper {
	return &IdentityMapper{
		limit:    limit,
		sticky:   sticky,
		rng:      rng,
		known:    make(map[string]string, limit),
		overflow: make(map[string]string),
	}
}

// Fit records the stable assignments: the first limit distinct values of the
// column, in first-occurrence order.
func (m *IdentityMapper) Fit(values []string) {
	for _, v := range values {
		if len(m.known) == m.limit {
			return
		}
		if _, seen := m.known[v]; !seen {
			m.known[v] = SyntheticID(len(m.known) + 1)
		}
	}
}

// Assign maps one raw identifier. Every returned identifier lies in
// 1..limit.
func (m *IdentityMapper) Assign(raw string) string {
	if id, ok := m.known[raw]; ok {
		return id
	}
	if m.sticky {
		if id, ok := m.overflow[raw]; ok {
			return id
		}
	}
	id := SyntheticID(m.rng.Intn(m.limit) + 1)
	if m.sticky {
		m.overflow[raw] = id
	}
	return id
}

// MapColumn fits the mapper on the column and maps every value.
func (m *IdentityMapper) MapColumn(values []string) []string {
	m.Fit(values)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = m.Assign(v)
	}
	return out
}
