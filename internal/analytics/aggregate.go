package analytics

import (
	"math"
	"slices"

	"campaign-analytics/internal/model"
)

// measure accumulates one numeric column, skipping missing (NaN) values.
type measure struct {
	total float64
	n     int
}

func (m *measure) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	m.total += v
	m.n++
}

// sum returns the total of the non-missing values; 0 when there were none.
func (m measure) sum() model.Float { return model.Float(m.total) }

// mean returns the arithmetic mean of the non-missing values; NaN when there were none.
func (m measure) mean() model.Float {
	if m.n == 0 {
		return model.Float(math.NaN())
	}
	return model.Float(m.total / float64(m.n))
}

// accumulator is the per-group state of a group-by fold.
type accumulator struct {
	revenue     measure
	conversions measure
	count       int
}

func (a *accumulator) add(rec model.Record) {
	a.revenue.add(rec.Revenue)
	a.conversions.add(rec.Conversions)
	a.count++
}

// fold partitions records by key and accumulates each partition in one pass.
type fold[K comparable] struct {
	groups map[K]*accumulator
	keys   []K
}

func newFold[K comparable]() *fold[K] {
	return &fold[K]{groups: make(map[K]*accumulator)}
}

func (f *fold[K]) add(key K, rec model.Record) {
	acc, ok := f.groups[key]
	if !ok {
		acc = &accumulator{}
		f.groups[key] = acc
		f.keys = append(f.keys, key)
	}
	acc.add(rec)
}

// sorted returns the group keys ordered by cmp.
func (f *fold[K]) sorted(cmp func(a, b K) int) []K {
	keys := slices.Clone(f.keys)
	slices.SortStableFunc(keys, cmp)
	return keys
}

func (f *fold[K]) get(key K) *accumulator { return f.groups[key] }

