// Package rank orders quantifiers by the cost their instantiations incur.
package rank

import (
	"errors"
	"math/bits"
	"slices"

	"qigraph/internal/qi"
)

// ErrNoInstantiations is returned when costs exist but none was instantiated,
// so no share can be computed.
var ErrNoInstantiations = errors.New("total instantiation count is zero")

// Line is one row of the ranked report.
type Line struct {
	Label          string `json:"quantifier" yaml:"quantifier" msgpack:"label"`
	Instantiations uint64 `json:"instantiations" yaml:"instantiations" msgpack:"inst"`
	Cost           uint64 `json:"cost" yaml:"cost" msgpack:"cost"`
	Percent        uint64 `json:"percent" yaml:"percent" msgpack:"pct"`
}

// Rank returns a copy of costs sorted by descending Score. Equal scores keep
// their input order.
func Rank(costs []qi.QuantCost) []qi.QuantCost {
	out := slices.Clone(costs)
	slices.SortStableFunc(out, func(a, b qi.QuantCost) int {
		return b.CompareScore(a)
	})
	return out
}

// Total sums instantiations over all entries.
func Total(costs []qi.QuantCost) uint64 {
	var total uint64
	for _, c := range costs {
		total += c.Instantiations
	}
	return total
}

// Report ranks costs and computes each quantifier's share of all
// instantiations, truncated to a whole percent.
func Report(costs []qi.QuantCost) ([]Line, uint64, error) {
	ranked := Rank(costs)
	total := Total(ranked)
	if len(ranked) == 0 {
		return nil, 0, nil
	}
	if total == 0 {
		return nil, 0, ErrNoInstantiations
	}
	lines := make([]Line, len(ranked))
	for i, c := range ranked {
		lines[i] = Line{
			Label:          c.Label,
			Instantiations: c.Instantiations,
			Cost:           c.Cost,
			Percent:        percent(c.Instantiations, total),
		}
	}
	return lines, total, nil
}

// percent computes floor(100*part/total) exactly. part <= total, so the
// quotient fits in 64 bits.
func percent(part, total uint64) uint64 {
	hi, lo := bits.Mul64(part, 100)
	q, _ := bits.Div64(hi, lo, total)
	return q
}
