package model

import "qigraph/internal/qi"

// QuantCosts aggregates per-quantifier instantiation counts. Entries appear in
// the order their quantifier is first referenced in the log.
//
// Instantiations counts [instance] blocks; Cost counts the e-nodes those
// blocks attached.
func (m *Model) QuantCosts() []qi.QuantCost {
	index := make(map[qi.TermID]int)
	var out []qi.QuantCost
	for _, k := range m.order {
		inst := m.insts[k]
		quant := inst.Origin.Quantifier
		i, ok := index[quant]
		if !ok {
			i = len(out)
			index[quant] = i
			out = append(out, qi.QuantCost{
				Quantifier: quant,
				Label:      m.quantLabel(quant),
			})
		}
		out[i].Instantiations += uint64(len(inst.Instances))
		for j := range inst.Instances {
			out[i].Cost += uint64(len(inst.Instances[j].Enodes))
		}
	}
	return out
}

func (m *Model) quantLabel(id qi.TermID) string {
	if t, ok := m.terms[id]; ok && t.Name != "" {
		return t.Name
	}
	return id.String()
}
