// Package blame attributes every e-node produced by a pattern-matched
// instantiation to the instantiation that created it.
package blame

import (
	"iter"

	"qigraph/internal/qi"
)

// Records is the part of the trace model the attributor reads.
type Records interface {
	All() iter.Seq2[qi.Key, *qi.Instantiation]
}

// Map maps a term to the instantiation responsible for it. A missing entry
// means the term has no traced producer (input axioms and the like).
type Map map[qi.TermID]qi.Key

// Lookup returns the producer of term, if any.
func (m Map) Lookup(term qi.TermID) (qi.Key, bool) {
	k, ok := m[term]
	return k, ok
}

// Conflict records a term claimed by more than one instantiation.
type Conflict struct {
	Term     qi.TermID
	Previous qi.Key
	Winner   qi.Key
}

// Attribute walks NewMatch records in log order. When several records claim
// the same term the last one wins; every overwrite is returned as a Conflict.
func Attribute(src Records) (Map, []Conflict) {
	blame := make(Map)
	var conflicts []Conflict
	for key, inst := range src.All() {
		if !inst.IsNewMatch() {
			continue
		}
		for _, term := range inst.ProducedTerms() {
			if prev, ok := blame[term]; ok && prev != key {
				conflicts = append(conflicts, Conflict{Term: term, Previous: prev, Winner: key})
			}
			blame[term] = key
		}
	}
	return blame, conflicts
}
