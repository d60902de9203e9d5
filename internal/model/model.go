// Package model holds the in-memory trace model: arena tables of terms and
// quantifier instantiations indexed by identifier. A Model is built once by a
// Builder and is read-only afterwards.
package model

import (
	"errors"
	"fmt"
	"iter"

	"qigraph/internal/qi"
)

// ErrUnresolved reports a term or instantiation reference that is not in the model.
var ErrUnresolved = errors.New("unresolved reference")

// TermKind classifies term table entries.
type TermKind uint8

const (
	TermApp TermKind = iota + 1
	TermVar
	TermQuant
	TermLambda
	TermProof
)

func (k TermKind) String() string {
	switch k {
	case TermApp:
		return "app"
	case TermVar:
		return "var"
	case TermQuant:
		return "quant"
	case TermLambda:
		return "lambda"
	case TermProof:
		return "proof"
	default:
		return "unknown"
	}
}

// Term is one entry of the term table.
type Term struct {
	ID      qi.TermID
	Kind    TermKind
	Name    string
	Args    []qi.TermID
	Meaning string
}

// Model is the read-only trace model.
type Model struct {
	terms   map[qi.TermID]*Term
	insts   map[qi.Key]*qi.Instantiation
	order   []qi.Key // log order
	version string
}

// Len returns the number of instantiation records.
func (m *Model) Len() int {
	return len(m.order)
}

// TermCount returns the number of terms in the term table.
func (m *Model) TermCount() int {
	return len(m.terms)
}

// SolverVersion returns the version announced by [tool-version], if any.
func (m *Model) SolverVersion() string {
	return m.version
}

// Keys returns instantiation keys in log order. The slice must not be modified.
func (m *Model) Keys() []qi.Key {
	return m.order
}

// All iterates instantiation records in log order.
func (m *Model) All() iter.Seq2[qi.Key, *qi.Instantiation] {
	return func(yield func(qi.Key, *qi.Instantiation) bool) {
		for _, k := range m.order {
			if !yield(k, m.insts[k]) {
				return
			}
		}
	}
}

// Instantiation looks up a record by key.
func (m *Model) Instantiation(k qi.Key) (*qi.Instantiation, bool) {
	inst, ok := m.insts[k]
	return inst, ok
}

// Term looks up a term by identifier.
func (m *Model) Term(id qi.TermID) (*Term, bool) {
	t, ok := m.terms[id]
	return t, ok
}

// TermName returns the declared name of a term.
func (m *Model) TermName(id qi.TermID) (string, error) {
	t, ok := m.terms[id]
	if !ok {
		return "", fmt.Errorf("term %s: %w", id, ErrUnresolved)
	}
	if t.Name == "" {
		return "", fmt.Errorf("term %s has no name: %w", id, ErrUnresolved)
	}
	return t.Name, nil
}

// QuantifierName resolves the display name of the quantifier behind an instantiation.
func (m *Model) QuantifierName(k qi.Key) (string, error) {
	inst, ok := m.insts[k]
	if !ok {
		return "", fmt.Errorf("instantiation %s: %w", k, ErrUnresolved)
	}
	return m.TermName(inst.Origin.Quantifier)
}
