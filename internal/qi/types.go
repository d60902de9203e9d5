package qi

import (
	"cmp"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Key identifies one instantiation event. Z3 reuses match fingerprints, so
// Version separates re-instantiations that share the same ID.
type Key struct {
	ID      uint64
	Version uint32
}

func (k Key) String() string {
	return fmt.Sprintf("(0x%x,%d)", k.ID, k.Version)
}

// Less orders keys by ID, then version.
func (k Key) Less(other Key) bool {
	if k.ID != other.ID {
		return k.ID < other.ID
	}
	return k.Version < other.Version
}

// ParseKeyID parses a hex fingerprint such as "0x55d3c1a0".
func ParseKeyID(s string) (uint64, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return 0, fmt.Errorf("instantiation key %q: missing 0x prefix", s)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("instantiation key %q: %w", s, err)
	}
	return v, nil
}

// TermID is a term (e-node) reference, written "#12" or "datatype#12" in logs.
type TermID struct {
	Namespace string
	Num       uint64
}

func (t TermID) String() string {
	return t.Namespace + "#" + strconv.FormatUint(t.Num, 10)
}

// IsZero reports whether t is the zero TermID.
func (t TermID) IsZero() bool {
	return t == TermID{}
}

// ParseTermID parses "#12" or "ns#12".
func ParseTermID(s string) (TermID, error) {
	ns, num, ok := strings.Cut(s, "#")
	if !ok {
		return TermID{}, fmt.Errorf("term id %q: missing '#'", s)
	}
	v, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return TermID{}, fmt.Errorf("term id %q: %w", s, err)
	}
	return TermID{Namespace: ns, Num: v}, nil
}

// MatchedTermKind tags a MatchedTerm.
type MatchedTermKind uint8

const (
	// MatchedTrigger is a term that matched a pattern.
	MatchedTrigger MatchedTermKind = iota + 1
	// MatchedEquality is an equality fact used while matching.
	MatchedEquality
)

func (k MatchedTermKind) String() string {
	switch k {
	case MatchedTrigger:
		return "trigger"
	case MatchedEquality:
		return "equality"
	default:
		return "unknown"
	}
}

// MatchedTerm is one entry of the "used" list of a new-match line.
// Trigger uses Term; Equality uses Left and Right.
type MatchedTerm struct {
	Kind  MatchedTermKind
	Term  TermID
	Left  TermID
	Right TermID
}

// Trigger builds a trigger MatchedTerm.
func Trigger(t TermID) MatchedTerm {
	return MatchedTerm{Kind: MatchedTrigger, Term: t}
}

// Equality builds an equality MatchedTerm.
func Equality(a, b TermID) MatchedTerm {
	return MatchedTerm{Kind: MatchedEquality, Left: a, Right: b}
}

func (m MatchedTerm) String() string {
	switch m.Kind {
	case MatchedTrigger:
		return m.Term.String()
	case MatchedEquality:
		return "(" + m.Left.String() + " " + m.Right.String() + ")"
	default:
		return "?"
	}
}

// OriginKind tags how an instantiation came to be.
type OriginKind uint8

const (
	// OriginDiscovered instantiations were found passively (theory solving, MBQI).
	OriginDiscovered OriginKind = iota + 1
	// OriginNewMatch instantiations come from an explicit E-matching hit.
	OriginNewMatch
)

func (k OriginKind) String() string {
	switch k {
	case OriginDiscovered:
		return "discovered"
	case OriginNewMatch:
		return "new-match"
	default:
		return "unknown"
	}
}

// Origin describes the cause of an instantiation.
type Origin struct {
	Kind       OriginKind
	Quantifier TermID
	// Pattern and Used are set for OriginNewMatch only.
	Pattern  TermID
	Bindings []TermID
	Used     []MatchedTerm
	// Method is set for OriginDiscovered only (e.g. "theory-solving", "MBQI").
	Method   string
	Blamed   []TermID
}

// Instance is one [instance] ... [end-of-instance] block.
type Instance struct {
	Proof      TermID
	Generation uint64
	Enodes     []TermID
}

// Instantiation is one quantifier firing record together with its instances.
type Instantiation struct {
	Key       Key
	Origin    Origin
	Instances []Instance
}

// ProducedTerms returns every e-node attached by the instances, in log order.
func (q *Instantiation) ProducedTerms() []TermID {
	n := 0
	for i := range q.Instances {
		n += len(q.Instances[i].Enodes)
	}
	if n == 0 {
		return nil
	}
	out := make([]TermID, 0, n)
	for i := range q.Instances {
		out = append(out, q.Instances[i].Enodes...)
	}
	return out
}

// IsNewMatch reports whether the record participates in the causal graph.
func (q *Instantiation) IsNewMatch() bool {
	return q.Origin.Kind == OriginNewMatch
}

// QuantCost aggregates instantiation counts for one quantifier.
type QuantCost struct {
	Quantifier     TermID `json:"-" yaml:"-" msgpack:"quantifier"`
	Label          string `json:"quantifier" yaml:"quantifier" msgpack:"label"`
	Instantiations uint64 `json:"instantiations" yaml:"instantiations" msgpack:"instantiations"`
	Cost           uint64 `json:"cost" yaml:"cost" msgpack:"cost"`
}

// Score is the ranking weight instantiations × cost as a 128-bit product.
func (c QuantCost) Score() (hi, lo uint64) {
	return bits.Mul64(c.Instantiations, c.Cost)
}

// CompareScore orders c and o by Score.
func (c QuantCost) CompareScore(o QuantCost) int {
	ah, al := c.Score()
	bh, bl := o.Score()
	if ah != bh {
		return cmp.Compare(ah, bh)
	}
	return cmp.Compare(al, bl)
}
