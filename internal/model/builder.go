package model

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"qigraph/internal/qi"
)

var (
	// ErrNoOpenInstance is returned when an e-node is attached outside [instance] ... [end-of-instance].
	ErrNoOpenInstance = errors.New("no open instance")
	// ErrNestedInstance is returned when [instance] starts before the previous one ended.
	ErrNestedInstance = errors.New("instance already open")
)

// Builder accumulates terms and instantiations into a Model.
type Builder struct {
	m        *Model
	versions map[uint64]uint32 // next free version per fingerprint
	open     *qi.Instantiation
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		m: &Model{
			terms: make(map[qi.TermID]*Term),
			insts: make(map[qi.Key]*qi.Instantiation),
		},
		versions: make(map[uint64]uint32),
	}
}

// SetSolverVersion records the solver version string.
func (b *Builder) SetSolverVersion(v string) {
	b.m.version = v
}

// AddTerm inserts or replaces a term table entry.
func (b *Builder) AddTerm(t Term) {
	stored := t
	b.m.terms[t.ID] = &stored
}

// Quantifier is a shortcut for AddTerm with TermQuant.
func (b *Builder) Quantifier(id qi.TermID, name string) {
	b.AddTerm(Term{ID: id, Kind: TermQuant, Name: name})
}

// SetMeaning attaches theory meaning text to an existing term.
func (b *Builder) SetMeaning(id qi.TermID, meaning string) error {
	t, ok := b.m.terms[id]
	if !ok {
		return fmt.Errorf("attach meaning to %s: %w", id, ErrUnresolved)
	}
	t.Meaning = meaning
	return nil
}

// AddInstantiation registers a new record for fingerprint id. A fingerprint seen
// before gets the next version.
func (b *Builder) AddInstantiation(id uint64, origin qi.Origin) (qi.Key, error) {
	next, seen := b.versions[id]
	if seen && next == ^uint32(0) {
		return qi.Key{}, fmt.Errorf("instantiation 0x%x: too many versions", id)
	}
	key := qi.Key{ID: id, Version: next}
	b.versions[id] = next + 1
	b.m.insts[key] = &qi.Instantiation{Key: key, Origin: origin}
	b.m.order = append(b.m.order, key)
	return key, nil
}

// NewMatch registers an OriginNewMatch record.
func (b *Builder) NewMatch(id uint64, quant qi.TermID, used ...qi.MatchedTerm) (qi.Key, error) {
	return b.AddInstantiation(id, qi.Origin{
		Kind:       qi.OriginNewMatch,
		Quantifier: quant,
		Used:       used,
	})
}

// Discovered registers an OriginDiscovered record.
func (b *Builder) Discovered(id uint64, quant qi.TermID, method string) (qi.Key, error) {
	return b.AddInstantiation(id, qi.Origin{
		Kind:       qi.OriginDiscovered,
		Quantifier: quant,
		Method:     method,
	})
}

// Latest returns the most recent version of fingerprint id.
func (b *Builder) Latest(id uint64) (qi.Key, bool) {
	next, ok := b.versions[id]
	if !ok {
		return qi.Key{}, false
	}
	version, err := safecast.Conv[uint32](int64(next) - 1)
	if err != nil {
		return qi.Key{}, false
	}
	return qi.Key{ID: id, Version: version}, true
}

// BeginInstance opens an instance of the latest version of fingerprint id.
func (b *Builder) BeginInstance(id uint64, proof qi.TermID, generation uint64) (qi.Key, error) {
	if b.open != nil {
		return qi.Key{}, fmt.Errorf("instance of 0x%x: %w (%s)", id, ErrNestedInstance, b.open.Key)
	}
	key, ok := b.Latest(id)
	if !ok {
		return qi.Key{}, fmt.Errorf("instance of 0x%x: %w", id, ErrUnresolved)
	}
	inst := b.m.insts[key]
	inst.Instances = append(inst.Instances, qi.Instance{Proof: proof, Generation: generation})
	b.open = inst
	return key, nil
}

// AttachEnode records a term produced by the open instance.
func (b *Builder) AttachEnode(term qi.TermID) error {
	if b.open == nil {
		return fmt.Errorf("attach %s: %w", term, ErrNoOpenInstance)
	}
	last := &b.open.Instances[len(b.open.Instances)-1]
	last.Enodes = append(last.Enodes, term)
	return nil
}

// EndInstance closes the open instance. Closing with nothing open is a no-op.
func (b *Builder) EndInstance() {
	b.open = nil
}

// InstanceOpen reports whether an instance is currently open.
func (b *Builder) InstanceOpen() bool {
	return b.open != nil
}

// Instance is a test-friendly shortcut: one complete instance of fingerprint id
// producing the given terms.
func (b *Builder) Instance(id uint64, enodes ...qi.TermID) error {
	if _, err := b.BeginInstance(id, qi.TermID{}, 0); err != nil {
		return err
	}
	defer b.EndInstance()
	for _, e := range enodes {
		if err := b.AttachEnode(e); err != nil {
			return err
		}
	}
	return nil
}

// Build finalises the model. The Builder must not be used afterwards.
func (b *Builder) Build() *Model {
	m := b.m
	b.m = nil
	b.open = nil
	return m
}
