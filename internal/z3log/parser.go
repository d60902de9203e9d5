// Package z3log reads the trace log Z3 writes with trace=true and turns it
// into a model.Model.
//
// Only the lines that describe terms, quantifier matches and instances are
// modelled; bookkeeping lines of the core solver (push, pop, assign, conflict
// and so on) are recognised and skipped.
package z3log

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"qigraph/internal/diag"
	"qigraph/internal/model"
	"qigraph/internal/qi"
	"qigraph/internal/trace"
)

var (
	// ErrOpenInput wraps failures to open or stat the input log.
	ErrOpenInput = errors.New("cannot open input")
	// ErrUnsupportedVersion is returned for logs older than MinVersion.
	ErrUnsupportedVersion = errors.New("unsupported solver version")
)

const maxLineSize = 64 << 20

// LineError is returned when a malformed line is fatal (IgnoreInvalidLines=false).
type LineError struct {
	Line uint32
	Code diag.Code
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code.ID(), e.Msg)
}

// Stats counts what the reader saw. Ignored counts recognised but unmodelled
// lines; Equalities counts [eq-expl] lines when LogTermEqualities is set.
type Stats struct {
	Lines      int `json:"lines" yaml:"lines" msgpack:"lines"`
	Terms      int `json:"terms" yaml:"terms" msgpack:"terms"`
	Matches    int `json:"new_matches" yaml:"new_matches" msgpack:"new_matches"`
	Discovered int `json:"discovered" yaml:"discovered" msgpack:"discovered"`
	Instances  int `json:"instances" yaml:"instances" msgpack:"instances"`
	Enodes     int `json:"enodes" yaml:"enodes" msgpack:"enodes"`
	Ignored    int `json:"ignored" yaml:"ignored" msgpack:"ignored"`
	Invalid    int `json:"invalid" yaml:"invalid" msgpack:"invalid"`
	Equalities int `json:"equalities" yaml:"equalities" msgpack:"equalities"`
}

// Result is the outcome of reading one log.
type Result struct {
	Model       *model.Model
	Diagnostics *diag.Bag
	Stats       Stats
}

// ParseFile opens path and parses it. The file size drives progress fractions.
func ParseFile(ctx context.Context, path string, cfg Config, sink Sink) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpenInput, path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpenInput, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w %q: is a directory", ErrOpenInput, path)
	}
	return Parse(ctx, f, info.Size(), cfg, sink)
}

// Parse reads a log from r. total is the input size in bytes (0 if unknown).
func Parse(ctx context.Context, r io.Reader, total int64, cfg Config, sink Sink) (*Result, error) {
	cfg = cfg.normalized()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "read", trace.CurrentSpan(ctx))

	p := &parser{
		cfg:    cfg,
		b:      model.NewBuilder(),
		bag:    diag.NewBag(cfg.MaxDiagnostics),
		sink:   sink,
		total:  total,
		tracer: tracer,
		spanID: span.ID(),
	}
	p.rep = diag.BagReporter{Bag: p.bag}

	err := p.run(ctx, r)
	span.Count("lines", p.stats.Lines).
		Count("instantiations", p.stats.Matches+p.stats.Discovered).
		Finish(err, "")
	if err != nil {
		return nil, err
	}

	if p.sink != nil {
		p.sink.OnEvent(Event{Stage: StageDone, Lines: p.stats.Lines, Bytes: p.read, Total: p.total})
	}
	return &Result{Model: p.b.Build(), Diagnostics: p.bag, Stats: p.stats}, nil
}

type parser struct {
	cfg    Config
	b      *model.Builder
	bag    *diag.Bag
	rep    diag.Reporter
	sink   Sink
	total  int64
	read   int64
	line   uint32
	stats  Stats
	tracer trace.Tracer
	spanID uint64
}

func (p *parser) run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	for sc.Scan() {
		raw := sc.Text()
		p.read += int64(len(raw)) + 1
		p.stats.Lines++
		line, err := safecast.Conv[uint32](p.stats.Lines)
		if err != nil {
			return fmt.Errorf("log too long: %w", err)
		}
		p.line = line

		if p.stats.Lines%p.cfg.ProgressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.progress()
		}

		stop, err := p.handle(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if p.b.InstanceOpen() {
		if err := p.invalid(diag.LogUnclosedInstance, "log ended inside an instance"); err != nil {
			return err
		}
		p.b.EndInstance()
	}
	return nil
}

func (p *parser) progress() {
	trace.Point(p.tracer, trace.ScopeItem, "progress", fmt.Sprintf("%d lines", p.stats.Lines), p.spanID)
	if p.sink != nil {
		p.sink.OnEvent(Event{Stage: StageRead, Lines: p.stats.Lines, Bytes: p.read, Total: p.total})
	}
}

// invalid reports a malformed line: a warning when lenient, an error otherwise.
func (p *parser) invalid(code diag.Code, format string, args ...any) error {
	p.stats.Invalid++
	msg := fmt.Sprintf(format, args...)
	if !p.cfg.IgnoreInvalidLines {
		return &LineError{Line: p.line, Code: code, Msg: msg}
	}
	p.rep.Report(code, diag.SevWarning, diag.Span{Line: p.line}, msg)
	return nil
}

// ignoredTags are solver bookkeeping lines that carry nothing for causality.
var ignoredTags = map[string]struct{}{
	"push":               {},
	"pop":                {},
	"assign":             {},
	"decide-and-or":      {},
	"begin-check":        {},
	"conflict":           {},
	"resolve-lit":        {},
	"resolve-process":    {},
	"attach-var-names":   {},
	"inc-gen":            {},
	"mk-ctor":            {},
	"mk-datatype":        {},
	"eq-expl":            {},
	"query-done":         {},
	"instance-discarded": {},
}

func (p *parser) handle(line string) (stop bool, err error) {
	if line == "" {
		return false, nil
	}
	tag, rest, ok := splitTag(line)
	if !ok {
		return false, p.invalid(diag.LogMalformedLine, "expected \"[tag] ...\", got %q", truncate(line, 40))
	}
	fields := splitFields(rest)

	switch tag {
	case "tool-version":
		return false, p.toolVersion(fields)
	case "mk-app":
		return false, p.mkApp(fields, model.TermApp)
	case "mk-proof":
		return false, p.mkApp(fields, model.TermProof)
	case "mk-var":
		return false, p.mkVar(fields)
	case "mk-quant":
		return false, p.mkQuant(fields, model.TermQuant)
	case "mk-lambda":
		return false, p.mkQuant(fields, model.TermLambda)
	case "attach-meaning":
		return false, p.attachMeaning(fields)
	case "new-match":
		return false, p.newMatch(fields)
	case "inst-discovered":
		return false, p.instDiscovered(fields)
	case "instance":
		return false, p.instance(fields)
	case "attach-enode":
		return false, p.attachEnode(fields)
	case "end-of-instance":
		p.b.EndInstance()
		return false, nil
	case "eof":
		return true, nil
	}
	if _, known := ignoredTags[tag]; known {
		p.stats.Ignored++
		if tag == "eq-expl" && p.cfg.LogTermEqualities {
			p.stats.Equalities++
		}
		return false, nil
	}
	return false, p.invalid(diag.LogUnknownTag, "unknown tag [%s]", tag)
}

func (p *parser) toolVersion(fields []string) error {
	if len(fields) < 2 {
		return p.invalid(diag.LogMissingField, "[tool-version] expects solver name and version")
	}
	version := fields[1]
	p.b.SetSolverVersion(fields[0] + " " + version)
	if p.cfg.SkipVersionCheck {
		return nil
	}
	if fields[0] != "Z3" || !versionAtLeast(version, MinVersion) {
		return fmt.Errorf("%w: %s %s (need Z3 %d.%d.%d or newer)",
			ErrUnsupportedVersion, fields[0], version, MinVersion[0], MinVersion[1], MinVersion[2])
	}
	return nil
}

func (p *parser) termID(s string) (qi.TermID, bool, error) {
	id, err := qi.ParseTermID(s)
	if err != nil {
		return qi.TermID{}, false, p.invalid(diag.LogBadTermID, "%v", err)
	}
	return id, true, nil
}

// termIDs parses every token; ok is false if any token was malformed.
func (p *parser) termIDs(tokens []string) ([]qi.TermID, bool, error) {
	if len(tokens) == 0 {
		return nil, true, nil
	}
	out := make([]qi.TermID, 0, len(tokens))
	for _, tok := range tokens {
		id, ok, err := p.termID(tok)
		if err != nil || !ok {
			return nil, false, err
		}
		out = append(out, id)
	}
	return out, true, nil
}

func (p *parser) mkApp(fields []string, kind model.TermKind) error {
	if len(fields) < 2 {
		return p.invalid(diag.LogMissingField, "[mk-%s] expects id and name", kind)
	}
	id, ok, err := p.termID(fields[0])
	if !ok {
		return err
	}
	args, ok, err := p.termIDs(fields[2:])
	if !ok {
		return err
	}
	p.b.AddTerm(model.Term{ID: id, Kind: kind, Name: symbolName(fields[1]), Args: args})
	p.stats.Terms++
	return nil
}

func (p *parser) mkVar(fields []string) error {
	if len(fields) < 2 {
		return p.invalid(diag.LogMissingField, "[mk-var] expects id and index")
	}
	id, ok, err := p.termID(fields[0])
	if !ok {
		return err
	}
	p.b.AddTerm(model.Term{ID: id, Kind: model.TermVar, Name: "var" + fields[1]})
	p.stats.Terms++
	return nil
}

// mkQuant: #id name nvars pattern... body
func (p *parser) mkQuant(fields []string, kind model.TermKind) error {
	if len(fields) < 3 {
		return p.invalid(diag.LogMissingField, "[mk-%s] expects id, name and variable count", kind)
	}
	id, ok, err := p.termID(fields[0])
	if !ok {
		return err
	}
	if _, err := strconv.ParseUint(fields[2], 10, 32); err != nil {
		return p.invalid(diag.LogBadNumber, "variable count %q: %v", fields[2], err)
	}
	args, ok, err := p.termIDs(fields[3:])
	if !ok {
		return err
	}
	p.b.AddTerm(model.Term{ID: id, Kind: kind, Name: symbolName(fields[1]), Args: args})
	p.stats.Terms++
	return nil
}

func (p *parser) attachMeaning(fields []string) error {
	if len(fields) < 3 {
		return p.invalid(diag.LogMissingField, "[attach-meaning] expects id, theory and value")
	}
	id, ok, err := p.termID(fields[0])
	if !ok {
		return err
	}
	if err := p.b.SetMeaning(id, fields[1]+" "+strings.Join(fields[2:], " ")); err != nil {
		return p.invalid(diag.LogUnknownTerm, "%v", err)
	}
	return nil
}

// newMatch: 0xKEY #quant #pattern binding... ; used...
func (p *parser) newMatch(fields []string) error {
	head, used, _ := cutSemicolon(fields)
	if len(head) < 3 {
		return p.invalid(diag.LogMissingField, "[new-match] expects key, quantifier and pattern")
	}
	key, err := qi.ParseKeyID(head[0])
	if err != nil {
		return p.invalid(diag.LogBadKey, "%v", err)
	}
	quant, ok, err := p.termID(head[1])
	if !ok {
		return err
	}
	pattern, ok, err := p.termID(head[2])
	if !ok {
		return err
	}
	bindings, ok, err := p.termIDs(head[3:])
	if !ok {
		return err
	}
	matched := make([]qi.MatchedTerm, 0, len(used))
	for _, tok := range used {
		m, ok, err := p.matchedTerm(tok)
		if !ok {
			return err
		}
		matched = append(matched, m)
	}
	if _, err := p.b.AddInstantiation(key, qi.Origin{
		Kind:       qi.OriginNewMatch,
		Quantifier: quant,
		Pattern:    pattern,
		Bindings:   bindings,
		Used:       matched,
	}); err != nil {
		return p.invalid(diag.LogBadKey, "%v", err)
	}
	p.stats.Matches++
	return nil
}

// matchedTerm parses "#t" (trigger) or "(#a #b)" (equality).
func (p *parser) matchedTerm(tok string) (qi.MatchedTerm, bool, error) {
	if strings.HasPrefix(tok, "(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(tok, "("), ")")
		parts := strings.Fields(inner)
		if len(parts) != 2 {
			return qi.MatchedTerm{}, false, p.invalid(diag.LogBadTermID, "equality %q: want two terms", tok)
		}
		a, ok, err := p.termID(parts[0])
		if !ok {
			return qi.MatchedTerm{}, false, err
		}
		b, ok, err := p.termID(parts[1])
		if !ok {
			return qi.MatchedTerm{}, false, err
		}
		return qi.Equality(a, b), true, nil
	}
	t, ok, err := p.termID(tok)
	if !ok {
		return qi.MatchedTerm{}, false, err
	}
	return qi.Trigger(t), true, nil
}

// instDiscovered: method 0xKEY #quant binding... ; blamed...
func (p *parser) instDiscovered(fields []string) error {
	head, blamedTok, _ := cutSemicolon(fields)
	if len(head) < 3 {
		return p.invalid(diag.LogMissingField, "[inst-discovered] expects method, key and quantifier")
	}
	key, err := qi.ParseKeyID(head[1])
	if err != nil {
		return p.invalid(diag.LogBadKey, "%v", err)
	}
	quant, ok, err := p.termID(head[2])
	if !ok {
		return err
	}
	bindings, ok, err := p.termIDs(head[3:])
	if !ok {
		return err
	}
	blamed, ok, err := p.termIDs(blamedTok)
	if !ok {
		return err
	}
	if _, err := p.b.AddInstantiation(key, qi.Origin{
		Kind:       qi.OriginDiscovered,
		Quantifier: quant,
		Bindings:   bindings,
		Method:     head[0],
		Blamed:     blamed,
	}); err != nil {
		return p.invalid(diag.LogBadKey, "%v", err)
	}
	p.stats.Discovered++
	return nil
}

// instance: 0xKEY [#proof] [; generation]
func (p *parser) instance(fields []string) error {
	head, tail, _ := cutSemicolon(fields)
	if len(head) < 1 {
		return p.invalid(diag.LogMissingField, "[instance] expects a key")
	}
	key, err := qi.ParseKeyID(head[0])
	if err != nil {
		return p.invalid(diag.LogBadKey, "%v", err)
	}
	var proof qi.TermID
	if len(head) > 1 {
		id, ok, err := p.termID(head[1])
		if !ok {
			return err
		}
		proof = id
	}
	var generation uint64
	if len(tail) > 0 {
		generation, err = strconv.ParseUint(tail[0], 10, 64)
		if err != nil {
			return p.invalid(diag.LogBadNumber, "generation %q: %v", tail[0], err)
		}
	}
	if p.b.InstanceOpen() {
		if err := p.invalid(diag.LogNestedInstance, "[instance] 0x%x before [end-of-instance]", key); err != nil {
			return err
		}
		p.b.EndInstance()
	}
	if _, err := p.b.BeginInstance(key, proof, generation); err != nil {
		return p.invalid(diag.LogUnknownInstance, "%v", err)
	}
	p.stats.Instances++
	return nil
}

// attachEnode: #id generation
func (p *parser) attachEnode(fields []string) error {
	if len(fields) < 1 {
		return p.invalid(diag.LogMissingField, "[attach-enode] expects a term")
	}
	id, ok, err := p.termID(fields[0])
	if !ok {
		return err
	}
	if err := p.b.AttachEnode(id); err != nil {
		if errors.Is(err, model.ErrNoOpenInstance) {
			// Z3 also attaches e-nodes while asserting input formulas; those
			// have no instantiation to blame.
			p.stats.Ignored++
			return nil
		}
		return p.invalid(diag.LogOrphanEnode, "%v", err)
	}
	p.stats.Enodes++
	return nil
}

// versionAtLeast compares dotted versions numerically; junk compares as 0.
func versionAtLeast(v string, min [3]int) bool {
	parts := strings.SplitN(v, ".", 3)
	for i := range 3 {
		n := 0
		if i < len(parts) {
			digits := parts[i]
			if j := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); j >= 0 {
				digits = digits[:j]
			}
			n, _ = strconv.Atoi(digits)
		}
		if n != min[i] {
			return n > min[i]
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
