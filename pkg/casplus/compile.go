// Package casplus compiles CAS+ protocol descriptions into attack graphs.
//
// A CAS+ document has six sections in fixed order: identifiers, messages,
// knowledge, session_instances, intruder_knowledge and goal. The
// identifiers and messages are turned into graph statements once; every
// session instance then produces its own document by substituting the
// session's concrete names into those statements. Intruder knowledge and
// secrecy goals are appended to every document as compromise and attack
// markers.
package casplus

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
	"github.com/dd0wney/cluso-cag/pkg/metrics"
	"github.com/dd0wney/cluso-cag/pkg/outfile"
)

// Binding maps a role placeholder to the concrete name of one session.
type Binding struct {
	Placeholder string
	Value       string
}

// Session is one compiled session instance.
type Session struct {
	// Ordinal numbers sessions from 1 in declaration order.
	Ordinal  int
	Bindings []Binding
	// Text is the complete graph document.
	Text []byte
	// Graph is Text parsed and sealed.
	Graph *attackgraph.Graph
}

// Compilation is the result of compiling one CAS+ document.
type Compilation struct {
	Name string
	// Statements are the graph statements produced by the identifiers
	// and messages sections, before session substitution.
	Statements []string
	Knowledge  map[string][]string
	Intruder   []string
	Goals      []string
	// Secrets are the items named by secrecy_of goals.
	Secrets  []string
	Sessions []*Session
}

// Compiler turns CAS+ text into graph documents.
type Compiler struct {
	entropy int
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithDefaultEntropy sets the entropy of nodes without a bit annotation.
func WithDefaultEntropy(bits int) Option {
	return func(c *Compiler) { c.entropy = bits }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(c *Compiler) { c.metrics = m }
}

// NewCompiler creates a compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		entropy: attackgraph.DefaultEntropy,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles r with default settings. name is used for the graph
// unless the document declares its own protocol name.
func Compile(r io.Reader, name string) (*Compilation, error) {
	return NewCompiler().Compile(r, name)
}

// CompileFile compiles in and writes one document per session to out,
// numbered before the extension. If anything fails, every file already
// written is removed.
func CompileFile(in, out string) (*Compilation, []string, error) {
	return NewCompiler().CompileFile(in, out)
}

// Compile reads a CAS+ document and builds every session document. It
// writes nothing.
func (c *Compiler) Compile(r io.Reader, name string) (comp *Compilation, err error) {
	start := time.Now()
	timer := logging.StartTimer(c.logger, "compile protocol", logging.Graph(name))
	defer func() {
		status := "ok"
		sessions := 0
		if err != nil {
			status = faults.Class(err)
			timer.EndError(err, logging.ErrorClass(status))
		} else {
			sessions = len(comp.Sessions)
			timer.End(logging.Count(sessions))
		}
		c.metrics.RecordCompile(status, sessions, time.Since(start))
	}()

	doc, err := scan(r)
	if err != nil {
		return nil, err
	}

	st := newCompiler(c.logger)
	comp = &Compilation{
		Name:      graphName(doc.lines(sectionPreamble), name),
		Knowledge: make(map[string][]string),
	}

	if err := st.identifiers(doc.lines(SectionIdentifiers)); err != nil {
		return nil, err
	}
	if err := st.messages(doc.lines(SectionMessages)); err != nil {
		return nil, err
	}
	comp.Statements = st.out

	if err := knowledge(comp, doc.lines(SectionKnowledge)); err != nil {
		return nil, err
	}
	markers, err := st.markers(comp, doc.lines(SectionIntruderKnowledge), doc.lines(SectionGoal))
	if err != nil {
		return nil, err
	}

	for _, l := range doc.lines(SectionSessionInstances) {
		bindings, err := parseBindings(l.text, l.num)
		if err != nil {
			return nil, err
		}
		s := &Session{Ordinal: len(comp.Sessions) + 1, Bindings: bindings}
		s.Text = render(comp.Name, substitute(comp.Statements, bindings), markers)

		s.Graph, err = dot.ParseString(string(s.Text), dot.WithDefaultEntropy(c.entropy))
		if err != nil {
			return nil, faults.New("compile").Protocol().Line(l.num).
				Context("session %d does not form a valid graph", s.Ordinal).Cause(err).Err()
		}
		comp.Sessions = append(comp.Sessions, s)
		c.logger.Debug("session compiled",
			logging.Session(s.Ordinal),
			logging.Count(s.Graph.Len()))
	}
	return comp, nil
}

// CompileFile compiles in and writes its sessions next to out. The graph
// is named after the input file unless the protocol names itself.
func (c *Compiler) CompileFile(in, out string) (*Compilation, []string, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return nil, nil, faults.InputAccess("compile", in, err)
	}
	comp, err := c.Compile(bytes.NewReader(data), outfile.Base(in))
	if err != nil {
		return nil, nil, faults.WithPath(err, in)
	}

	var files outfile.Set
	for _, s := range comp.Sessions {
		if err := files.Write(outfile.Numbered(out, s.Ordinal), s.Text); err != nil {
			if derr := files.Discard(); derr != nil {
				c.logger.Warn("could not remove partial output", logging.Error(derr))
			}
			return nil, nil, err
		}
	}
	c.logger.Info("protocol compiled",
		logging.Path(in),
		logging.Strings("outputs", files.Paths()))
	return comp, files.Paths(), nil
}

// compiler is the state of one compilation: declared keys and functions,
// running counters and the statements emitted so far.
type compiler struct {
	logger    logging.Logger
	idents    map[string]bool
	keys      map[string]keyRole
	declared  map[string]bool
	counters  map[string]int
	sets      map[string]attackgraph.Membership
	encrypts  int
	converses int
	out       []string
}

func newCompiler(logger logging.Logger) *compiler {
	return &compiler{
		logger:   logger,
		idents:   make(map[string]bool),
		keys:     make(map[string]keyRole),
		declared: make(map[string]bool),
		counters: make(map[string]int),
		sets:     make(map[string]attackgraph.Membership),
	}
}

func (c *compiler) emit(format string, args ...any) {
	c.out = append(c.out, fmt.Sprintf(format, args...))
}

func itoa(n int) string { return strconv.Itoa(n) }

// graphName takes the name from a "protocol NAME" preamble line, falling
// back to fallback. Spaces are removed.
func graphName(preamble []bodyLine, fallback string) string {
	name := fallback
	for _, l := range preamble {
		fields := strings.Fields(strings.TrimSuffix(l.text, ";"))
		if len(fields) >= 2 && strings.EqualFold(fields[0], "protocol") {
			name = strings.Join(fields[1:], "")
			break
		}
	}
	name = strings.ReplaceAll(name, " ", "")
	if name == "" {
		return "protocol"
	}
	return name
}

// render assembles a complete graph document.
func render(name string, statements, markers []string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph %s {\n", dot.QuoteID(name))
	for _, group := range [][]string{statements, markers} {
		for _, s := range group {
			b.WriteByte('\t')
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")
	return b.Bytes()
}
