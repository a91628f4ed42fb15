package casplus

import (
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/faults"
)

// knowledge records "principal : items" lines.
func knowledge(comp *Compilation, lines []bodyLine) error {
	for _, l := range lines {
		who, items, ok := strings.Cut(l.text, ":")
		who = strings.TrimSpace(who)
		if !ok || who == "" {
			return faults.ProtocolFormat(l.num, "knowledge line %q is not 'principal : items'", l.text)
		}
		parts, err := splitTopLevel(strings.TrimSuffix(strings.TrimSpace(items), ";"))
		if err != nil {
			return faults.New("compile").Protocol().Line(l.num).Cause(err).Err()
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				comp.Knowledge[who] = append(comp.Knowledge[who], p)
			}
		}
	}
	return nil
}

// parseBindings reads one session line such as "[A:alice, B:bob];".
// Brackets and the trailing semicolon are optional.
func parseBindings(text string, num int) ([]Binding, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '[' || r == ']'
	})

	var out []Binding
	seen := make(map[string]bool)
	for _, f := range fields {
		ph, val, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		ph = strings.TrimSpace(ph)
		val = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), ";"))
		if ph == "" || val == "" {
			return nil, faults.ProtocolFormat(num, "session binding %q is not placeholder:name", strings.TrimSpace(f))
		}
		if seen[ph] {
			return nil, faults.ProtocolFormat(num, "placeholder %q bound twice", ph)
		}
		seen[ph] = true
		out = append(out, Binding{Placeholder: ph, Value: val})
	}
	return out, nil
}

// substitute applies one session's bindings to the statements, in binding
// order. Whether a binding applies to a statement is decided on the
// unsubstituted statement: with an attribute list, only an occurrence
// before the '[' counts and only the first occurrence is replaced;
// without one, every occurrence is replaced. Matching is literal, so a
// placeholder also matches inside longer names.
func substitute(statements []string, bindings []Binding) []string {
	out := make([]string, len(statements))
	for i, orig := range statements {
		line := orig
		for _, b := range bindings {
			at := strings.Index(orig, b.Placeholder)
			if at < 0 {
				continue
			}
			if bracket := strings.IndexByte(orig, '['); bracket >= 0 {
				if at < bracket {
					line = strings.Replace(line, b.Placeholder, b.Value, 1)
				}
				continue
			}
			line = strings.ReplaceAll(line, b.Placeholder, b.Value)
		}
		out[i] = line
	}
	return out
}

const secrecyGoal = "secrecy_of"

// markers builds the statements appended to every session document:
// NAME[color=red] for intruder knowledge and NAME[set=A] for secrecy
// goals. A secret that was annotated as an input becomes set=AD.
func (c *compiler) markers(comp *Compilation, intruder, goals []bodyLine) ([]string, error) {
	var out []string
	for _, l := range intruder {
		names, err := c.names(l)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			comp.Intruder = append(comp.Intruder, n)
			out = append(out, dot.QuoteID(n)+"[color="+attackgraph.Easy.Color()+"];")
		}
	}

	for _, l := range goals {
		comp.Goals = append(comp.Goals, l.text)
		rest, ok := strings.CutPrefix(l.text, secrecyGoal)
		if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		names, err := c.names(bodyLine{text: rest, num: l.num})
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			m := attackgraph.Attack
			if c.sets[n].IsInput() {
				m = attackgraph.Both
			}
			comp.Secrets = append(comp.Secrets, n)
			out = append(out, dot.QuoteID(n)+"[set="+m.Code()+"];")
		}
	}
	return out, nil
}

// names reads a comma separated list of plain names, resolving
// asymmetric keys to their suffixed node names.
func (c *compiler) names(l bodyLine) ([]string, error) {
	var out []string
	for _, raw := range strings.Split(strings.TrimSuffix(strings.TrimSpace(l.text), ";"), ",") {
		word := strings.TrimSpace(raw)
		if word == "" {
			continue
		}
		if !isName(word) {
			return nil, faults.ProtocolFormat(l.num, "invalid name %q", word)
		}
		name, err := c.atom(word, l.num)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}
