package casplus

import (
	"strings"
	"unicode"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/dot"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
)

// keyRole is the role recorded for an identifier declared as a key.
type keyRole int

const (
	keyNone keyRole = iota
	keyPublic
	keyPrivate
	keySymmetric
	keyGeneric
)

func (r keyRole) asymmetric() bool { return r == keyPublic || r == keyPrivate }

// roleOf derives the key role from a declared type.
func roleOf(typ string) keyRole {
	lower := strings.ToLower(typ)
	switch {
	case strings.Contains(lower, "public_key"):
		return keyPublic
	case strings.Contains(lower, "private_key"):
		return keyPrivate
	case strings.Contains(lower, "symmetric"):
		return keySymmetric
	case strings.Contains(lower, "key"):
		return keyGeneric
	}
	return keyNone
}

type converseDecl struct {
	lhs, rhs string
}

// annotations are the %-prefixed entries after the type of an identifier
// line: Name:<n>bit[,SET], Name:SET or Lhs<-Rhs.
type annotations struct {
	attrs    map[string][]string
	sets     map[string]attackgraph.Membership
	converse []converseDecl
}

func parseAnnotations(text string, num int) (annotations, error) {
	ann := annotations{
		attrs: make(map[string][]string),
		sets:  make(map[string]attackgraph.Membership),
	}
	if !strings.Contains(text, ":") && !strings.Contains(text, "<-") {
		return ann, nil
	}

	for _, entry := range strings.Split(text, ";") {
		entry = strings.Map(func(r rune) rune {
			if r == '%' || unicode.IsSpace(r) {
				return -1
			}
			return r
		}, entry)
		if entry == "" {
			continue
		}

		if lhs, rhs, ok := strings.Cut(entry, "<-"); ok {
			if lhs == "" || rhs == "" {
				return ann, faults.ProtocolFormat(num, "converse annotation %q needs both sides", entry)
			}
			ann.converse = append(ann.converse, converseDecl{lhs: lhs, rhs: rhs})
			continue
		}

		subject, value, ok := strings.Cut(entry, ":")
		if !ok || subject == "" || value == "" {
			return ann, faults.ProtocolFormat(num, "annotation %q is not Name:value", entry)
		}
		for i, part := range strings.Split(value, ",") {
			if i == 0 && strings.Contains(strings.ToLower(part), "bit") {
				digits := strings.Map(func(r rune) rune {
					if r >= '0' && r <= '9' {
						return r
					}
					return -1
				}, part)
				if digits == "" {
					return ann, faults.ProtocolFormat(num, "annotation %q has no bit count", entry)
				}
				ann.attrs[subject] = append(ann.attrs[subject], "bit="+digits)
				continue
			}
			m, err := attackgraph.ParseMembership(part)
			if err != nil {
				return ann, faults.New("compile").Protocol().Line(num).
					Context("annotation %q", entry).Cause(err).Err()
			}
			if m != attackgraph.None {
				ann.attrs[subject] = append(ann.attrs[subject], "set="+m.Code())
				ann.sets[subject] = m
			}
		}
	}
	return ann, nil
}

// identifiers declares every identifier line. Keys are recorded with
// their role, declared functions get an invocation counter starting at 1.
func (c *compiler) identifiers(lines []bodyLine) error {
	for _, l := range lines {
		if err := c.identifier(l); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) identifier(l bodyLine) error {
	names, rest, ok := strings.Cut(l.text, ":")
	if !ok || strings.TrimSpace(names) == "" {
		return faults.ProtocolFormat(l.num, "identifier line %q has no type", l.text)
	}
	typ, notes, _ := strings.Cut(rest, ";")
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return faults.ProtocolFormat(l.num, "identifier line %q has no type", l.text)
	}

	ann, err := parseAnnotations(notes, l.num)
	if err != nil {
		return err
	}
	role := roleOf(typ)
	function := strings.Contains(strings.ToLower(typ), "function")

	declared := make(map[string]bool)
	for _, raw := range strings.Split(names, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !isName(name) {
			return faults.ProtocolFormat(l.num, "invalid identifier %q", name)
		}
		if c.idents[name] {
			return faults.ProtocolFormat(l.num, "identifier %q declared twice", name)
		}
		c.idents[name] = true
		declared[name] = true

		node := name
		switch role {
		case keyPublic:
			node += "_pub"
		case keyPrivate:
			node += "_priv"
		}
		if role != keyNone {
			c.keys[name] = role
		}

		attrs := []string{"type=" + dot.QuoteID(typ)}
		if function {
			c.declared[name] = true
			c.counters[name] = 1
			node += "1"
			attrs[0] = "type=" + attackgraph.RoleFunction
		}
		attrs = append(attrs, ann.attrs[name]...)
		if m, ok := ann.sets[name]; ok {
			c.sets[node] = m
		}
		c.emit("%s[%s];", node, strings.Join(attrs, ","))
	}

	for subject := range ann.attrs {
		if !declared[subject] {
			c.logger.Warn("annotation names no identifier on its line",
				logging.NodeName(subject), logging.Int("line", l.num))
		}
	}
	for _, cv := range ann.converse {
		if err := c.converse(cv, l.num); err != nil {
			return err
		}
	}
	return nil
}

// converse wires rhs -> converseN -> lhs. The right-hand side may be any
// message term; its encryptions and invocations are emitted first.
func (c *compiler) converse(cv converseDecl, num int) error {
	rhs, err := c.term(cv.rhs, num)
	if err != nil {
		return err
	}
	lhs, err := c.term(cv.lhs, num)
	if err != nil {
		return err
	}
	c.converses++
	fn := "converse" + itoa(c.converses)
	c.emit("%s -> %s;", rhs, fn)
	c.emit("%s -> %s;", fn, lhs)
	c.emit("%s[type=%s];", fn, attackgraph.RoleFunction)
	return nil
}

// isName reports whether s is a plain identifier: letters, digits, '_',
// '.' and the inverse marker '\''.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

func isNameByte(ch byte) bool {
	return ch == '_' || ch == '.' || ch == '\'' ||
		(ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		ch >= 0x80
}
