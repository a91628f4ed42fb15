package casplus

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/attackgraph"
	"github.com/dd0wney/cluso-cag/pkg/faults"
	"github.com/dd0wney/cluso-cag/pkg/logging"
)

// messages decomposes every message line. Only the content after the
// first ':' matters; the principals are not part of the graph.
func (c *compiler) messages(lines []bodyLine) error {
	for _, l := range lines {
		head, content, ok := strings.Cut(l.text, ":")
		content = strings.TrimSuffix(strings.TrimSpace(content), ";")
		if !ok || strings.TrimSpace(head) == "" || strings.TrimSpace(content) == "" {
			return faults.ProtocolFormat(l.num, "message %q is not 'sender -> receiver : content'", l.text)
		}

		fragments, err := splitTopLevel(content)
		if err != nil {
			return faults.New("compile").Protocol().Line(l.num).Cause(err).Err()
		}
		for _, f := range fragments {
			if f = strings.TrimSpace(f); f == "" {
				continue
			}
			if _, err := c.term(f, l.num); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitTopLevel splits s at commas that are not nested in (), {} or [].
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q at column %d", s[i], i+1)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unclosed bracket in %q", s)
	}
	return append(parts, s[start:]), nil
}

// term decomposes one message fragment and returns the name of the node
// it denotes, emitting the statements for every encryption and invocation
// inside it, innermost first.
func (c *compiler) term(src string, num int) (string, error) {
	p := &termParser{c: c, src: src, line: num}
	name, err := p.term()
	if err != nil {
		return "", err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return "", p.errorf("unexpected %q", p.src[p.pos:])
	}
	return name, nil
}

// termParser reads the fragment grammar:
//
//	term := '{' term (',' term)* '}' ['_'] key | name '(' [term (',' term)*] ')' | name
//	key  := name | name '(' ... ')'
type termParser struct {
	c    *compiler
	src  string
	pos  int
	line int
}

func (p *termParser) term() (string, error) {
	p.skipSpace()
	if p.peek() == '{' {
		return p.encryption()
	}
	word := p.word()
	if word == "" {
		return "", p.errorf("expected a name")
	}
	p.skipSpace()
	if p.peek() == '(' {
		return p.invocation(word)
	}
	return p.c.atom(word, p.line)
}

// list reads terms up to the closing bracket. The opening bracket has
// already been consumed.
func (p *termParser) list(closer byte) ([]string, error) {
	var items []string
	p.skipSpace()
	if p.peek() == closer {
		p.pos++
		return items, nil
	}
	for {
		item, err := p.term()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return items, nil
		default:
			return nil, p.errorf("expected ',' or %q", closer)
		}
	}
}

func (p *termParser) encryption() (string, error) {
	p.pos++
	items, err := p.list('}')
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", p.errorf("empty encryption")
	}

	p.skipSpace()
	if p.peek() == '_' {
		p.pos++
	}
	word := p.word()
	if word == "" {
		return "", p.errorf("encryption without a key")
	}
	p.skipSpace()
	if p.peek() == '(' {
		key, err := p.invocation(word)
		if err != nil {
			return "", err
		}
		return p.c.encrypt(items, resolvedKey{enc: key, dec: key}), nil
	}

	key, err := p.c.resolveKey(word, p.line)
	if err != nil {
		return "", err
	}
	return p.c.encrypt(items, key), nil
}

func (p *termParser) invocation(name string) (string, error) {
	p.pos++
	args, err := p.list(')')
	if err != nil {
		return "", err
	}
	return p.c.invoke(name, args), nil
}

func (p *termParser) word() string {
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *termParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *termParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *termParser) errorf(format string, args ...any) error {
	return faults.New("compile").Protocol().Line(p.line).
		Context("%s in %q at column %d", fmt.Sprintf(format, args...), p.src, p.pos+1).Err()
}

// atom resolves a plain name. Asymmetric keys get their _pub or _priv
// suffix, flipped by a trailing inverse marker.
func (c *compiler) atom(word string, num int) (string, error) {
	base, inverse := strings.CutSuffix(word, "'")
	role, ok := c.keys[base]
	if !ok {
		return word, nil
	}
	switch role {
	case keyPublic:
		if inverse {
			return base + "_priv", nil
		}
		return base + "_pub", nil
	case keyPrivate:
		if inverse {
			return base + "_pub", nil
		}
		return base + "_priv", nil
	}
	if inverse {
		return "", faults.ProtocolFormat(num, "inverse of key %q that is not asymmetric", base)
	}
	return base, nil
}

// resolvedKey is the key an encryption uses and the key that undoes it.
// decRole is set for asymmetric pairs, where the decryption key needs its
// own node declaration.
type resolvedKey struct {
	enc, dec   string
	decRole    string
	asymmetric bool
}

func (c *compiler) resolveKey(word string, num int) (resolvedKey, error) {
	if base, ok := strings.CutSuffix(word, "_pub"); ok {
		return resolvedKey{enc: word, dec: base + "_priv", decRole: attackgraph.RolePrivateKey, asymmetric: true}, nil
	}
	if base, ok := strings.CutSuffix(word, "_priv"); ok {
		return resolvedKey{enc: word, dec: base + "_pub", decRole: attackgraph.RolePublicKey, asymmetric: true}, nil
	}

	base, inverse := strings.CutSuffix(word, "'")
	role, declared := c.keys[base]
	if !declared {
		if inverse {
			return resolvedKey{}, faults.ProtocolFormat(num, "unresolvable key reference %q", word)
		}
		c.logger.Warn("undeclared key treated as symmetric",
			logging.NodeName(base), logging.Int("line", num))
		c.keys[base] = keySymmetric
		return resolvedKey{enc: base, dec: base}, nil
	}
	if !role.asymmetric() {
		if inverse {
			return resolvedKey{}, faults.ProtocolFormat(num, "unresolvable key reference %q: %q is not asymmetric", word, base)
		}
		return resolvedKey{enc: base, dec: base}, nil
	}

	enc, err := c.atom(word, num)
	if err != nil {
		return resolvedKey{}, err
	}
	return c.resolveKey(enc, num)
}

// encrypt emits the encryption of items under key and the matching
// decryption, and returns the ciphertext node name.
//
// For keys that are not asymmetric the ciphertext also feeds back into
// the encryption function and the function points back at each item, so
// the bidirectional rule can recover an item from the ciphertext and key.
func (c *compiler) encrypt(items []string, key resolvedKey) string {
	n := itoa(c.encrypts)
	c.encrypts++

	enc := "encrypt" + n
	dec := "decrypt" + n
	inputs := append(append([]string(nil), items...), key.enc)
	cipher := "E" + n + "(" + strings.Join(inputs, ",") + ")"

	c.emit("%s[type=%s];", cipher, attackgraph.RoleData)
	c.emit("%s[type=%s];", enc, attackgraph.RoleFunction)
	if !key.asymmetric {
		c.emit("%s -> {%s};", enc, strings.Join(items, " "))
		c.emit("%s -> %s;", cipher, enc)
	}
	c.emit("{%s} -> %s;", strings.Join(inputs, " "), enc)
	c.emit("%s -> %s;", enc, cipher)

	if key.decRole != "" {
		c.emit("%s[type=%s];", key.dec, key.decRole)
	}
	c.emit("%s[type=%s];", dec, attackgraph.RoleFunction)
	c.emit("{%s %s} -> %s;", key.dec, cipher, dec)
	for _, item := range items {
		if item == key.enc || item == key.dec {
			continue
		}
		c.emit("%s -> %s;", dec, item)
	}
	return cipher
}

// invoke emits a function call. Every call gets the next number for its
// name; only declared functions are typed as functions, others rely on
// their name.
func (c *compiler) invoke(name string, args []string) string {
	k, ok := c.counters[name]
	if !ok {
		k = 1
	}
	c.counters[name] = k + 1

	fn := name + itoa(k)
	result := name + "(" + strings.Join(args, ",") + ")"
	if c.declared[name] {
		c.emit("%s[type=%s];", fn, attackgraph.RoleFunction)
	}
	c.emit("%s[type=%s];", result, attackgraph.RoleData)
	if len(args) > 0 {
		c.emit("{%s} -> %s;", strings.Join(args, " "), fn)
	}
	c.emit("%s -> %s;", fn, result)
	return result
}
