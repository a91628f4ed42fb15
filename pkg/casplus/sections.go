package casplus

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/dd0wney/cluso-cag/pkg/faults"
)

// Section identifies one of the six ordered parts of a CAS+ document.
type Section int

const (
	sectionPreamble Section = iota
	SectionIdentifiers
	SectionMessages
	SectionKnowledge
	SectionSessionInstances
	SectionIntruderKnowledge
	SectionGoal
)

var sectionNames = [...]string{
	sectionPreamble:          "preamble",
	SectionIdentifiers:       "identifiers",
	SectionMessages:          "messages",
	SectionKnowledge:         "knowledge",
	SectionSessionInstances:  "session_instances",
	SectionIntruderKnowledge: "intruder_knowledge",
	SectionGoal:              "goal",
}

func (s Section) String() string {
	if s < 0 || int(s) >= len(sectionNames) {
		return "unknown"
	}
	return sectionNames[s]
}

// headerPattern finds a section keyword as a whole word. The underscore is
// a word character, so "knowledge" inside "intruder_knowledge" does not
// match on its own.
var headerPattern = regexp.MustCompile(`\b(identifiers|messages|knowledge|session_instances|intruder_knowledge|goal)\b`)

// bodyLine is a non-empty statement line with its 1-based source line.
type bodyLine struct {
	text string
	num  int
}

// document holds the statement lines of every section.
type document struct {
	sections [SectionGoal + 1][]bodyLine
}

func (d *document) lines(s Section) []bodyLine { return d.sections[s] }

// scan splits a CAS+ text into sections. Section headers must appear
// exactly once and in order. Blank lines and lines starting with % are
// dropped; from the messages section on, trailing % comments are dropped
// too. Identifier lines keep theirs, they carry annotations.
func scan(r io.Reader) (*document, error) {
	doc := &document{}
	current := sectionPreamble

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for sc.Scan() {
		num++
		line := sc.Text()

		code := stripComment(line)
		if headerPattern.MatchString(code) {
			next, err := nextSection(strings.TrimSpace(code), current, num)
			if err != nil {
				return nil, err
			}
			current = next
			continue
		}

		text := strings.TrimSpace(line)
		if text == "" || text[0] == '%' {
			continue
		}
		if current > SectionIdentifiers {
			text = strings.TrimSpace(stripComment(text))
			if text == "" {
				continue
			}
		}
		doc.sections[current] = append(doc.sections[current], bodyLine{text: text, num: num})
	}
	if err := sc.Err(); err != nil {
		return nil, faults.InputAccess("read", "", err)
	}

	if current != SectionGoal {
		return nil, faults.ProtocolFormat(num, "missing section %q", (current + 1).String())
	}
	return doc, nil
}

func nextSection(header string, current Section, num int) (Section, error) {
	for s := SectionIdentifiers; s <= SectionGoal; s++ {
		if header != s.String() {
			continue
		}
		switch {
		case s <= current:
			return 0, faults.ProtocolFormat(num, "duplicate or out of order section %q", header)
		case s != current+1:
			return 0, faults.ProtocolFormat(num, "section %q before %q", header, (current + 1).String())
		}
		return s, nil
	}
	return 0, faults.ProtocolFormat(num, "unrecognized section header %q", header)
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '%'); i >= 0 {
		return line[:i]
	}
	return line
}
