package casplus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		bindings  []Binding
		want      string
	}{
		{
			name:      "node name before attributes",
			statement: "A[type=agent];",
			bindings:  []Binding{{"A", "alice"}},
			want:      "alice[type=agent];",
		},
		{
			name:      "only inside attributes",
			statement: "x[type=A];",
			bindings:  []Binding{{"A", "alice"}},
			want:      "x[type=A];",
		},
		{
			name:      "first occurrence only with attributes",
			statement: "hash(A,A)[type=data];",
			bindings:  []Binding{{"A", "alice"}},
			want:      "hash(alice,A)[type=data];",
		},
		{
			name:      "every occurrence without attributes",
			statement: "{A E0(M,A)} -> decrypt0;",
			bindings:  []Binding{{"A", "alice"}},
			want:      "{alice E0(M,alice)} -> decrypt0;",
		},
		{
			name:      "literal match inside longer names",
			statement: "AB -> A;",
			bindings:  []Binding{{"A", "alice"}},
			want:      "aliceB -> alice;",
		},
		{
			name:      "lower case placeholder does not match upper case",
			statement: "Na[type=nonce];",
			bindings:  []Binding{{"A", "alice"}},
			want:      "Na[type=nonce];",
		},
		{
			name:      "later bindings see earlier replacements",
			statement: "A -> B;",
			bindings:  []Binding{{"A", "B"}, {"B", "C"}},
			want:      "C -> C;",
		},
		{
			name:      "applicability is decided on the original",
			statement: "A[x=1];",
			bindings:  []Binding{{"A", "B"}, {"B", "C"}},
			want:      "B[x=1];",
		},
		{
			name:      "two placeholders in one ciphertext",
			statement: "E0(M,AB)[type=data];",
			bindings:  []Binding{{"A", "alice"}, {"B", "bob"}},
			want:      "E0(M,alicebob)[type=data];",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substitute([]string{tt.statement}, tt.bindings)
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestSubstituteLeavesInputAlone(t *testing.T) {
	statements := []string{"A -> B;"}
	substitute(statements, []Binding{{"A", "x"}})
	assert.Equal(t, "A -> B;", statements[0])
}

func TestParseBindings(t *testing.T) {
	tests := []struct {
		text string
		want []Binding
	}{
		{"[A:alice, B:bob]", []Binding{{"A", "alice"}, {"B", "bob"}}},
		{"[A:alice, B:bob];", []Binding{{"A", "alice"}, {"B", "bob"}}},
		{"A:alice,B:bob", []Binding{{"A", "alice"}, {"B", "bob"}}},
		{"[A : alice]", []Binding{{"A", "alice"}}},
		{"[]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := parseBindings(tt.text, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	got, err := splitTopLevel("{Na, A}_Ka, hash(Na, Nb), [x,y], M")
	require.NoError(t, err)
	assert.Equal(t, []string{"{Na, A}_Ka", " hash(Na, Nb)", " [x,y]", " M"}, got)

	_, err = splitTopLevel("{M}_K)")
	assert.Error(t, err)
	_, err = splitTopLevel("hash(M")
	assert.Error(t, err)
}

func TestScanSections(t *testing.T) {
	doc, err := scan(strings.NewReader(`protocol P;
identifiers
% a comment line
Na : nonce; %Na:20bit
messages   % trailing comment on a header
A -> B : Na   % dropped
knowledge
session_instances
[A:a]
intruder_knowledge
goal
secrecy_of Na
`))
	require.NoError(t, err)

	assert.Equal(t, []bodyLine{{"protocol P;", 1}}, doc.lines(sectionPreamble))
	assert.Equal(t, []bodyLine{{"Na : nonce; %Na:20bit", 4}}, doc.lines(SectionIdentifiers))
	assert.Equal(t, []bodyLine{{"A -> B : Na", 6}}, doc.lines(SectionMessages))
	assert.Empty(t, doc.lines(SectionKnowledge))
	assert.Equal(t, []bodyLine{{"[A:a]", 9}}, doc.lines(SectionSessionInstances))
	assert.Equal(t, []bodyLine{{"secrecy_of Na", 12}}, doc.lines(SectionGoal))
}

func TestIntruderKnowledgeIsNotASectionHeaderForKnowledge(t *testing.T) {
	_, err := scan(strings.NewReader("identifiers\nmessages\nknowledge\nsession_instances\nintruder_knowledge\ngoal\n"))
	assert.NoError(t, err)
}

func TestAnnotations(t *testing.T) {
	ann, err := parseAnnotations(" %Na:20bit,D; %Nb:AD; %X<-f(Y)", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"bit=20", "set=D"}, ann.attrs["Na"])
	assert.Equal(t, []string{"set=AD"}, ann.attrs["Nb"])
	assert.Equal(t, []converseDecl{{lhs: "X", rhs: "f(Y)"}}, ann.converse)

	ann, err = parseAnnotations(" % just a remark", 1)
	require.NoError(t, err)
	assert.Empty(t, ann.attrs)

	_, err = parseAnnotations(" %Na:lots of bit", 1)
	assert.Error(t, err)
	_, err = parseAnnotations(" %Na:Q", 1)
	assert.Error(t, err)
}
