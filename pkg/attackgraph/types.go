package attackgraph

import (
	"fmt"
	"strings"
)

// Compromise is how readily an attacker can obtain a node's value.
// The zero value is Impossible and levels order Impossible < Hard < Easy.
type Compromise uint8

const (
	// Impossible means the value is not currently known to the attacker.
	Impossible Compromise = iota
	// Hard means the value is obtainable under elevated assumptions.
	Hard
	// Easy means the attacker can obtain the value.
	Easy
)

// String returns the level name.
func (c Compromise) String() string {
	switch c {
	case Impossible:
		return "impossible"
	case Hard:
		return "hard"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("compromise(%d)", uint8(c))
	}
}

// Color returns the colour that encodes the level in graph text.
func (c Compromise) Color() string {
	switch c {
	case Easy:
		return "red"
	case Hard:
		return "orange"
	default:
		return "green"
	}
}

// ParseColor decodes a colour attribute. Colours outside the
// red/orange/green encoding report false.
func ParseColor(color string) (Compromise, bool) {
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "red":
		return Easy, true
	case "orange":
		return Hard, true
	case "green":
		return Impossible, true
	default:
		return Impossible, false
	}
}

// ParseCompromise accepts a level name ("easy", "hard", "impossible").
func ParseCompromise(s string) (Compromise, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "hard":
		return Hard, nil
	case "impossible":
		return Impossible, nil
	default:
		return Impossible, fmt.Errorf("unknown compromise level %q", s)
	}
}

// Membership places a node in the user-designated input and attack sets.
type Membership uint8

const (
	None Membership = iota
	Input
	Attack
	Both
)

// IsInput reports whether the node may be chosen as an attacker foothold.
func (m Membership) IsInput() bool { return m == Input || m == Both }

// IsAttack reports whether the node is an attacker target.
func (m Membership) IsAttack() bool { return m == Attack || m == Both }

// Code returns the set attribute value, empty for None.
func (m Membership) Code() string {
	switch m {
	case Input:
		return "D"
	case Attack:
		return "A"
	case Both:
		return "AD"
	default:
		return ""
	}
}

func (m Membership) String() string {
	switch m {
	case Input:
		return "input"
	case Attack:
		return "attack"
	case Both:
		return "both"
	default:
		return "none"
	}
}

// ParseMembership decodes a set attribute value.
func ParseMembership(code string) (Membership, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "":
		return None, nil
	case "D":
		return Input, nil
	case "A":
		return Attack, nil
	case "AD", "DA":
		return Both, nil
	default:
		return None, fmt.Errorf("unknown set %q", code)
	}
}

// Kind is the closed classification of a node, fixed when the graph is sealed.
type Kind uint8

const (
	PlainNode Kind = iota
	OneWayFunction
	EncryptFunction
	ConverseFunction
)

// IsFunction reports whether the kind is any cryptographic operation.
func (k Kind) IsFunction() bool { return k != PlainNode }

func (k Kind) String() string {
	switch k {
	case OneWayFunction:
		return "one-way"
	case EncryptFunction:
		return "encrypt"
	case ConverseFunction:
		return "converse"
	default:
		return "plain"
	}
}

// Well-known values of the type attribute.
const (
	RoleFunction     = "function"
	RoleData         = "data"
	RolePublicKey    = "public_key"
	RolePrivateKey   = "private_key"
	RoleSymmetricKey = "symmetric_key"
)

// DefaultEntropy is the entropy assumed for nodes without a bit attribute.
const DefaultEntropy = 128

// Classify derives the kind of a node from its label and role.
// A node is a function when its role is "function", or when it has no role
// and its lower-cased label starts with hmac or encrypt, or with hash and
// carries no argument list.
func Classify(name, role string) Kind {
	lower := strings.ToLower(strings.TrimSpace(name))
	isFunc := role == RoleFunction
	if role == "" {
		switch {
		case strings.HasPrefix(lower, "hmac"), strings.HasPrefix(lower, "encrypt"):
			isFunc = true
		case strings.HasPrefix(lower, "hash"):
			isFunc = !strings.Contains(lower, "(")
		}
	}
	if !isFunc {
		return PlainNode
	}
	switch {
	case strings.Contains(lower, "encrypt"):
		return EncryptFunction
	case strings.Contains(lower, "converse"):
		return ConverseFunction
	default:
		return OneWayFunction
	}
}

// Point is a 2-D coordinate in layout-engine units.
type Point struct {
	X, Y float64
}

// Layout is placement metadata assigned by the layout engine. The model
// stores and forwards it without interpretation.
type Layout struct {
	Pos     Point
	HasPos  bool
	Width   float64
	Height  float64
	HasSize bool
}

// IsZero reports whether no layout has been assigned.
func (l Layout) IsZero() bool { return !l.HasPos && !l.HasSize }

// Node is one datum, key, principal or operation in the attack graph.
// Identity is the case-sensitive label. Level and membership change only
// through the owning Graph so the compromised set stays consistent.
type Node struct {
	name       string
	role       string
	level      Compromise
	membership Membership
	kind       Kind
	index      int
	parents    []int
	children   []int

	// Entropy is the guessable entropy of the value in bits.
	Entropy int
	Layout  Layout
}

func (n *Node) Name() string           { return n.name }
func (n *Node) Role() string           { return n.role }
func (n *Node) Level() Compromise      { return n.level }
func (n *Node) Membership() Membership { return n.membership }
func (n *Node) Kind() Kind             { return n.kind }
func (n *Node) Index() int             { return n.index }
func (n *Node) IsFunction() bool       { return n.kind.IsFunction() }
func (n *Node) IsCompromised() bool    { return n.level != Impossible }
func (n *Node) ParentIndexes() []int   { return n.parents }
func (n *Node) ChildIndexes() []int    { return n.children }
func (n *Node) String() string         { return n.name }

// Edge is a directed dependency between two nodes of the same graph.
type Edge struct {
	From, To int
	// Polyline is the engine-assigned route: start point, control points,
	// end point. Empty when no layout has been assigned.
	Polyline []Point
	// HasStart and HasEnd record whether the first and last points of
	// Polyline were given as explicit s, and e, arrow points.
	HasStart, HasEnd bool
}
