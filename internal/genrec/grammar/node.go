// Package grammar holds the rule registry, the production-tree node types,
// and the recursive-descent parser that builds a tree from grammar-file
// tokens.
//
// Grounded on genrec.c's Node tagged union (TermKind/NonTermKind/OpKind/
// OutKind/CtrlKind fields folded into one struct with a discriminant) and
// its lookup_rule/NodeChain rule registry. Every variant is the same Go
// struct, Node, told apart by its Kind field rather than by a C union.
package grammar

import "github.com/dekarrin/genrec/internal/genrec/termset"

// Kind discriminates the production-tree node variants of spec.md §3.
type Kind int

const (
	KindTerminal Kind = iota
	KindNonTerminal
	KindAlt
	KindAltBT
	KindConcat
	KindRepet
	KindOption
	KindOut
	KindCtrl
)

// OutDirectiveKind identifies one of the output-directive forms usable
// inside a `{{ ... }}` block (spec.md §4.2's outexpr, §4.5).
type OutDirectiveKind int

const (
	OutLiteral OutDirectiveKind = iota // "text"
	OutLastLexeme                     // *
	OutLabel1                         // *1
	OutLabel2                         // *2
	OutBuffer                         // $B
	OutNewline                        // ;
	OutIndentInc                      // +
	OutIndentDec                      // -
)

// OutDirective is one entry of an Out node's directive list.
type OutDirective struct {
	Kind    OutDirectiveKind
	Literal string // valid when Kind == OutLiteral
	Buffer  string // valid when Kind == OutBuffer
}

// CtrlAction identifies one of the four zero-width control actions
// (spec.md §4.2, §4.4).
type CtrlAction int

const (
	CtrlPush CtrlAction = iota
	CtrlPop
	CtrlEout
	CtrlDout
)

func (a CtrlAction) String() string {
	switch a {
	case CtrlPush:
		return "push"
	case CtrlPop:
		return "pop"
	case CtrlEout:
		return "eout"
	case CtrlDout:
		return "dout"
	default:
		return "?"
	}
}

// Node is one tagged-union variant of the production tree (spec.md §3).
// Every node carries lazily populated First/Follow bitmasks that the set
// engine fills in; a Node is never shared across rules, even when two
// textual occurrences are identical.
type Node struct {
	Kind Kind

	// KindTerminal
	Term     termset.ID
	TermSlot string // named-buffer slot this terminal's lexeme is copied to, "" if none

	// KindNonTerminal
	Rule   int // rule id, resolved through the Registry (may be forward)
	Buffer string // named buffer this invocation's output is redirected to, "" if none

	// KindAlt, KindAltBT, KindConcat
	A, B *Node

	// KindRepet, KindOption
	Child *Node

	// KindOut
	Directives []OutDirective

	// KindCtrl
	Action CtrlAction

	// filled in by setengine
	firstSet    termset.Set
	firstCached bool
	Follow      termset.Set
}

// First returns the node's cached FIRST set, or the zero Set if it has not
// yet been computed by setengine.Compute.
func (n *Node) First() termset.Set {
	return n.firstSet
}

// SetFirst stores a computed FIRST set and marks it cached. Exported for use
// by the setengine package, which owns FIRST/FOLLOW computation; production
// code outside setengine should treat this as write-once.
func (n *Node) SetFirst(s termset.Set) {
	n.firstSet = s
	n.firstCached = true
}

// FirstCached reports whether SetFirst has been called for this node.
func (n *Node) FirstCached() bool {
	return n.firstCached
}

// NewTerminal builds a Terminal(t) node, optionally binding its lexeme to a
// named-buffer slot.
func NewTerminal(t termset.ID, slot string) *Node {
	return &Node{Kind: KindTerminal, Term: t, TermSlot: slot}
}

// NewNonTerminal builds a NonTerminal(r, buf?) node.
func NewNonTerminal(rule int, buffer string) *Node {
	return &Node{Kind: KindNonTerminal, Rule: rule, Buffer: buffer}
}

// NewAlt builds an Alt(a, b) node.
func NewAlt(a, b *Node) *Node { return &Node{Kind: KindAlt, A: a, B: b} }

// NewAltBT builds an AltBT(a, b) node.
func NewAltBT(a, b *Node) *Node { return &Node{Kind: KindAltBT, A: a, B: b} }

// NewConcat builds a Concat(a, b) node.
func NewConcat(a, b *Node) *Node { return &Node{Kind: KindConcat, A: a, B: b} }

// NewRepet builds a Repet(a) node.
func NewRepet(a *Node) *Node { return &Node{Kind: KindRepet, Child: a} }

// NewOption builds an Option(a) node.
func NewOption(a *Node) *Node { return &Node{Kind: KindOption, Child: a} }

// NewOut builds an Out(directives) node.
func NewOut(directives []OutDirective) *Node {
	return &Node{Kind: KindOut, Directives: directives}
}

// NewCtrl builds a Ctrl(action) node.
func NewCtrl(action CtrlAction) *Node {
	return &Node{Kind: KindCtrl, Action: action}
}
