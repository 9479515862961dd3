// Package setengine computes FIRST and FOLLOW sets over a grammar's
// production tree, and performs the left-recursion and First/First,
// First/Follow conflict checks spec.md §4.3 specifies.
//
// Grounded on genrec.c's first() (memoized recursive FIRST), compute_follow
// /compute_follow_sets() (fixed-point FOLLOW propagation), conflict(), and
// check_for_left_rec() (bitmask-threaded leftmost-path walk).
package setengine

import (
	"fmt"
	"sort"

	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/termset"
	"github.com/dekarrin/genrec/internal/util"
)

// Conflict describes one First/First or First/Follow violation found by
// CheckConflicts, carrying enough context to render spec.md §7's diagnostics.
type Conflict struct {
	Rule string
	Kind string // "first/first" or "first/follow"
	Set  termset.Set
}

func (c Conflict) Error() string {
	return fmt.Sprintf("rule %q: %s conflict on %s", c.Rule, c.Kind, c.Set)
}

// Render renders c the way genrec.c's conflict() reports it to the user: the
// conflicting terminals by their printable spelling (resolved through
// target), joined into a natural-language list rather than the raw id set
// Error renders.
func (c Conflict) Render(target lextarget.Lexer) string {
	members := c.Set.Members()
	names := make([]string, len(members))
	for i, id := range members {
		names[i] = target.IDToPrint(id)
	}
	return fmt.Sprintf("rule %q: %s conflict on %s", c.Rule, c.Kind, util.MakeTextList(names))
}

// Compute fills in First for every node reachable from reg's rules and
// First/Follow for every rule, by structural recursion (spec.md §4.3's
// node-kind table) plus a FOLLOW fixed point.
func Compute(reg *grammar.Registry) error {
	for _, r := range reg.Rules() {
		if r.Body != nil {
			computeFirst(r.Body, reg)
		}
	}
	for _, r := range reg.Rules() {
		if r.Body != nil {
			r.FirstSet = r.Body.First()
		}
	}

	startID, ok := reg.StartID()
	if !ok {
		return fmt.Errorf("no start symbol declared")
	}
	reg.Rule(startID).Follow = reg.Rule(startID).Follow.With(termset.EOF)

	for {
		changed := false
		for _, r := range reg.Rules() {
			if r.Body == nil {
				continue
			}
			if propagateFollow(r.Body, reg, r.Follow) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return nil
}

// computeFirst populates n.First() (and, recursively, every descendant's)
// per spec.md §4.3's per-kind table, caching as it goes so repeated visits
// to the same rule's body across NonTerminal references are cheap.
func computeFirst(n *grammar.Node, reg *grammar.Registry) termset.Set {
	if n.FirstCached() {
		return n.First()
	}

	var s termset.Set
	switch n.Kind {
	case grammar.KindTerminal:
		s = termset.Set(0).With(n.Term)
	case grammar.KindNonTerminal:
		callee := reg.Rule(n.Rule)
		if callee.Body == nil {
			// undefined rule; Registry.Validate rejects this grammar before
			// Compute is ever called in the normal flow, but guard anyway.
			s = 0
		} else {
			s = computeFirst(callee.Body, reg)
		}
	case grammar.KindAlt, grammar.KindAltBT:
		s = computeFirst(n.A, reg).Union(computeFirst(n.B, reg))
	case grammar.KindConcat:
		fa := computeFirst(n.A, reg)
		fb := computeFirst(n.B, reg)
		if fa.HasEpsilon() {
			s = fa.WithoutEpsilon().Union(fb)
		} else {
			s = fa
		}
	case grammar.KindRepet, grammar.KindOption:
		s = computeFirst(n.Child, reg).WithEpsilon()
	case grammar.KindOut, grammar.KindCtrl:
		s = termset.Set(0).WithEpsilon()
	}

	n.SetFirst(s)
	return s
}

// propagateFollow walks n with inherited context `in`, unioning `in` (or a
// derived set) into the FOLLOW of every NonTerminal reached, and records
// n.Follow = in so per-node conflict checks can read it back. Returns
// whether any rule's FOLLOW set gained new bits.
func propagateFollow(n *grammar.Node, reg *grammar.Registry, in termset.Set) bool {
	n.Follow = in
	changed := false

	switch n.Kind {
	case grammar.KindTerminal, grammar.KindOut, grammar.KindCtrl:
		// no effect
	case grammar.KindNonTerminal:
		callee := reg.Rule(n.Rule)
		before := callee.Follow
		callee.Follow = callee.Follow.Union(in)
		if callee.Follow != before {
			changed = true
		}
	case grammar.KindAlt, grammar.KindAltBT:
		if propagateFollow(n.A, reg, in) {
			changed = true
		}
		if propagateFollow(n.B, reg, in) {
			changed = true
		}
	case grammar.KindConcat:
		fb := computeFirst(n.B, reg)
		var aIn termset.Set
		if fb.HasEpsilon() {
			aIn = fb.WithoutEpsilon().Union(in)
		} else {
			aIn = fb
		}
		if propagateFollow(n.A, reg, aIn) {
			changed = true
		}
		if propagateFollow(n.B, reg, in) {
			changed = true
		}
	case grammar.KindRepet:
		inner := computeFirst(n, reg).Union(in)
		if propagateFollow(n.Child, reg, inner) {
			changed = true
		}
	case grammar.KindOption:
		if propagateFollow(n.Child, reg, in) {
			changed = true
		}
	}
	return changed
}

// CheckLeftRecursion walks the grammar reachable from the start rule,
// threading a 64-bit bitmask of rules on the current leftmost path.
// Grammars with more than 64 rules skip this check, matching spec.md §4.3's
// documented limit on the mask width.
func CheckLeftRecursion(reg *grammar.Registry) error {
	if reg.Len() > 64 {
		return nil
	}
	startID, ok := reg.StartID()
	if !ok {
		return fmt.Errorf("no start symbol declared")
	}
	return walkLeftRec(reg, startID, 0)
}

func walkLeftRec(reg *grammar.Registry, ruleID int, mask uint64) error {
	bit := uint64(1) << uint(ruleID)
	if mask&bit != 0 {
		return fmt.Errorf("rule %q contains left-recursion", reg.Rule(ruleID).Name)
	}
	mask |= bit
	return walkLeftRecNode(reg, reg.Rule(ruleID).Body, mask)
}

func walkLeftRecNode(reg *grammar.Registry, n *grammar.Node, mask uint64) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case grammar.KindTerminal, grammar.KindOut, grammar.KindCtrl:
		return nil
	case grammar.KindNonTerminal:
		return walkLeftRec(reg, n.Rule, mask)
	case grammar.KindConcat:
		if err := walkLeftRecNode(reg, n.A, mask); err != nil {
			return err
		}
		if n.A.First().HasEpsilon() {
			return walkLeftRecNode(reg, n.B, mask)
		}
		return nil
	case grammar.KindAlt, grammar.KindAltBT:
		if err := walkLeftRecNode(reg, n.A, mask); err != nil {
			return err
		}
		return walkLeftRecNode(reg, n.B, mask)
	case grammar.KindRepet, grammar.KindOption:
		return walkLeftRecNode(reg, n.Child, mask)
	}
	return nil
}

// CheckConflicts performs the First/First check on every Alt/AltBT node and
// the First/Follow check on every Repet/Option node, reachable from every
// rule's body. All violations found are returned, not just the first, so
// a single grammar can report multiple conflicts within one rule body
// (spec.md §7's propagation policy).
func CheckConflicts(reg *grammar.Registry) []Conflict {
	var conflicts []Conflict
	for _, r := range reg.Rules() {
		if r.Body == nil {
			continue
		}
		conflicts = append(conflicts, checkConflictsNode(r.Name, r.Body)...)
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Rule < conflicts[j].Rule })
	return conflicts
}

func checkConflictsNode(ruleName string, n *grammar.Node) []Conflict {
	if n == nil {
		return nil
	}
	var out []Conflict
	switch n.Kind {
	case grammar.KindAlt, grammar.KindAltBT:
		overlap := n.A.First().WithoutEpsilon().Intersect(n.B.First().WithoutEpsilon())
		if !overlap.Empty() {
			out = append(out, Conflict{Rule: ruleName, Kind: "first/first", Set: overlap})
		}
		out = append(out, checkConflictsNode(ruleName, n.A)...)
		out = append(out, checkConflictsNode(ruleName, n.B)...)
	case grammar.KindConcat:
		out = append(out, checkConflictsNode(ruleName, n.A)...)
		out = append(out, checkConflictsNode(ruleName, n.B)...)
	case grammar.KindRepet, grammar.KindOption:
		overlap := n.Child.First().WithoutEpsilon().Intersect(n.Follow.WithoutEpsilon())
		if !overlap.Empty() {
			out = append(out, Conflict{Rule: ruleName, Kind: "first/follow", Set: overlap})
		}
		out = append(out, checkConflictsNode(ruleName, n.Child)...)
	}
	return out
}
