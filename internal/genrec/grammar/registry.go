package grammar

import (
	"fmt"
	"sort"

	"github.com/dekarrin/genrec/internal/genrec/termset"
)

// Rule is a named production: spec.md §3's Rule type. FirstSet and Follow
// are filled in by setengine.Compute; Label1Used/Label2Used record whether
// the rule body references label slot 1 and/or 2 anywhere (spec.md §4.6's
// per-rule label prologue).
type Rule struct {
	Name        string
	ID          int
	Body        *Node
	Start       bool
	FirstSet    termset.Set
	Follow      termset.Set
	Label1Used  bool
	Label2Used  bool
}

// Registry interns rule names to dense integer ids and tracks which rules
// still lack a body, exactly as spec.md §4.1 describes: lookup is the only
// entry point, and it does double duty as "declare" and "resolve."
type Registry struct {
	byName    map[string]int
	rules     []*Rule
	startID   int
	startSet  bool
	undefined int
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int), startID: -1}
}

// Lookup resolves name to a rule id, allocating a fresh one if name has not
// been seen before. The allocated rule has no Body until Define is called.
func (r *Registry) Lookup(name string) int {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := len(r.rules)
	r.byName[name] = id
	r.rules = append(r.rules, &Rule{Name: name, ID: id})
	r.undefined++
	return id
}

// Define installs body as the production for name, allocating a rule id for
// it if this is the first mention. It is an error to Define the same rule
// twice (spec.md §4.1 "rule redefined").
func (r *Registry) Define(name string, body *Node, isStart bool) error {
	id := r.Lookup(name)
	rule := r.rules[id]
	if rule.Body != nil {
		return fmt.Errorf("rule %q redefined", name)
	}
	rule.Body = body
	r.undefined--

	if isStart {
		if r.startSet && r.startID != id {
			return fmt.Errorf("multiple start symbols: %q and %q", r.rules[r.startID].Name, name)
		}
		r.startID = id
		r.startSet = true
		rule.Start = true
	}
	return nil
}

// Rule returns the rule with the given id. Panics if id is out of range;
// callers only ever hold ids handed back by Lookup/Define.
func (r *Registry) Rule(id int) *Rule {
	return r.rules[id]
}

// Len returns the number of distinct rule names registered, R in spec.md's
// terms; R must not exceed 256.
func (r *Registry) Len() int {
	return len(r.rules)
}

// StartID returns the id of the start-symbol rule. ok is false if no rule
// has been marked as the start symbol.
func (r *Registry) StartID() (id int, ok bool) {
	return r.startID, r.startSet
}

// Rules returns every registered rule in id order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Validate checks the registry-level invariants spec.md §4.1 and §3
// (invariant 1, 2) require once grammar parsing has finished: every rule
// has a body, and exactly one rule is marked start.
func (r *Registry) Validate() error {
	if r.undefined > 0 {
		var missing []string
		for _, rule := range r.rules {
			if rule.Body == nil {
				missing = append(missing, rule.Name)
			}
		}
		sort.Strings(missing)
		return fmt.Errorf("undefined rule(s): %v", missing)
	}
	if !r.startSet {
		return fmt.Errorf("no start symbol declared")
	}
	if len(r.rules) > 256 {
		return fmt.Errorf("grammar exceeds 256 rules (%d)", len(r.rules))
	}
	return nil
}
