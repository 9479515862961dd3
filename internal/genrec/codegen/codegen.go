// Package codegen lowers a compiled grammar to a recursive-descent
// recognizer written in a generic C-like target language (spec.md §4.6).
//
// Grounded on genrec.c's write_rule()/generate_recognizer(), which perform
// the identical structural recursion over the same node kinds the
// interpretive recognizer walks, but emit text instead of executing;
// pretty-printing of the generated source leans on github.com/dekarrin/
// rosed's line-wrapping (the same library the teacher uses for text layout)
// for the one place generated lines can run long: FIRST-test disjunctions
// over many terminals.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/termset"
)

// UnsupportedError is returned when the grammar uses a construct the code
// generator explicitly refuses to lower (spec.md §4.6 item 5, §7's
// "code-generation unsupported" error kind): AltBT, control actions, or
// named-buffer output.
type UnsupportedError struct {
	Rule   string
	Detail string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("rule %q: code generation does not support %s", e.Rule, e.Detail)
}

// Generator emits a recursive-descent recognizer for a compiled grammar.
type Generator struct {
	reg    *grammar.Registry
	target lextarget.Lexer
	buf    strings.Builder
}

// New builds a Generator over reg, resolving terminal print/name forms
// through target.
func New(reg *grammar.Registry, target lextarget.Lexer) *Generator {
	return &Generator{reg: reg, target: target}
}

// Generate lowers the entire grammar and returns the generated source, or
// the first UnsupportedError encountered while walking a rule body.
func (g *Generator) Generate() (string, error) {
	startID, ok := g.reg.StartID()
	if !ok {
		return "", fmt.Errorf("no start symbol declared")
	}

	g.emitHeader()
	terms := g.usedTerminals()
	g.emitTermDefines(terms)
	g.emitRuntime()
	g.emitForwardDecls()

	for _, r := range g.reg.Rules() {
		if r.Body == nil {
			continue
		}
		if err := g.emitRule(r); err != nil {
			return "", err
		}
	}

	g.emitMain(g.reg.Rule(startID).Name, terms)

	return g.buf.String(), nil
}

func (g *Generator) emitHeader() {
	g.buf.WriteString("/* generated recursive-descent recognizer */\n")
	g.buf.WriteString("#include \"lexer.h\"\n\n")
}

// usedTerminals returns every terminal id referenced by the grammar, in
// ascending order, by walking every rule body.
func (g *Generator) usedTerminals() []termset.ID {
	seen := make(map[termset.ID]bool)
	for _, r := range g.reg.Rules() {
		collectTerminals(r.Body, seen)
	}
	ids := make([]termset.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func collectTerminals(n *grammar.Node, seen map[termset.ID]bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case grammar.KindTerminal:
		seen[n.Term] = true
	case grammar.KindNonTerminal:
		// resolved separately via each rule's own body walk
	case grammar.KindAlt, grammar.KindAltBT, grammar.KindConcat:
		collectTerminals(n.A, seen)
		collectTerminals(n.B, seen)
	case grammar.KindRepet, grammar.KindOption:
		collectTerminals(n.Child, seen)
	}
}

func (g *Generator) emitTermDefines(terms []termset.ID) {
	for _, id := range terms {
		name, ok := g.target.IDToName(id)
		if !ok {
			name = fmt.Sprintf("LIT_%d", int(id))
		}
		fmt.Fprintf(&g.buf, "#define T_%s %d\n", name, int(id))
	}
	g.buf.WriteString("\n")
}

func (g *Generator) emitRuntime() {
	g.buf.WriteString(strings.TrimLeft(`
static int curr_tok;
static char last_tokstr[256];
static int indent;

#define LA(t) (curr_tok == (t))

static void error(const char *msg) {
	fprintf(stderr, "error: %s\n", msg);
	exit(1);
}

static void match(int expected) {
	if (curr_tok != expected) {
		error("unexpected token");
	}
	strncpy(last_tokstr, token_string(), sizeof(last_tokstr) - 1);
	curr_tok = next_token();
}

static void getlab(int *lab) {
	static int labcnt = 0;
	if (*lab < 0) {
		*lab = labcnt++;
	}
}
`, "\n"))
	g.buf.WriteString("\n")
}

func (g *Generator) emitForwardDecls() {
	for _, r := range g.reg.Rules() {
		if r.Body == nil {
			continue
		}
		fmt.Fprintf(&g.buf, "static void %s(void);\n", r.Name)
	}
	g.buf.WriteString("\n")
}

func (g *Generator) emitRule(r *grammar.Rule) error {
	fmt.Fprintf(&g.buf, "static void %s(void) {\n", r.Name)
	if r.Label1Used {
		g.buf.WriteString("\tint lab1 = -1;\n")
	}
	if r.Label2Used {
		g.buf.WriteString("\tint lab2 = -1;\n")
	}
	if err := g.emitNode(r.Name, r.Body, 1); err != nil {
		return err
	}
	g.buf.WriteString("}\n\n")
	return nil
}

func indentStr(depth int) string {
	return strings.Repeat("\t", depth)
}

// firstTest renders a disjunction `LA(T_X) || LA(T_Y) || ...` over s's
// members, in ascending terminal-id order (spec.md §4.6: "must never depend
// on set-membership order"), wrapped at 100 columns via rosed if it runs
// long.
func (g *Generator) firstTest(s termset.Set) string {
	members := s.Members()
	parts := make([]string, len(members))
	for i, id := range members {
		name, ok := g.target.IDToName(id)
		if !ok {
			name = fmt.Sprintf("LIT_%d", int(id))
		}
		parts[i] = fmt.Sprintf("LA(T_%s)", name)
	}
	joined := strings.Join(parts, " || ")
	if len(joined) <= 100 {
		return joined
	}
	return rosed.Edit(joined).Wrap(100).String()
}

func (g *Generator) emitNode(ruleName string, n *grammar.Node, depth int) error {
	ind := indentStr(depth)
	switch n.Kind {
	case grammar.KindTerminal:
		name, ok := g.target.IDToName(n.Term)
		if !ok {
			name = fmt.Sprintf("LIT_%d", int(n.Term))
		}
		fmt.Fprintf(&g.buf, "%smatch(T_%s);\n", ind, name)
		return nil
	case grammar.KindNonTerminal:
		fmt.Fprintf(&g.buf, "%s%s();\n", ind, g.reg.Rule(n.Rule).Name)
		return nil
	case grammar.KindAlt:
		fmt.Fprintf(&g.buf, "%sif (%s) {\n", ind, g.firstTest(n.A.First()))
		if err := g.emitNode(ruleName, n.A, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(&g.buf, "%s} else {\n", ind)
		if err := g.emitNode(ruleName, n.B, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(&g.buf, "%s}\n", ind)
		return nil
	case grammar.KindAltBT:
		return &UnsupportedError{Rule: ruleName, Detail: "backtracking brackets [[...]]"}
	case grammar.KindConcat:
		if err := g.emitNode(ruleName, n.A, depth); err != nil {
			return err
		}
		return g.emitNode(ruleName, n.B, depth)
	case grammar.KindRepet:
		fmt.Fprintf(&g.buf, "%swhile (%s) {\n", ind, g.firstTest(n.Child.First()))
		if err := g.emitNode(ruleName, n.Child, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(&g.buf, "%s}\n", ind)
		return nil
	case grammar.KindOption:
		fmt.Fprintf(&g.buf, "%sif (%s) {\n", ind, g.firstTest(n.Child.First()))
		if err := g.emitNode(ruleName, n.Child, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(&g.buf, "%s}\n", ind)
		return nil
	case grammar.KindOut:
		return g.emitOut(ruleName, n, depth)
	case grammar.KindCtrl:
		return &UnsupportedError{Rule: ruleName, Detail: fmt.Sprintf("control action $%s", n.Action)}
	default:
		return fmt.Errorf("codegen: unhandled node kind %d", n.Kind)
	}
}

// emitOut folds contiguous inline directives into a single printf call per
// spec.md §4.6 item 5, splitting the call whenever a `;` (newline) or `+`/
// `-` (indent change) directive is encountered, since those have side
// effects that must happen between writes.
func (g *Generator) emitOut(ruleName string, n *grammar.Node, depth int) error {
	ind := indentStr(depth)
	var format strings.Builder
	var args []string

	flush := func() {
		if format.Len() == 0 {
			return
		}
		if len(args) == 0 {
			fmt.Fprintf(&g.buf, "%sprintf(\"%s\");\n", ind, format.String())
		} else {
			fmt.Fprintf(&g.buf, "%sprintf(\"%s\", %s);\n", ind, format.String(), strings.Join(args, ", "))
		}
		format.Reset()
		args = nil
	}

	for _, d := range n.Directives {
		switch d.Kind {
		case grammar.OutLiteral:
			format.WriteString(cEscape(d.Literal))
		case grammar.OutLastLexeme:
			format.WriteString("%s")
			args = append(args, "last_tokstr")
		case grammar.OutLabel1:
			format.WriteString("L%d")
			args = append(args, "(getlab(&lab1), lab1)")
		case grammar.OutLabel2:
			format.WriteString("L%d")
			args = append(args, "(getlab(&lab2), lab2)")
		case grammar.OutBuffer:
			return &UnsupportedError{Rule: ruleName, Detail: fmt.Sprintf("named buffer output $%s", d.Buffer)}
		case grammar.OutNewline:
			format.WriteString("\\n")
			flush()
		case grammar.OutIndentInc:
			flush()
			fmt.Fprintf(&g.buf, "%sindent += 4;\n", ind)
		case grammar.OutIndentDec:
			flush()
			fmt.Fprintf(&g.buf, "%sindent -= 4;\n", ind)
		}
	}
	flush()
	return nil
}

func cEscape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")
	return r.Replace(s)
}

func (g *Generator) emitMain(startRule string, terms []termset.ID) {
	g.buf.WriteString("int main(void) {\n")
	g.buf.WriteString("\tlexer_init();\n")
	g.target.KeywordIterate(func(id termset.ID, literal string) {
		fmt.Fprintf(&g.buf, "\tregister_keyword(%q, %d);\n", literal, int(id))
	})
	g.buf.WriteString("\tcurr_tok = next_token();\n")
	fmt.Fprintf(&g.buf, "\t%s();\n", startRule)
	g.buf.WriteString("\tlexer_finish();\n")
	g.buf.WriteString("\treturn 0;\n")
	g.buf.WriteString("}\n")
}
