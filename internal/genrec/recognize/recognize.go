// Package recognize is the interpretive, single-token-lookahead recognizer
// (spec.md §4.4): a tree walk over a compiled grammar that drives a target
// lexer through the input-state facade, optionally performing bounded
// backtracking (AltBT) and executing output directives into the output
// engine.
//
// Grounded on genrec.c's recognize() function: the same curr_tok/last_str/
// lab1/lab2/bt/sink state threaded through a switch over node kinds, here
// split across explicit Go types instead of C globals, per spec.md's own
// design note to encapsulate process-wide state into one engine object.
package recognize

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/outengine"
	"github.com/dekarrin/genrec/internal/genrecerrors"
	"github.com/dekarrin/genrec/internal/util"
)

var (
	errStackOverflow  = errors.New("$push: input-state stack overflow")
	errStackUnderflow = errors.New("$pop: input-state stack underflow")
)

// Recognizer walks a compiled grammar's production tree against a target
// lexer, matching terminals one lookahead token at a time.
type Recognizer struct {
	reg    *grammar.Registry
	lex    lextarget.Lexer
	out    *outengine.Engine
	progName string

	curTok  lextarget.Token
	lastStr string
	bt      bool
	sink    *util.UndoableStringBuilder
	stack   stateStack

	traceW io.Writer // nil disables -v trace
	verind int
}

// New builds a Recognizer over reg's start rule, reading from lex and
// writing default-sink output through out. progName is used in fatal
// error messages (spec.md §7's "prog_name: file:line: error: message").
func New(reg *grammar.Registry, lex lextarget.Lexer, out *outengine.Engine, progName string) *Recognizer {
	return &Recognizer{
		reg:      reg,
		lex:      lex,
		out:      out,
		progName: progName,
		sink:     out.DefaultSink(),
	}
}

// SetTrace enables -v verbose tracing to w; pass nil to disable.
func (r *Recognizer) SetTrace(w io.Writer) {
	r.traceW = w
}

// Run initializes the lexer, fetches the first token, and recognizes the
// start rule. It returns whether the input was accepted; a non-nil error
// is always fatal (spec.md §7's runtime-recognition error kind).
func (r *Recognizer) Run() (bool, error) {
	if err := r.lex.Init(); err != nil {
		return false, err
	}
	defer r.lex.Finish()

	tok, err := r.lex.Next()
	if err != nil {
		return false, err
	}
	r.curTok = tok

	startID, ok := r.reg.StartID()
	if !ok {
		return false, fmt.Errorf("no start symbol declared")
	}

	ok, err = r.recognizeRule(startID)
	if err != nil {
		return false, err
	}
	if ok {
		r.out.Flush()
	}
	return ok, nil
}

func (r *Recognizer) trace(format string, args ...interface{}) {
	if r.traceW == nil {
		return
	}
	prefix := strings.Repeat("--", r.verind)
	fmt.Fprintf(r.traceW, "%s%s\n", prefix, fmt.Sprintf(format, args...))
}

// recognizeRule recognizes rule id's body as a fresh invocation: fresh
// lab1/lab2 slots, per spec.md §3's Rule.Label-usage / §4.4's per-
// invocation label allocation.
func (r *Recognizer) recognizeRule(id int) (bool, error) {
	rule := r.reg.Rule(id)
	lab1, lab2 := -1, -1

	r.trace("%s", rule.Name)
	r.verind++
	ok, err := r.recognizeNode(rule.Body, &lab1, &lab2)
	r.verind--

	return ok, err
}

func (r *Recognizer) recognizeNode(n *grammar.Node, lab1, lab2 *int) (bool, error) {
	switch n.Kind {
	case grammar.KindTerminal:
		return r.recognizeTerminal(n)
	case grammar.KindNonTerminal:
		return r.recognizeNonTerminal(n)
	case grammar.KindAlt:
		return r.recognizeAlt(n, lab1, lab2)
	case grammar.KindAltBT:
		return r.recognizeAltBT(n, lab1, lab2)
	case grammar.KindConcat:
		ok, err := r.recognizeNode(n.A, lab1, lab2)
		if err != nil || !ok {
			return ok, err
		}
		return r.recognizeNode(n.B, lab1, lab2)
	case grammar.KindRepet:
		for n.Child.First().WithoutEpsilon().Has(r.curTok.ID) {
			ok, err := r.recognizeNode(n.Child, lab1, lab2)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case grammar.KindOption:
		if n.Child.First().WithoutEpsilon().Has(r.curTok.ID) {
			return r.recognizeNode(n.Child, lab1, lab2)
		}
		return true, nil
	case grammar.KindOut:
		r.runOut(n, lab1, lab2)
		return true, nil
	case grammar.KindCtrl:
		return true, r.runCtrl(n)
	default:
		return false, fmt.Errorf("recognize: unhandled node kind %d", n.Kind)
	}
}

func (r *Recognizer) recognizeTerminal(n *grammar.Node) (bool, error) {
	if r.curTok.ID != n.Term {
		if r.bt {
			return false, nil
		}
		return false, genrecerrors.NewSyntaxError(r.progName,
			genrecerrors.Position{Line: r.curTok.Line},
			"unexpected %s", tokenDesc(r.curTok))
	}

	r.lastStr = r.curTok.Lexeme
	r.trace("matched %q", r.lastStr)
	if n.TermSlot != "" {
		r.out.Buffer(n.TermSlot).WriteString(r.lastStr)
	}

	tok, err := r.lex.Next()
	if err != nil {
		return false, err
	}
	r.curTok = tok
	return true, nil
}

func tokenDesc(t lextarget.Token) string {
	if t.Lexeme == "" {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

func (r *Recognizer) recognizeNonTerminal(n *grammar.Node) (bool, error) {
	prevSink := r.sink
	if n.Buffer != "" {
		r.out.ClearBuffer(n.Buffer)
		r.sink = r.out.Buffer(n.Buffer)
	}
	ok, err := r.recognizeRule(n.Rule)
	r.sink = prevSink
	return ok, err
}

func (r *Recognizer) recognizeAlt(n *grammar.Node, lab1, lab2 *int) (bool, error) {
	// No FOLLOW lookahead is needed: a validated grammar has no First/First
	// overlap. When a grammar was accepted without -c and a genuine
	// ambiguity exists, the second branch is silently taken whenever the
	// first's FIRST doesn't match the lookahead.
	if n.A.First().Has(r.curTok.ID) {
		return r.recognizeNode(n.A, lab1, lab2)
	}
	return r.recognizeNode(n.B, lab1, lab2)
}

func (r *Recognizer) recognizeAltBT(n *grammar.Node, lab1, lab2 *int) (bool, error) {
	if !n.A.First().Has(r.curTok.ID) {
		// a can never match; go straight to b under the outer bt.
		return r.recognizeNode(n.B, lab1, lab2)
	}

	save := r.out.Save(r.sink)
	lexSnap := r.lex.Snapshot()
	savedTok, savedLast := r.curTok, r.lastStr

	outerBt := r.bt
	r.bt = true
	ok, err := r.recognizeNode(n.A, lab1, lab2)
	r.bt = outerBt

	if err != nil {
		return false, err
	}
	if ok {
		r.lex.FreeSnapshot(lexSnap)
		return true, nil
	}

	r.out.Restore(save)
	r.lex.Restore(lexSnap)
	r.curTok, r.lastStr = savedTok, savedLast

	return r.recognizeNode(n.B, lab1, lab2)
}

func (r *Recognizer) runOut(n *grammar.Node, lab1, lab2 *int) {
	for _, d := range n.Directives {
		r.out.Emit(r.sink, d, r.lastStr, lab1, lab2)
	}
	if !r.bt && r.sink == r.out.DefaultSink() {
		r.out.Flush()
	}
}

func (r *Recognizer) runCtrl(n *grammar.Node) error {
	switch n.Action {
	case grammar.CtrlPush:
		st := InputState{lexSnap: r.lex.Snapshot(), tok: r.curTok, lastStr: r.lastStr}
		if err := r.stack.push(st); err != nil {
			return genrecerrors.NewFatal(r.progName, "%s", err.Error())
		}
	case grammar.CtrlPop:
		st, err := r.stack.pop()
		if err != nil {
			return genrecerrors.NewFatal(r.progName, "%s", err.Error())
		}
		r.lex.Restore(st.lexSnap)
		r.curTok = st.tok
		r.lastStr = st.lastStr
	case grammar.CtrlEout:
		r.out.Enable()
	case grammar.CtrlDout:
		r.out.Disable()
	}
	return nil
}
