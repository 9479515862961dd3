// Package outengine executes output directives (spec.md §4.5) against a
// sink: the default (process-output) sink or a named buffer, tracking
// indentation, the "at beginning of line" flag, the lazy label counter, and
// the outputting gate.
//
// Grounded on genrec.c's global output state (outind, atbeg, labcnt,
// outputting) folded into a single Engine object per spec.md's design note
// "encapsulate them into a single engine object passed explicitly," and on
// internal/util.UndoableStringBuilder (internal/util/sb.go) for the
// per-sink buffer that AltBT backtracking can roll back to an earlier Mark.
package outengine

import (
	"io"

	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/util"
)

// indentWidth is the fixed column step the `+`/`-` directives use
// (spec.md §4.5).
const indentWidth = 4

// Engine holds all process-wide output state for one recognition or
// translation run.
type Engine struct {
	w          io.Writer
	defaultSnk *util.UndoableStringBuilder
	buffers    map[string]*util.UndoableStringBuilder
	outind     int
	atbeg      bool
	labcnt     int
	outputting bool
	flushed    int
}

// New builds an Engine that flushes its default sink's committed output to
// w as it progresses.
func New(w io.Writer) *Engine {
	return &Engine{
		w:          w,
		defaultSnk: &util.UndoableStringBuilder{},
		buffers:    make(map[string]*util.UndoableStringBuilder),
		atbeg:      true,
		outputting: true,
	}
}

// DefaultSink returns the process-wide default sink.
func (e *Engine) DefaultSink() *util.UndoableStringBuilder {
	return e.defaultSnk
}

// Buffer returns the named buffer for key (already rule-qualified by the
// grammar parser), creating it empty if this is the first reference.
func (e *Engine) Buffer(key string) *util.UndoableStringBuilder {
	b, ok := e.buffers[key]
	if !ok {
		b = &util.UndoableStringBuilder{}
		e.buffers[key] = b
	}
	return b
}

// ClearBuffer empties the named buffer, called when a NonTerminal node that
// owns it is entered (spec.md §3 "Lifecycles").
func (e *Engine) ClearBuffer(key string) {
	b := e.Buffer(key)
	b.Reset()
}

// Enable/Disable implement the `$eout`/`$dout` control actions.
func (e *Engine) Enable()  { e.outputting = true }
func (e *Engine) Disable() { e.outputting = false }

// Outputting reports the current gating flag.
func (e *Engine) Outputting() bool {
	return e.outputting
}

// AllocLabel returns a fresh, monotonically increasing label id (spec.md
// §4.5's labcnt).
func (e *Engine) AllocLabel() int {
	id := e.labcnt
	e.labcnt++
	return id
}

// Snapshot is the state an AltBT trial saves before attempting its first
// alternative, so a failed trial can roll everything back atomically
// (spec.md §5's backtracking discipline: outind, atbeg, labcnt, and the
// default sink's write position — named buffers are deliberately excluded,
// per the documented limitation).
type Snapshot struct {
	outind    int
	atbeg     bool
	labcnt    int
	sinkMark  int
	sink      *util.UndoableStringBuilder
}

// Save captures the engine's rollback-relevant state, scoped to the given
// sink (the sink active when the AltBT node is entered).
func (e *Engine) Save(sink *util.UndoableStringBuilder) Snapshot {
	return Snapshot{
		outind:   e.outind,
		atbeg:    e.atbeg,
		labcnt:   e.labcnt,
		sinkMark: sink.Mark(),
		sink:     sink,
	}
}

// Restore undoes every write and counter change made since the matching
// Save, per spec.md §5: outind, atbeg, labcnt, and the sink's write
// position are restored atomically. Named buffers are untouched.
func (e *Engine) Restore(s Snapshot) {
	e.outind = s.outind
	e.atbeg = s.atbeg
	e.labcnt = s.labcnt
	s.sink.Restore(s.sinkMark)
}

// Emit executes one output directive into sink, using lastStr as the most
// recently matched terminal's lexeme and lab1/lab2 as the enclosing rule
// invocation's lazy label slots (each -1 until first referenced).
func (e *Engine) Emit(sink *util.UndoableStringBuilder, d grammar.OutDirective, lastStr string, lab1, lab2 *int) {
	if !e.outputting {
		return
	}
	switch d.Kind {
	case grammar.OutLiteral:
		e.writeText(sink, d.Literal)
	case grammar.OutLastLexeme:
		e.writeText(sink, lastStr)
	case grammar.OutLabel1:
		if *lab1 < 0 {
			*lab1 = e.AllocLabel()
		}
		e.writeLabel(sink, *lab1)
	case grammar.OutLabel2:
		if *lab2 < 0 {
			*lab2 = e.AllocLabel()
		}
		e.writeLabel(sink, *lab2)
	case grammar.OutBuffer:
		buf := e.Buffer(d.Buffer)
		content := buf.String()
		sink.WriteString(content)
		if len(content) > 0 {
			e.atbeg = content[len(content)-1] == '\n'
		}
	case grammar.OutNewline:
		sink.WriteByte('\n')
		e.atbeg = true
	case grammar.OutIndentInc:
		e.outind += indentWidth
	case grammar.OutIndentDec:
		e.outind -= indentWidth
		if e.outind < 0 {
			e.outind = 0
		}
	}
}

func (e *Engine) writeText(sink *util.UndoableStringBuilder, text string) {
	if e.atbeg && e.outind > 0 {
		for i := 0; i < e.outind; i++ {
			sink.WriteByte(' ')
		}
	}
	sink.WriteString(text)
	e.atbeg = false
}

func (e *Engine) writeLabel(sink *util.UndoableStringBuilder, id int) {
	if e.atbeg && e.outind > 0 {
		for i := 0; i < e.outind; i++ {
			sink.WriteByte(' ')
		}
	}
	sink.WriteString("L")
	sink.WriteString(itoa(id))
	e.atbeg = false
}

// Flush writes any newly-committed bytes of the default sink to the
// underlying writer. Called by the recognizer after every completed
// (non-backtracking) Out block at the root of the sink (spec.md §4.5).
func (e *Engine) Flush() error {
	full := e.defaultSnk.String()
	if e.flushed >= len(full) {
		return nil
	}
	pending := full[e.flushed:]
	e.flushed = len(full)
	_, err := io.WriteString(e.w, pending)
	return err
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
