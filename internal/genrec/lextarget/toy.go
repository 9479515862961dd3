package lextarget

import (
	"fmt"
	"io"
	"regexp"

	"golang.org/x/text/cases"

	"github.com/dekarrin/genrec/internal/genrec/rxlex"
	"github.com/dekarrin/genrec/internal/genrec/termset"
)

// Toy is a reference Lexer implementation for spec.md §8's worked arithmetic
// example: operators `+ - * / ( ) ;` and assignment `:=`, identifiers,
// decimal numbers, and whitespace/comment skipping. It exists so codegen and
// recognize have something real to drive end to end without requiring a
// caller-supplied lexer.
//
// Keyword/literal terminals (quoted strings written directly in a grammar
// body, e.g. `"+"`) are auto-registered on first LiteralToID lookup, mirror-
// ing genrec.c's lex_str2num: the first call for a never-seen literal mints
// a fresh id above the declared #name terminals.
type Toy struct {
	eng      *rxlex.Engine
	r        io.Reader
	names    map[string]termset.ID
	idNames  map[termset.ID]string
	literals map[string]termset.ID
	idLits   map[termset.ID]string
	litOrder []termset.ID
	nextID   termset.ID

	fold     cases.Caser
	caseFold bool
}

// Built-in symbolic terminal names, matching spec.md §8's worked scenarios
// which reference the injected lexer's identifier/number classes as #ident
// and #number.
const (
	toyName  = "ident"
	toyNum   = "number"
	toyStart = "DEFAULT"
)

var toyIdentPat = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
var toyNumPat = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)
var toyWSPat = regexp.MustCompile(`^[ \t\r\n]+`)
var toyCommentPat = regexp.MustCompile(`^#[^\n]*`)
var toyAssignPat = regexp.MustCompile(`^:=`)
var toyPunctPat = regexp.MustCompile(`^[-+*/();]`)

// NewToy builds a Toy lexer reading from r. Declared #name terminals (other
// than the fixed ident/number/EOF ids) are registered via DeclareName before
// Init is called, so the grammar parser's #tok references resolve.
func NewToy(r io.Reader) *Toy {
	t := &Toy{
		r:        r,
		names:    make(map[string]termset.ID),
		idNames:  make(map[termset.ID]string),
		literals: make(map[string]termset.ID),
		idLits:   make(map[termset.ID]string),
		nextID:   EOFID + 1,
		fold:     cases.Fold(),
	}
	t.DeclareName("EOF", EOFID)
	t.names[toyName] = t.alloc()
	t.idNames[t.names[toyName]] = toyName
	t.names[toyNum] = t.alloc()
	t.idNames[t.names[toyNum]] = toyNum
	return t
}

func (t *Toy) alloc() termset.ID {
	id := t.nextID
	t.nextID++
	return id
}

// DeclareName pre-registers a symbolic terminal name to a fixed id, used for
// EOF (id 0, fixed by lextarget.EOFID) and any other terminal a grammar
// refers to purely by #name rather than by literal.
func (t *Toy) DeclareName(name string, id termset.ID) {
	t.names[name] = id
	t.idNames[id] = name
}

// NameID returns the id assigned to the built-in identifier token class,
// for grammars that refer to it as #ident.
func (t *Toy) NameID() termset.ID { return t.names[toyName] }

// NumberID returns the id assigned to the built-in number token class,
// for grammars that refer to it as #number.
func (t *Toy) NumberID() termset.ID { return t.names[toyNum] }

// SetCaseInsensitive controls whether quoted literal terminals (e.g. "IF")
// are matched case-insensitively, folding both the grammar's declared
// literal and the lexed source text through golang.org/x/text/cases before
// registration/lookup. Off by default, matching genrec.c's case-sensitive
// keyword table.
func (t *Toy) SetCaseInsensitive(on bool) {
	t.caseFold = on
}

func (t *Toy) foldKey(s string) string {
	if !t.caseFold {
		return s
	}
	return t.fold.String(s)
}

// SetReader rebinds the lexer to a new input source while keeping every
// literal and symbolic-name id registered so far. A grammar's quoted
// literals get their term ids the first time LiteralToID sees them during
// parsing; recognizing (or generating code for) that same grammar must reuse
// those ids rather than re-deriving a fresh, first-encounter-order set from
// scratch, so the Toy instance that parsed the grammar is the one that goes
// on to scan its target input, just re-pointed at a new reader via SetReader
// instead of being replaced by a second NewToy.
func (t *Toy) SetReader(r io.Reader) {
	t.r = r
	t.eng = nil
}

func (t *Toy) Init() error {
	t.eng = rxlex.NewEngine(t.r, toyStart)
	t.eng.AddRule(rxlex.Rule{State: toyStart, Pattern: toyWSPat, Action: rxlex.Action{Kind: rxlex.Discard}})
	t.eng.AddRule(rxlex.Rule{State: toyStart, Pattern: toyCommentPat, Action: rxlex.Action{Kind: rxlex.Discard}})
	t.eng.AddRule(rxlex.Rule{State: toyStart, Pattern: toyAssignPat, Action: rxlex.Action{Kind: rxlex.Emit},
		Make: func(lex string) interface{} { return lex }})
	t.eng.AddRule(rxlex.Rule{State: toyStart, Pattern: toyIdentPat, Action: rxlex.Action{Kind: rxlex.Emit},
		Make: func(lex string) interface{} { return toyIdentResult(lex) }})
	t.eng.AddRule(rxlex.Rule{State: toyStart, Pattern: toyNumPat, Action: rxlex.Action{Kind: rxlex.Emit},
		Make: func(lex string) interface{} { return toyNumResult(lex) }})
	t.eng.AddRule(rxlex.Rule{State: toyStart, Pattern: toyPunctPat, Action: rxlex.Action{Kind: rxlex.Emit},
		Make: func(lex string) interface{} { return lex }})
	return nil
}

type toyIdentResult string
type toyNumResult string

func (t *Toy) Next() (Token, error) {
	val, lexeme, err := t.eng.Next()
	if err == io.EOF {
		return Token{ID: EOFID, Lexeme: "", Line: t.eng.Line()}, nil
	}
	if err != nil {
		return Token{}, err
	}

	line := t.eng.Line()
	switch v := val.(type) {
	case toyIdentResult:
		lex := string(v)
		if id, ok := t.literals[t.foldKey(lex)]; ok {
			return Token{ID: id, Lexeme: lex, Line: line}, nil
		}
		return Token{ID: t.names[toyName], Lexeme: lex, Line: line}, nil
	case toyNumResult:
		return Token{ID: t.names[toyNum], Lexeme: string(v), Line: line}, nil
	default:
		lit := lexeme
		return Token{ID: t.LiteralToID(lit), Lexeme: lit, Line: line}, nil
	}
}

func (t *Toy) Finish() error { return nil }

func (t *Toy) Snapshot() Snapshot {
	return t.eng.Snapshot()
}

func (t *Toy) Restore(s Snapshot) {
	t.eng.Restore(s.(rxlex.Mark))
}

func (t *Toy) FreeSnapshot(Snapshot) {}

func (t *Toy) NameToID(name string) (termset.ID, bool) {
	id, ok := t.names[name]
	return id, ok
}

func (t *Toy) LiteralToID(literal string) termset.ID {
	key := t.foldKey(literal)
	if id, ok := t.literals[key]; ok {
		return id
	}
	id := t.alloc()
	t.literals[key] = id
	t.idLits[id] = literal
	t.litOrder = append(t.litOrder, id)
	return id
}

func (t *Toy) IDToPrint(id termset.ID) string {
	if lit, ok := t.idLits[id]; ok {
		return fmt.Sprintf("%q", lit)
	}
	if name, ok := t.idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("<%d>", id)
}

func (t *Toy) IDToName(id termset.ID) (string, bool) {
	name, ok := t.idNames[id]
	return name, ok
}

func (t *Toy) KeywordIterate(fn func(id termset.ID, literal string)) {
	for _, id := range t.litOrder {
		fn(id, t.idLits[id])
	}
}
