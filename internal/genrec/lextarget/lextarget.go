// Package lextarget defines the injectable target-lexer contract (spec.md
// §6.3): the recognizer and code generator consume target input only
// through this interface, never a concrete scanner, so any lexer that can
// report a terminal id per lexeme can be recognized against a compiled
// grammar.
//
// Grounded on internal/ictiobus/types' Token/TokenClass/TokenStream split,
// adapted from string-keyed token classes to the dense termset.ID numbering
// the set engine and code generator operate on.
package lextarget

import "github.com/dekarrin/genrec/internal/genrec/termset"

// Token is a single lexeme paired with the terminal id the lexer assigned
// it and the source line it was found on (for -v trace and error messages).
type Token struct {
	ID     termset.ID
	Lexeme string
	Line   int
}

// Snapshot is an opaque handle returned by Lexer.Snapshot. It must be
// presented back to Restore to rewind the lexer's position, and to
// FreeSnapshot when it will never be restored to, so a lexer backed by a
// bounded buffer can reclaim it. Snapshot values carry no exported fields;
// callers must treat them as opaque.
type Snapshot interface{}

// Lexer is the contract the recognizer and code-generated recognizers
// require of a target-input scanner. It deliberately does not expose a
// Peek: callers that need lookahead without consuming take a Snapshot,
// call Next, inspect the result, and Restore if the token must be "put
// back" — matching genrec.c's snapshot()/next_token()/restore() trio.
type Lexer interface {
	// Init prepares the lexer to scan, called once before any Next.
	Init() error

	// Next returns the next token from the input. At end of input it
	// returns a Token whose ID is the reserved EOF id (see EOFID) and a
	// nil error. The recognizer calls Next again after matching an EOF
	// terminal, so further calls at end of input must keep returning EOF.
	Next() (Token, error)

	// Finish is called once recognition has ended, successfully or not,
	// so the lexer can release any held resources.
	Finish() error

	// Snapshot captures the lexer's current position so it can later be
	// restored, supporting the bounded backtracking spec.md §5 requires
	// for AltBT trials.
	Snapshot() Snapshot

	// Restore rewinds the lexer to a previously captured Snapshot. Every
	// snapshot stays usable after a Restore: the recognizer can restore an
	// AltBT snapshot and later restore a $push snapshot taken after it.
	Restore(Snapshot)

	// FreeSnapshot discards a Snapshot that will never be restored to.
	// Lexers backed by an unbounded in-memory buffer may treat this as a
	// no-op; lexers backed by a bounded ring buffer use it to know when a
	// position can be reclaimed.
	FreeSnapshot(Snapshot)

	// NameToID resolves a terminal's declared #name (spec.md §6.2's #tok
	// form) to its dense id, used by the grammar parser to validate
	// #name references against what the lexer actually recognizes.
	NameToID(name string) (termset.ID, bool)

	// LiteralToID resolves a quoted-string terminal (a keyword or
	// punctuation literal written directly in the grammar) to its id,
	// auto-registering a fresh id for a literal never seen before exactly
	// as genrec.c's lex_str2num does.
	LiteralToID(literal string) termset.ID

	// IDToPrint returns the human-readable form of id for error messages
	// and -v trace output (genrec.c's id_to_print).
	IDToPrint(id termset.ID) string

	// IDToName returns the symbolic #name of id if it was declared with
	// one, for use in generated code (genrec.c's id_to_name); ok is false
	// for anonymous literal terminals.
	IDToName(id termset.ID) (name string, ok bool)

	// KeywordIterate calls fn once per auto-registered keyword/literal
	// terminal, in registration order, so the code generator can emit a
	// keyword table in main() (spec.md §4.6 item 6, genrec.c's
	// lex_keyword_iterate).
	KeywordIterate(fn func(id termset.ID, literal string))
}

// EOFID is the reserved terminal id every Lexer implementation must use for
// end-of-input, matching genrec.c's fixed TOK_EOF slot.
const EOFID = termset.EOF
