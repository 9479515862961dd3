package lextarget_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/genrec/internal/genrec/lextarget"
)

func collectTokens(t *testing.T, lex *lextarget.Toy) []lextarget.Token {
	t.Helper()
	if !assert.NoError(t, lex.Init()) {
		t.FailNow()
	}
	defer lex.Finish()

	var toks []lextarget.Token
	for {
		tok, err := lex.Next()
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		toks = append(toks, tok)
		if tok.ID == lextarget.EOFID {
			return toks
		}
	}
}

func Test_Toy_TokenizesIdentsNumbersAndPunctuation(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader("x := 10 + y;"))
	toks := collectTokens(t, lex)

	if !assert.Len(toks, 7) {
		return
	}
	assert.Equal("x", toks[0].Lexeme)
	assert.Equal(lex.NameID(), toks[0].ID)
	assert.Equal(":=", toks[1].Lexeme)
	assert.Equal("10", toks[2].Lexeme)
	assert.Equal(lex.NumberID(), toks[2].ID)
	assert.Equal("+", toks[3].Lexeme)
	assert.Equal("y", toks[4].Lexeme)
	assert.Equal(";", toks[5].Lexeme)
	assert.Equal(lextarget.EOFID, toks[6].ID)
}

func Test_Toy_SkipsWhitespaceAndComments(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader("  x  # a comment\n + y"))
	toks := collectTokens(t, lex)

	if !assert.Len(toks, 4) {
		return
	}
	assert.Equal("x", toks[0].Lexeme)
	assert.Equal("+", toks[1].Lexeme)
	assert.Equal("y", toks[2].Lexeme)
}

func Test_Toy_LiteralToIDIsStableAcrossCalls(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader(""))
	first := lex.LiteralToID("if")
	second := lex.LiteralToID("if")
	other := lex.LiteralToID("else")

	assert.Equal(first, second)
	assert.NotEqual(first, other)
}

func Test_Toy_IDToPrintRendersLiteralsQuotedAndNamesBare(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader(""))
	litID := lex.LiteralToID("if")

	assert.Equal(`"if"`, lex.IDToPrint(litID))
	assert.Equal("ident", lex.IDToPrint(lex.NameID()))
}

func Test_Toy_CaseInsensitiveFoldsLiteralLookup(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader(""))
	lex.SetCaseInsensitive(true)

	declaredID := lex.LiteralToID("if")
	lookupID := lex.LiteralToID("IF")

	assert.Equal(declaredID, lookupID, "case-insensitive mode must fold IF onto the declared literal if")
}

func Test_Toy_CaseSensitiveByDefaultDoesNotFold(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader(""))

	declaredID := lex.LiteralToID("if")
	lookupID := lex.LiteralToID("IF")

	assert.NotEqual(declaredID, lookupID, "without case-folding, IF and if must be distinct literals")
}

func Test_Toy_SnapshotRestoreReplaysTokens(t *testing.T) {
	assert := assert.New(t)

	lex := lextarget.NewToy(strings.NewReader("a b c"))
	if !assert.NoError(lex.Init()) {
		return
	}
	defer lex.Finish()

	first, err := lex.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("a", first.Lexeme)

	snap := lex.Snapshot()

	second, err := lex.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("b", second.Lexeme)

	lex.Restore(snap)

	replay, err := lex.Next()
	if !assert.NoError(err) {
		return
	}
	assert.Equal("b", replay.Lexeme, "restoring to the snapshot must replay the same next token")
}
