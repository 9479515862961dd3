package recognize_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/genrec/internal/genrec/gramlex"
	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/outengine"
	"github.com/dekarrin/genrec/internal/genrec/recognize"
	"github.com/dekarrin/genrec/internal/genrec/setengine"
)

func compileOverToy(t *testing.T, grammarSrc string) (*grammar.Registry, func(input string) *lextarget.Toy) {
	t.Helper()

	parseTarget := lextarget.NewToy(strings.NewReader(""))
	p := grammar.NewParser(gramlex.New(strings.NewReader(grammarSrc)), parseTarget)
	reg, err := p.Parse()
	if err != nil {
		t.Fatalf("parse grammar: %v", err)
	}
	if err := setengine.Compute(reg); err != nil {
		t.Fatalf("compute sets: %v", err)
	}

	// Recognition must reuse the same Toy that parsed the grammar, re-
	// pointed at the target input: literal terminal ids are assigned the
	// first time LiteralToID sees them during parsing, and a second, empty
	// Toy would re-derive a different first-encounter-order set of ids.
	mkTarget := func(input string) *lextarget.Toy {
		parseTarget.SetReader(strings.NewReader(input))
		return parseTarget
	}
	return reg, mkTarget
}

// Test_Recognize_BasicConcatAndAlt exercises spec.md §8 Scenario A-style
// recognition: plain terminal matching, Concat, and an unambiguous Alt.
func Test_Recognize_BasicConcatAndAlt(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expectOK  bool
		expectErr bool
	}{
		{name: "first alt branch", input: "a b", expectOK: true},
		{name: "second alt branch", input: "a c", expectOK: true},
		{name: "neither branch matches", input: "a d", expectErr: true},
	}

	reg, mkTarget := compileOverToy(t, `s* = "a" ( "b" | "c" ) ;`+"\n"+`.`)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			target := mkTarget(tc.input)
			out := outengine.New(&bytes.Buffer{})
			rec := recognize.New(reg, target, out, "genrec")

			ok, err := rec.Run()
			if tc.expectErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectOK, ok)
		})
	}
}

// Test_Recognize_AltBT_FatalOnUnmatchedFallback walks spec.md §8 Scenario
// E: a failed first AltBT branch falls back to the second, but a terminal
// mismatch inside that second branch is still a fatal syntax error when the
// recognizer was not already inside some other backtracking trial.
func Test_Recognize_AltBT_FatalOnUnmatchedFallback(t *testing.T) {
	reg, mkTarget := compileOverToy(t, `s* = [[ "a" "b" | "a" "c" ]] ;`+"\n"+`.`)

	testCases := []struct {
		name      string
		input     string
		expectOK  bool
		expectErr bool
	}{
		{name: "matches first branch", input: "a b", expectOK: true},
		{name: "falls back to second branch", input: "a c", expectOK: true},
		{name: "neither branch matches: fatal, not a silent reject", input: "a d", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			target := mkTarget(tc.input)
			out := outengine.New(&bytes.Buffer{})
			rec := recognize.New(reg, target, out, "genrec")

			ok, err := rec.Run()
			if tc.expectErr {
				assert.Error(err, "a terminal mismatch in the fallback branch must be fatal")
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectOK, ok)
		})
	}
}

// Test_Recognize_RepetAndOption exercises the Repet/Option FIRST-test loop
// semantics: a repetition runs zero or more times strictly by lookahead,
// an option runs zero or one times.
func Test_Recognize_RepetAndOption(t *testing.T) {
	reg, mkTarget := compileOverToy(t, `s* = [ "a" ] { "b" } "c" ;`+"\n"+`.`)

	testCases := []struct {
		name     string
		input    string
		expectOK bool
	}{
		{name: "option and repetition both absent", input: "c", expectOK: true},
		{name: "option present, no repetitions", input: "a c", expectOK: true},
		{name: "option present, several repetitions", input: "a b b b c", expectOK: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			target := mkTarget(tc.input)
			out := outengine.New(&bytes.Buffer{})
			rec := recognize.New(reg, target, out, "genrec")

			ok, err := rec.Run()
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectOK, ok)
		})
	}
}

// Test_Recognize_OutputDirectives exercises the output engine end to end:
// literal text, the last-matched-lexeme directive, and a newline directive.
func Test_Recognize_OutputDirectives(t *testing.T) {
	assert := assert.New(t)

	reg, mkTarget := compileOverToy(t, `s* = "a" {{ "got " * ; }} ;`+"\n"+`.`)

	target := mkTarget("a")
	var buf bytes.Buffer
	out := outengine.New(&buf)
	rec := recognize.New(reg, target, out, "genrec")

	ok, err := rec.Run()
	if !assert.NoError(err) {
		return
	}
	assert.True(ok)
	assert.Equal("got a\n", buf.String())
}

// Test_Recognize_PushPop exercises $push/$pop: the first AltBT branch saves
// the input position with $push, and after that branch fails the second
// branch restores it with $pop and re-lexes the same tokens.
func Test_Recognize_PushPop(t *testing.T) {
	assert := assert.New(t)

	// s tries "a" "x" first (always fails at "x" since it isn't there), then
	// falls back via AltBT to replaying from the saved position with "a" "b".
	src := `s* = [[ $push "a" "x" | $pop "a" "b" ]] ;` + "\n" + `.`
	reg, mkTarget := compileOverToy(t, src)

	target := mkTarget("a b")
	out := outengine.New(&bytes.Buffer{})
	rec := recognize.New(reg, target, out, "genrec")

	ok, err := rec.Run()
	if !assert.NoError(err) {
		return
	}
	assert.True(ok)
}
