package codegen_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/genrec/internal/genrec/codegen"
	"github.com/dekarrin/genrec/internal/genrec/gramlex"
	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
	"github.com/dekarrin/genrec/internal/genrec/setengine"
)

func compile(t *testing.T, src string) (*grammar.Registry, *lextarget.Toy) {
	t.Helper()
	target := lextarget.NewToy(strings.NewReader(""))
	p := grammar.NewParser(gramlex.New(strings.NewReader(src)), target)
	reg, err := p.Parse()
	if err != nil {
		t.Fatalf("parse grammar: %v", err)
	}
	if err := setengine.Compute(reg); err != nil {
		t.Fatalf("compute sets: %v", err)
	}
	return reg, target
}

func Test_Generate_BasicRuleAndAlt(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = "a" ( "b" | "c" ) ;`+"\n"+`.`)
	src, err := codegen.New(reg, target).Generate()
	if !assert.NoError(err) {
		return
	}

	assert.Contains(src, "static void s(void) {")
	assert.Contains(src, "match(T_")
	assert.Contains(src, "if (LA(T_")
	assert.Contains(src, "int main(void) {")
	assert.Contains(src, "s();")
}

func Test_Generate_RepetAndOption(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = [ "a" ] { "b" } ;`+"\n"+`.`)
	src, err := codegen.New(reg, target).Generate()
	if !assert.NoError(err) {
		return
	}

	assert.Contains(src, "while (LA(T_")
	assert.Contains(src, "if (LA(T_")
}

func Test_Generate_OutputLiteralAndLastLexemeFoldIntoOnePrintf(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = "a" {{ "got " * ; }} ;`+"\n"+`.`)
	src, err := codegen.New(reg, target).Generate()
	if !assert.NoError(err) {
		return
	}

	assert.Contains(src, `printf("got %s\n", last_tokstr);`)
}

func Test_Generate_AltBTIsUnsupported(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = [[ "a" "b" | "a" "c" ]] ;`+"\n"+`.`)
	_, err := codegen.New(reg, target).Generate()

	var uerr *codegen.UnsupportedError
	assert.True(errors.As(err, &uerr), "expected an UnsupportedError, got %v", err)
}

func Test_Generate_CtrlActionIsUnsupported(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = $push "a" ;`+"\n"+`.`)
	_, err := codegen.New(reg, target).Generate()

	var uerr *codegen.UnsupportedError
	assert.True(errors.As(err, &uerr), "expected an UnsupportedError, got %v", err)
}

func Test_Generate_NamedBufferOutputIsUnsupported(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = a > $tmp {{ $tmp }} ;`+"\n"+`a = "x" ;`+"\n"+`.`)
	_, err := codegen.New(reg, target).Generate()

	var uerr *codegen.UnsupportedError
	assert.True(errors.As(err, &uerr), "expected an UnsupportedError, got %v", err)
}

func Test_Generate_TermDefinesDoNotDependOnDeclarationOrder(t *testing.T) {
	assert := assert.New(t)

	reg, target := compile(t, `s* = "z" "a" ;`+"\n"+`.`)
	src, err := codegen.New(reg, target).Generate()
	if !assert.NoError(err) {
		return
	}

	zIdx := strings.Index(src, "#define T_")
	if !assert.GreaterOrEqual(zIdx, 0) {
		return
	}
	// both literals must have a #define regardless of reference order within
	// the rule body
	assert.Equal(2, strings.Count(src, "#define T_"))
}
