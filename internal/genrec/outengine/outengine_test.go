package outengine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/genrec/internal/genrec/grammar"
	"github.com/dekarrin/genrec/internal/genrec/outengine"
)

func lab(n int) *int { return &n }

func Test_Emit_LiteralAndLastLexeme(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "x = "}, "lastval", &lab1, &lab2)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLastLexeme}, "lastval", &lab1, &lab2)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutNewline}, "lastval", &lab1, &lab2)

	assert.NoError(e.Flush())
	assert.Equal("x = lastval\n", buf.String())
}

func Test_Emit_LabelsAreLazyAndStable(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLabel1}, "", &lab1, &lab2)
	first := lab1
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLabel1}, "", &lab1, &lab2)

	assert.Equal(first, lab1, "a second reference to the same slot must not allocate a new label")
	assert.GreaterOrEqual(lab1, 0)
}

func Test_Emit_IndentationAtBeginningOfLine(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutIndentInc}, "", &lab1, &lab2)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "stmt"}, "", &lab1, &lab2)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutNewline}, "", &lab1, &lab2)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "stmt2"}, "", &lab1, &lab2)

	assert.NoError(e.Flush())
	assert.Equal("    stmt\n    stmt2", buf.String())
}

func Test_Emit_DisabledSuppressesAllOutput(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	e.Disable()
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "hidden"}, "", &lab1, &lab2)
	e.Enable()
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "visible"}, "", &lab1, &lab2)

	assert.NoError(e.Flush())
	assert.Equal("visible", buf.String())
}

func Test_SaveRestore_RollsBackIndentAtbegAndSinkText(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "committed"}, "", &lab1, &lab2)

	save := e.Save(sink)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutIndentInc}, "", &lab1, &lab2)
	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "rolled back"}, "", &lab1, &lab2)
	e.Restore(save)

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "kept"}, "", &lab1, &lab2)

	assert.NoError(e.Flush())
	assert.Equal("committedkept", buf.String())
}

func Test_Buffer_ClearBufferEmptiesIt(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	lab1, lab2 := -1, -1

	b := e.Buffer("rule#x")
	e.Emit(b, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "stale"}, "", &lab1, &lab2)
	assert.Equal("stale", e.Buffer("rule#x").String())

	e.ClearBuffer("rule#x")
	assert.Equal("", e.Buffer("rule#x").String())
}

func Test_Emit_OutBufferCopiesNamedBufferIntoSink(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	b := e.Buffer("rule#x")
	e.Emit(b, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "nested"}, "", &lab1, &lab2)

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutBuffer, Buffer: "rule#x"}, "", &lab1, &lab2)

	assert.NoError(e.Flush())
	assert.Equal("nested", buf.String())
}

func Test_Flush_OnlyWritesNewlyCommittedBytes(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	e := outengine.New(&buf)
	sink := e.DefaultSink()
	lab1, lab2 := -1, -1

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "first"}, "", &lab1, &lab2)
	assert.NoError(e.Flush())
	assert.Equal("first", buf.String())

	e.Emit(sink, grammar.OutDirective{Kind: grammar.OutLiteral, Literal: "second"}, "", &lab1, &lab2)
	assert.NoError(e.Flush())
	assert.Equal("firstsecond", buf.String())
}
