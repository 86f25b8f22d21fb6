package clex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_Kinds(t *testing.T) {
	src := "#include <stdio.h>\n" +
		"/* block { */\n" +
		"int f(void) { // brace }\n" +
		"  return \"}\"[0] + '{';\n" +
		"}\n"

	spans := Scan(src)
	var kinds []Kind
	for _, s := range spans {
		if s.Kind != Code {
			kinds = append(kinds, s.Kind)
		}
	}
	assert.Equal(t, []Kind{Directive, BlockComment, LineComment, String, Char}, kinds)

	// spans tile the input
	pos := 0
	for _, s := range spans {
		require.Equal(t, pos, s.Start)
		pos = s.End
	}
	assert.Equal(t, len(src), pos)
}

func TestMask_PreservesOffsets(t *testing.T) {
	src := "int a = '}'; /* { */ char *s = \"{{\";\n// }\n"
	masked := Mask(src)

	require.Equal(t, len(src), len(masked))
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(masked, "\n"))
	assert.NotContains(t, masked, "{")
	assert.NotContains(t, masked, "}")
	assert.Contains(t, masked, "char *s = \"  \";")
}

func TestMask_EscapedQuotes(t *testing.T) {
	src := `s = "a\"{"; c = '\''; d = '{';`
	masked := Mask(src)
	assert.NotContains(t, masked, "{")
	assert.True(t, strings.HasSuffix(masked, "d = ' ';"))
}

func TestScan_DirectiveContinuation(t *testing.T) {
	src := "#define BODY { \\\n  x; }\nint y;\n"
	masked := Mask(src)
	assert.NotContains(t, masked, "{")
	assert.Contains(t, masked, "int y;")
}

func TestScan_DirectiveOnlyAtLineStart(t *testing.T) {
	spans := Scan("x = a # b;\n  #if X\n#endif\n")
	var directives int
	for _, s := range spans {
		if s.Kind == Directive {
			directives++
		}
	}
	assert.Equal(t, 2, directives)
}

func TestScan_UnterminatedBlockComment(t *testing.T) {
	src := "int x; /* never closed {"
	spans := Scan(src)
	last := spans[len(spans)-1]
	assert.Equal(t, BlockComment, last.Kind)
	assert.Equal(t, len(src), last.End)
}

func TestMatchBrace(t *testing.T) {
	masked := Mask("{ if (x) { y(\"}\"); } }")
	end, ok := MatchBrace(masked, 0)
	require.True(t, ok)
	assert.Equal(t, len(masked)-1, end)

	_, ok = MatchBrace(Mask("{ { }"), 0)
	assert.False(t, ok)
}

func TestOpenParen(t *testing.T) {
	s := "int f(int (*cb)(int), char c)"
	open, ok := OpenParen(s, len(s)-1)
	require.True(t, ok)
	assert.Equal(t, strings.Index(s, "("), open)
}

func TestBalanced(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"{ }", true},
		{"{ \"}\" }", true},
		{"{ /* } */ }", true},
		{"{ '}' ", false},
		{"} {", false},
		{"", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Balanced(tt.src), tt.src)
	}
}

func TestLineIndex(t *testing.T) {
	src := "a\nbb\n\nccc"
	idx := NewLineIndex(src)
	assert.Equal(t, 1, idx.Line(0))
	assert.Equal(t, 1, idx.Line(1))
	assert.Equal(t, 2, idx.Line(2))
	assert.Equal(t, 4, idx.Line(len(src)-1))
	assert.Equal(t, 4, Lines(src))
	assert.Equal(t, 3, Lines("a\nb\nc\n"))
	assert.Equal(t, 0, Lines(""))
}
