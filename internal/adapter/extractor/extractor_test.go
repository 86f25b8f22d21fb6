package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/adapter/clex"
	"genesis/internal/domain"
)

const scenarioA = `static int helper(int x) { return x + 1; }
int add_one(int x) { return helper(x); }
`

func names(units []domain.FunctionUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Name
	}
	return out
}

func TestExtract_StaticHelperAndHost(t *testing.T) {
	units, err := New().Extract("src/a.c", scenarioA)
	require.NoError(t, err)
	require.Len(t, units, 2)

	helper, host := units[0], units[1]
	assert.Equal(t, "helper", helper.Name)
	assert.True(t, helper.Static)
	assert.Equal(t, "int", helper.ReturnType)
	assert.Equal(t, "int x", helper.Params)
	assert.Equal(t, "{ return x + 1; }", helper.Body)
	assert.Equal(t, "static int helper(int x) { return x + 1; }", helper.FullText)

	assert.Equal(t, "add_one", host.Name)
	assert.False(t, host.Static)
	assert.Equal(t, 2, host.StartLine)
	assert.Equal(t, "src/a.c", host.SourceFile)
}

func TestExtract_BracesInLiteralsAndComments(t *testing.T) {
	src := `const char *open_brace(void)
{
    /* } closing in a comment */
    // and { here
    if ('}' == '{') { return "}"; }
    return "{";
}

int after(void) { return 0; }
`
	units, err := New().Extract("x.c", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"open_brace", "after"}, names(units))
	assert.Equal(t, "const char *", units[0].ReturnType)
	assert.Equal(t, "const char *open_brace(void)", units[0].Declarator())
	for _, u := range units {
		assert.True(t, clex.Balanced(u.Body), u.Name)
	}
}

func TestExtract_SkipsNonFunctions(t *testing.T) {
	src := `#include <stdio.h>
#define WRAP(x) { x }
typedef struct point { int x; int y; } point;
struct config { int verbose; };
static int table[] = { 1, 2, 3 };
enum color { RED, GREEN };

struct point *make_point(int x, int y)
{
    return 0;
}
`
	units, err := New().Extract("p.c", src)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "make_point", units[0].Name)
	assert.Equal(t, "struct point *", units[0].ReturnType)
	assert.Equal(t, "int x, int y", units[0].Params)
}

func TestExtract_Qualifiers(t *testing.T) {
	src := "static inline unsigned long\nhash_step(unsigned long h, char c)\n{\n    return h * 31 + c;\n}\n"
	units, err := New().Extract("h.c", src)
	require.NoError(t, err)
	require.Len(t, units, 1)
	u := units[0]
	assert.True(t, u.Static)
	assert.True(t, u.Inline)
	assert.Equal(t, "unsigned long", u.ReturnType)
	assert.Equal(t, "static unsigned long hash_step(unsigned long h, char c);", u.Prototype())
}

func TestExtract_FunctionPointerParam(t *testing.T) {
	src := "void each(int (*fn)(int), int n) { fn(n); }\n"
	units, err := New().Extract("f.c", src)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "int (*fn)(int), int n", units[0].Params)
}

func TestExtract_Docs(t *testing.T) {
	src := `/* file banner */

int undocumented(void) { return 0; }

/**
 * Adds two numbers.
 */
// second line
int add(int a, int b) { return a + b; }
`
	units, err := New().Extract("d.c", src)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Empty(t, units[0].Docs)
	assert.Equal(t, "/**\n * Adds two numbers.\n */\n// second line", units[1].Docs)
	assert.Less(t, units[1].StartOffset, len(src)-len(units[1].FullText)-1)
}

func TestExtract_DirectiveBoundsDocs(t *testing.T) {
	src := "/* banner */\n#include \"m.h\"\nint f(void) { return 1; }\n"
	units, err := New().Extract("b.c", src)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Empty(t, units[0].Docs)
}

func TestExtract_UnbalancedIsParseError(t *testing.T) {
	tests := map[string]string{
		"missing close": "int f(void) {\n  if (x) {\n  return 0;\n}\n",
		"stray close":   "int x;\n}\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			units, err := New().Extract("bad.c", src)
			assert.Nil(t, units)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "bad.c", pe.File)
			assert.True(t, errors.Is(err, domain.ErrParse))
		})
	}
}

func TestExtract_EmptyAndNoFunctions(t *testing.T) {
	units, err := New().Extract("e.c", "")
	require.NoError(t, err)
	assert.Empty(t, units)

	n, err := New().Count("g.c", "int global = 3;\nextern int other;\n")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExtract_ControlKeywordsNeverNames(t *testing.T) {
	// Top-level only, but a macro-free file can still contain these shapes
	// after a failed edit.
	src := "int ok(void) { while (1) { break; } for (;;) {} return 0; }\n"
	units, err := New().Extract("k.c", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names(units))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(path, []byte(scenarioA), 0644))

	units, err := New().ExtractFile(path)
	require.NoError(t, err)
	assert.Len(t, units, 2)

	_, err = New().ExtractFile(filepath.Join(dir, "missing.c"))
	assert.ErrorIs(t, err, domain.ErrIO)
}

func TestResidualLines(t *testing.T) {
	src := `#include <stdio.h>
#define LIMIT 10
static int counter = 0;

/* doc */
int f(void) { return counter; }
`
	units, err := New().Extract("r.c", src)
	require.NoError(t, err)
	assert.Equal(t, 2, ResidualLines(src, units))
}
