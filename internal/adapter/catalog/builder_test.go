package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/domain"
)

const astHeader = `#ifndef AST_H
#define AST_H

#include <stddef.h>

#ifdef __cplusplus
extern "C" {
#endif

/* forward first, definition later */
struct ast_node_s;

typedef struct source_location {
    int line;
    int column;
} source_location;

typedef struct ast_node_s ast_node;
typedef int (*visit_fn)(ast_node *node, void *ctx);
typedef unsigned char ast_flags[4];

enum binary_operator { OP_ADD, OP_SUB };

struct ast_node_s {
    int kind;
    source_location loc;
};

ast_node *ast_create(int kind);
void ast_free(ast_node *node);
static inline int ast_kind(const ast_node *n) { return n ? 1 : 0; }
int ast_visit(ast_node *root,
              visit_fn fn,
              void *ctx);
extern int ast_debug;

#ifdef __cplusplus
}
#endif
#endif
`

func TestBuild_TypesAndPrototypes(t *testing.T) {
	c, err := NewBuilder(Options{}).Build([]Header{{Token: "ast.h", Content: astHeader}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ast_flags", "ast_node", "ast_node_s", "binary_operator", "source_location", "visit_fn"}, c.TypeNames())
	assert.Equal(t, []string{"ast_create", "ast_free", "ast_visit"}, c.FunctionNames())

	node, ok := c.Type("ast_node")
	require.True(t, ok)
	assert.False(t, node.Forward)
	assert.Equal(t, "ast.h", node.Header)

	tag, ok := c.Type("ast_node_s")
	require.True(t, ok)
	assert.False(t, tag.Forward, "definition replaces the forward declaration")

	visit, ok := c.Function("ast_visit")
	require.True(t, ok)
	assert.Equal(t, "int ast_visit(ast_node *root, visit_fn fn, void *ctx);", visit.Text)
	assert.Equal(t, "ast.h", c.HeaderOf("ast_create"))

	_, ok = c.Function("ast_kind")
	assert.False(t, ok, "inline definitions are not prototypes")
	_, ok = c.Lookup("ast_debug")
	assert.False(t, ok, "variables are not catalogued")
	assert.Empty(t, c.Diagnostics())
}

func TestBuild_ForwardOnly(t *testing.T) {
	c, err := NewBuilder(Options{}).Build([]Header{{Token: "fwd.h", Content: "struct opaque;\nvoid use(struct opaque *o);\n"}})
	require.NoError(t, err)

	td, ok := c.Type("opaque")
	require.True(t, ok)
	assert.True(t, td.Forward)
	assert.True(t, c.IsType("opaque"))
	assert.False(t, c.IsType("use"))
}

func TestBuild_FirstDefinitionWins(t *testing.T) {
	headers := []Header{
		{Token: "a.h", Content: "int shared(int x);\ntypedef int handle;\n"},
		{Token: "b.h", Content: "int shared(int x);\nlong shared(long x);\ntypedef long handle;\n"},
	}
	c, err := NewBuilder(Options{}).Build(headers)
	require.NoError(t, err)

	assert.Equal(t, "a.h", c.HeaderOf("shared"))
	assert.Equal(t, "a.h", c.HeaderOf("handle"))
	assert.Len(t, c.Duplicates(), 3)

	diags := c.Diagnostics()
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, domain.DiagCatalogAmbiguity, d.Kind)
		assert.False(t, d.Fatal)
		assert.Equal(t, "b.h", d.File)
	}
}

func TestBuild_StrictAmbiguity(t *testing.T) {
	headers := []Header{
		{Token: "a.h", Content: "int shared(int x);\n"},
		{Token: "b.h", Content: "long shared(long x);\n"},
	}
	_, err := NewBuilder(Options{Strict: true}).Build(headers)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogAmbiguity)
}

func TestBuild_TypeNameShadowsPrototype(t *testing.T) {
	c, err := NewBuilder(Options{}).Build([]Header{{Token: "t.h", Content: "typedef int (*callback)(int);\n"}})
	require.NoError(t, err)
	assert.True(t, c.IsType("callback"))
	assert.Empty(t, c.FunctionNames())
}

func TestBuild_CommentsIgnored(t *testing.T) {
	src := "/* int ghost(void); */\n// void phantom(int);\nint real(void); /* trailing ; */\n"
	c, err := NewBuilder(Options{}).Build([]Header{{Token: "c.h", Content: src}})
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, c.FunctionNames())
}

func TestCatalog_NilSafe(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("x")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.Nil(t, c.TypeNames())
}
