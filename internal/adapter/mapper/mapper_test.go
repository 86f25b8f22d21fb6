package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMapper(t *testing.T, rules ...Rule) *Mapper {
	t.Helper()
	m, err := New(rules, Options{OutputRoot: "src"})
	require.NoError(t, err)
	return m
}

func TestRoute_RuleOrderDecides(t *testing.T) {
	narrowFirst := newMapper(t,
		Rule{Pattern: "xmd_log_", Dir: "utils/logging"},
		Rule{Pattern: "xmd_", Dir: "utils"},
	)
	assert.Equal(t, "src/utils/logging/xmd_log_init.c", narrowFirst.Path("xmd_log_init"))
	assert.Equal(t, "src/utils/xmd_strdup.c", narrowFirst.Path("xmd_strdup"))

	broadFirst := newMapper(t,
		Rule{Pattern: "xmd_", Dir: "utils"},
		Rule{Pattern: "xmd_log_", Dir: "utils/logging"},
	)
	assert.Equal(t, "src/utils/xmd_log_init.c", broadFirst.Path("xmd_log_init"))
	assert.Equal(t, 0, broadFirst.RuleIndex("xmd_log_init"))
}

func TestRoute_PrefixSemantics(t *testing.T) {
	m := newMapper(t, Rule{Pattern: "ast_(parse|eval)", Dir: "ast"})

	assert.Equal(t, "ast", m.Dir("ast_parse_if"))
	assert.Equal(t, "ast", m.Dir("ast_evaluate"))
	assert.Equal(t, "misc", m.Dir("my_ast_parse"), "patterns anchor at the start")
}

func TestRoute_DefaultBucket(t *testing.T) {
	m := newMapper(t, Rule{Pattern: "token_", Dir: "lexer"})
	r := m.Route("main_loop")

	assert.Equal(t, -1, r.Rule)
	assert.Equal(t, "misc", r.Dir)
	assert.Equal(t, "src/misc/main_loop.c", r.Path)
}

func TestRoute_Deterministic(t *testing.T) {
	rules := []Rule{{Pattern: "a", Dir: "x"}, {Pattern: "ab", Dir: "y"}, {Pattern: "b.*", Dir: "z"}}
	m1 := newMapper(t, rules...)
	m2 := newMapper(t, rules...)
	for _, name := range []string{"abc", "b", "c", "a", "ba"} {
		assert.Equal(t, m1.Route(name), m2.Route(name))
		assert.Equal(t, m1.Route(name), m1.Route(name))
	}
}

func TestOptions(t *testing.T) {
	m, err := New(nil, Options{OutputRoot: "out", Extension: ".cc", DefaultDir: "rest"})
	require.NoError(t, err)
	assert.Equal(t, "out/rest/f.cc", m.Path("f"))
	assert.Equal(t, "out/ast/parser/parser.h", m.ModuleHeaderPath("ast/parser"))
	assert.Equal(t, "out/ast/parser", m.ModuleDir("ast/parser"))

	m, err = New(nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, "misc/f.c", m.Path("f"))
}

func TestNew_Errors(t *testing.T) {
	_, err := New([]Rule{{Pattern: "(", Dir: "x"}}, Options{})
	assert.Error(t, err)

	_, err = New([]Rule{{Pattern: "ok"}}, Options{})
	assert.Error(t, err)
}

func TestShadowed(t *testing.T) {
	m := newMapper(t,
		Rule{Pattern: "xmd_", Dir: "utils"},
		Rule{Pattern: "xmd_log_", Dir: "utils/logging"},
		Rule{Pattern: "token_.*", Dir: "lexer"},
		Rule{Pattern: "token_(new|free)", Dir: "lexer/alloc"},
		Rule{Pattern: ".*", Dir: "all"},
		Rule{Pattern: "zzz", Dir: "never"},
	)
	shadows := m.Shadowed()
	require.Len(t, shadows, 3)
	assert.Equal(t, 1, shadows[0].Rule)
	assert.Equal(t, 0, shadows[0].ShadowBy)
	assert.Equal(t, 3, shadows[1].Rule)
	assert.Equal(t, 2, shadows[1].ShadowBy)
	assert.Equal(t, 5, shadows[2].Rule)
	assert.Equal(t, 4, shadows[2].ShadowBy)

	assert.Empty(t, newMapper(t,
		Rule{Pattern: "xmd_log_", Dir: "utils/logging"},
		Rule{Pattern: "xmd_", Dir: "utils"},
		Rule{Pattern: "tok(en)?_x", Dir: "lexer"},
		Rule{Pattern: "token_y", Dir: "lexer"},
	).Shadowed())
}

func TestRules_ReturnsCopy(t *testing.T) {
	m := newMapper(t, Rule{Pattern: "a", Dir: "x"})
	rules := m.Rules()
	rules[0].Dir = "changed"
	assert.Equal(t, "x", m.Dir("a"))
}
