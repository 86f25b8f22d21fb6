package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genesis/internal/domain"
	"genesis/internal/usecase"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"validation failed", fmt.Errorf("run: %w", domain.ErrValidationFailed), 1},
		{"missing input", fmt.Errorf("%w: a.c", domain.ErrMissingInput), 1},
		{"declined", domain.ErrAborted, 1},
		{"parse error", fmt.Errorf("x.c:3: %w", domain.ErrParse), 2},
		{"other", errors.New("boom"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestConfirmer(t *testing.T) {
	var out bytes.Buffer
	confirm := confirmer(strings.NewReader("PROCEED\nno\n"), &out, false)

	ok, err := confirm("Write?", usecase.ProceedToken)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = confirm("Remove?", usecase.RemoveToken)
	require.NoError(t, err)
	assert.False(t, ok)

	// input exhausted
	ok, err = confirm("Again?", usecase.RemoveToken)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Contains(t, out.String(), "Type PROCEED to continue: ")
	assert.Contains(t, out.String(), "Type YES to continue: ")
}

func TestConfirmer_Yes(t *testing.T) {
	var out bytes.Buffer
	confirm := confirmer(strings.NewReader(""), &out, true)
	ok, err := confirm("Write?", usecase.ProceedToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotContains(t, out.String(), "Type")
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		500 * time.Millisecond:      "<1s",
		42 * time.Second:            "42s",
		125 * time.Second:           "2m5s",
		3*time.Hour + 7*time.Minute: "3h7m",
	}
	for d, want := range tests {
		assert.Equal(t, want, formatDuration(d))
	}
}

func TestPrintPlan(t *testing.T) {
	plan := &domain.Plan{
		Root:    "/work",
		Sources: []string{"a.c"},
		Units: []domain.FunctionUnit{
			{Name: "add_one"},
			{Name: "helper", Static: true},
		},
		Files: []domain.OutputFile{
			{Path: "src/misc/add_one.c", Primary: "add_one", Units: []string{"add_one", "helper"}},
		},
		Headers:   []domain.HeaderFile{{Path: "src/misc/misc.h"}},
		Groups:    []domain.StaticGroup{{Host: "add_one", Tier: "direct_caller", Helpers: []string{"helper"}}},
		BuildList: domain.OutputFile{Path: "src/CMakeLists_modular.txt"},
		Diagnostics: []domain.Diagnostic{
			{Kind: domain.DiagResidualCode, File: "a.c", Message: "2 lines"},
		},
	}

	var out bytes.Buffer
	printPlan(&out, plan, 5)
	got := out.String()

	assert.Contains(t, got, "Functions:       2 (1 static)")
	assert.Contains(t, got, "  src/misc/\n")
	assert.Contains(t, got, "add_one")
	assert.Contains(t, got, "-> src/misc/add_one.c")
	assert.Contains(t, got, "add_one (direct_caller): [helper]")
	assert.Contains(t, got, "warning [residual_code] a.c: 2 lines")
}

func TestCleanup_FlushesTelemetry(t *testing.T) {
	called := false
	shutdown = func(context.Context) error {
		called = true
		return nil
	}
	cleanup()
	assert.True(t, called)
	assert.Nil(t, shutdown)

	// a second call is harmless
	cleanup()
}
