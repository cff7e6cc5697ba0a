package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/genpipe/errors"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry("0.4.2")

	require.NoError(t, reg.Register(emitTarget("ts")))
	assert.True(t, reg.Has("ts"))
	assert.False(t, reg.Has("md"))

	err := reg.Register(emitTarget("ts"))
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "already registered")

	err = reg.Register(Target{})
	assert.True(t, errors.IsConfigurationError(err))
}

func TestRegistry_VersionConstraints(t *testing.T) {
	tests := []struct {
		name     string
		engine   string
		requires string
		wantErr  bool
	}{
		{"no constraint", "0.4.2", "", false},
		{"satisfied", "0.4.2", ">= 0.4.0", false},
		{"caret", "1.3.0", "^1.2", false},
		{"too old", "0.3.9", ">= 0.4.0", true},
		{"invalid constraint", "0.4.2", "not a constraint", true},
		{"dev build skips checks", "dev", ">= 99.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(tt.engine)
			target := emitTarget("x")
			target.Requires = tt.requires

			err := reg.Register(target)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsConfigurationError(err))
				assert.False(t, reg.Has("x"))
				return
			}
			require.NoError(t, err)
			assert.True(t, reg.Has("x"))
		})
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.MustRegister(emitTarget("a"))
	assert.Panics(t, func() { reg.MustRegister(emitTarget("a")) })
}

func TestRegistry_NamesAndSelect(t *testing.T) {
	reg := NewRegistry("1.0.0")
	for _, name := range []string{"typescript", "markdown", "json"} {
		reg.MustRegister(emitTarget(name))
	}

	assert.Equal(t, []string{"json", "markdown", "typescript"}, reg.Names())

	all, err := reg.Select()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "json", all[0].Name)

	picked, err := reg.Select("typescript", "json")
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "typescript", picked[0].Name)
	assert.Equal(t, "json", picked[1].Name)

	_, err = reg.Select("typescript", "python")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), `"python"`)
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.MustRegister(Target{Name: "a", Description: "first"})

	got, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", got.Description)

	_, ok = reg.Get("b")
	assert.False(t, ok)
}
