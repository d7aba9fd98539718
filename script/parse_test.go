package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/scopeheap/errors"
)

func TestParse_Steps(t *testing.T) {
	src := `
scope "outer" {
  create "a" {
    destructor = true
    value      = "payload"
  }
  transfer "a" {
    receiver = "release"
  }
}
expect {
  destroyed = ["a"]
  live      = 0
  pending   = 0
}
`
	s, err := Parse([]byte(src), "steps.hcl")
	require.NoError(t, err)
	require.Len(t, s.Steps, 2)

	outer := s.Steps[0]
	assert.Equal(t, OpScope, outer.Op)
	assert.Equal(t, "outer", outer.Name)
	require.Len(t, outer.Steps, 2)

	create := outer.Steps[0]
	assert.Equal(t, OpCreate, create.Op)
	assert.True(t, create.Destructor)
	assert.Equal(t, "payload", create.Value)
	assert.Equal(t, "steps.hcl", create.Range.Filename)
	assert.Equal(t, 3, create.Range.Start.Line)

	assert.Equal(t, ReceiverRelease, outer.Steps[1].Receiver)

	exp := s.Steps[1].Expect
	require.NotNil(t, exp)
	assert.Equal(t, []string{"a"}, exp.Destroyed)
	require.NotNil(t, exp.Live)
	assert.Equal(t, 0, *exp.Live)
	require.NotNil(t, exp.Pending)
	assert.Equal(t, 0, *exp.Pending)
}

func TestParse_Defaults(t *testing.T) {
	s, err := Parse([]byte(`
create "x" {}
transfer "x" {}
expect {}
`), "defaults.hcl")
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)
	assert.False(t, s.Steps[0].Destructor)
	assert.Equal(t, ReceiverAdopt, s.Steps[1].Receiver)
	assert.Nil(t, s.Steps[2].Expect)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `scope "a" {`, "parse"},
		{"unknown block", `delete "a" {}`, `unknown block "delete"`},
		{"missing label", `create {}`, "takes 1 label"},
		{"label on expect", `expect "x" {}`, "takes 0 label"},
		{"unknown attribute", `create "a" { size = 4 }`, `unknown attribute "size"`},
		{"wrong type", `create "a" { destructor = "yes please" }`, "destructor"},
		{"bad receiver", `transfer "a" { receiver = "outer" }`, "receiver must be"},
		{"nested in create", "create \"a\" {\n  create \"b\" {}\n}", "cannot contain blocks"},
		{"top-level attribute", `live = 1`, "top level"},
		{"null", `create "a" { value = null }`, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.hcl")
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`create "x" {}`), 0o600))

	s, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Filename)
	assert.Len(t, s.Steps, 1)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBuiltin(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "leak"}, BuiltinNames())
	for _, name := range BuiltinNames() {
		_, err := Builtin(name)
		assert.NoError(t, err, name)
	}

	_, err := Builtin("nope")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
