package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/internal/codec"
	"github.com/inkwell-db/inkwell/internal/crud"
	"github.com/inkwell-db/inkwell/internal/idgen"
	"github.com/inkwell-db/inkwell/internal/query"
)

type fakeOperator struct {
	name  string
	types []string
}

func (f *fakeOperator) Name() string    { return f.name }
func (f *fakeOperator) Types() []string { return f.types }
func (f *fakeOperator) Evaluate(fieldValue any, present bool, operand any) bool {
	return present
}

func newTestHost() *Host {
	return NewHost(query.NewOperatorRegistry(), idgen.NewRegistry(), &crud.GlobalHooks{})
}

func TestHost_InstallValidPlugin(t *testing.T) {
	h := newTestHost()
	initialized := false

	p := &Plugin{
		Name:      "geo",
		Operators: []query.Operator{&fakeOperator{name: "$near", types: []string{"object"}}},
		Initialize: func() error {
			initialized = true
			return nil
		},
	}

	require.NoError(t, h.Install(p, nil))
	assert.True(t, initialized)

	_, ok := h.Operators.Lookup("$near")
	assert.True(t, ok)
}

func TestHost_RejectsEmptyName(t *testing.T) {
	h := newTestHost()
	err := h.Install(&Plugin{}, nil)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ReasonInvalidPluginShape, pe.Reason)
}

func TestHost_RejectsBuiltinOperatorConflict(t *testing.T) {
	h := newTestHost()
	err := h.Install(&Plugin{
		Name:      "bad",
		Operators: []query.Operator{&fakeOperator{name: "$eq"}},
	}, nil)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ReasonOperatorConflict, pe.Reason)
}

func TestHost_RejectsDuplicateOperatorAcrossPlugins(t *testing.T) {
	h := newTestHost()
	require.NoError(t, h.Install(&Plugin{
		Name:      "first",
		Operators: []query.Operator{&fakeOperator{name: "$near"}},
	}, nil))

	err := h.Install(&Plugin{
		Name:      "second",
		Operators: []query.Operator{&fakeOperator{name: "$near"}},
	}, nil)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ReasonOperatorConflict, pe.Reason)
}

func TestHost_RejectsMissingDependency(t *testing.T) {
	h := newTestHost()
	err := h.Install(&Plugin{Name: "child", Dependencies: []string{"nonexistent"}}, nil)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ReasonMissingDependencies, pe.Reason)
}

func TestHost_DependencyResolvesWhenAlreadyInstalled(t *testing.T) {
	h := newTestHost()
	require.NoError(t, h.Install(&Plugin{Name: "base"}, nil))
	require.NoError(t, h.Install(&Plugin{Name: "child", Dependencies: []string{"base"}}, nil))
}

func TestHost_InitializeFailureSurfacesAsPluginError(t *testing.T) {
	h := newTestHost()
	sentinel := errors.New("boom")
	err := h.Install(&Plugin{
		Name:       "broken",
		Initialize: func() error { return sentinel },
	}, nil)
	require.Error(t, err)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ReasonInitializeFailed, pe.Reason)
	assert.ErrorIs(t, pe.Unwrap(), sentinel)
}

func TestHost_InstallsCodecIntoRegistry(t *testing.T) {
	h := newTestHost()
	reg := codec.NewRegistry(nil)
	require.NoError(t, h.Install(&Plugin{Name: "fmt", Codecs: []codec.Codec{codec.NewJSON()}}, reg))
	_, ok := reg.Lookup("json")
	assert.True(t, ok)
}

func TestHost_ShutdownRunsInReverseOrder(t *testing.T) {
	h := newTestHost()
	var order []string
	require.NoError(t, h.Install(&Plugin{Name: "a", Shutdown: func() error { order = append(order, "a"); return nil }}, nil))
	require.NoError(t, h.Install(&Plugin{Name: "b", Shutdown: func() error { order = append(order, "b"); return nil }}, nil))

	errs := h.Shutdown()
	assert.Empty(t, errs)
	assert.Equal(t, []string{"b", "a"}, order)
}
