package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/framemark/errors"
)

func TestDefaults(t *testing.T) {
	v := New(Defaults()).Values()
	assert.True(t, v.CopyBox)
	assert.True(t, v.CopyLocation)
	assert.Equal(t, ModeMixed, v.Mode)
	assert.Equal(t, ToolPointer, v.Tool)
	assert.True(t, v.CopiesForward())
}

func TestLocationModeCouplingIsOneWay(t *testing.T) {
	s := New(Defaults())
	require.NoError(t, s.SetTool(ToolBox))
	s.SetCopyLocation(false)

	require.NoError(t, s.SetMode(ModeLocation))
	v := s.Values()
	assert.False(t, v.CopyBox)
	assert.True(t, v.CopyLocation)
	assert.Equal(t, ToolLocation, v.Tool)

	require.NoError(t, s.SetMode(ModeMixed))
	v = s.Values()
	assert.Equal(t, ModeMixed, v.Mode)
	assert.False(t, v.CopyBox, "leaving location mode restores nothing")
	assert.Equal(t, ToolLocation, v.Tool)
}

func TestNewAppliesLocationCoupling(t *testing.T) {
	v := New(Values{CopyBox: true, Mode: ModeLocation, Tool: ToolBox}).Values()
	assert.Equal(t, ModeLocation, v.Mode)
	assert.False(t, v.CopyBox)
	assert.True(t, v.CopyLocation)
	assert.Equal(t, ToolLocation, v.Tool)
}

func TestNewFallsBackOnUnknownValues(t *testing.T) {
	v := New(Values{Mode: "freehand", Tool: "lasso"}).Values()
	assert.Equal(t, ModeMixed, v.Mode)
	assert.Equal(t, ToolPointer, v.Tool)
}

func TestRejectsUnknownValues(t *testing.T) {
	s := New(Defaults())
	assert.True(t, errors.IsInvalidRequestError(s.SetMode("freehand")))
	assert.True(t, errors.IsInvalidRequestError(s.SetTool("lasso")))
	assert.Equal(t, Defaults(), s.Values())
}

func TestCopiesForward(t *testing.T) {
	assert.False(t, Values{Mode: ModeMixed}.CopiesForward())
	assert.True(t, Values{Mode: ModeLocation}.CopiesForward())
	assert.True(t, Values{CopyBox: true, Mode: ModeMixed}.CopiesForward())
}
