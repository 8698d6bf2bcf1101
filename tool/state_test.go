package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
)

func TestStateTool_SetGetDelete(t *testing.T) {
	st := NewStateTool()
	tc := newToolContext("fc-state")

	res, err := st.Call(tc, map[string]any{"operation": "set_state", "key": "foo", "value": "bar"})
	require.NoError(t, err)
	assert.Equal(t, "bar", res.(map[string]any)["value"])

	res, err = st.Call(tc, map[string]any{"operation": "get_state", "key": "foo"})
	require.NoError(t, err)
	assert.True(t, res.(map[string]any)["exists"].(bool))

	res, err = st.Call(tc, map[string]any{"operation": "list_state"})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, res.(map[string]any)["keys"])

	_, err = st.Call(tc, map[string]any{"operation": "delete_state", "key": "foo"})
	require.NoError(t, err)

	_, ok := tc.GetState("foo")
	assert.False(t, ok)
}

func TestStateTool_Validation(t *testing.T) {
	st := NewStateTool()

	_, err := st.Call(newToolContext("fc"), map[string]any{"operation": "explode"})
	assert.ErrorIs(t, err, core.ErrToolArgument)

	_, err = st.Call(newToolContext("fc"), map[string]any{"operation": "get_state"})
	assert.ErrorIs(t, err, core.ErrToolArgument)
}
