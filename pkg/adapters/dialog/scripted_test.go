package dialog_test

import (
	"testing"

	"github.com/aretw0/studio/pkg/adapters/dialog"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted_PlaysOutcomesInOrder(t *testing.T) {
	d := dialog.NewScripted(dialog.Ready("/tmp/stage.usda", 2), dialog.Canceled(0))

	first, err := d.RequestOpenFile("Open Stage", []string{"usda"})
	require.NoError(t, err)

	_, status := d.PollOpenFile(first)
	assert.Equal(t, ports.PollNotReady, status)
	_, status = d.PollOpenFile(first)
	assert.Equal(t, ports.PollNotReady, status)
	path, status := d.PollOpenFile(first)
	assert.Equal(t, ports.PollReady, status)
	assert.Equal(t, "/tmp/stage.usda", path)

	_, status = d.PollOpenFile(first)
	assert.Equal(t, ports.PollExpired, status, "a resolved request expires")

	second, err := d.RequestOpenFile("Open Texture", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	_, status = d.PollOpenFile(second)
	assert.Equal(t, ports.PollCanceled, status)

	_, err = d.RequestOpenFile("Again", nil)
	assert.ErrorIs(t, err, dialog.ErrScriptExhausted)
	assert.Equal(t, []string{"Open Stage", "Open Texture"}, d.Requests())
}

func TestScripted_UnknownRequestExpires(t *testing.T) {
	d := dialog.NewScripted()
	_, status := d.PollOpenFile(42)
	assert.Equal(t, ports.PollExpired, status)
}
