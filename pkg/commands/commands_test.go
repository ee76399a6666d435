package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/batchops/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	lggr := logger.Nop()
	cmds := New(lggr)

	require.NotNil(t, cmds)
	assert.Equal(t, lggr, cmds.lggr)
}

func TestCommands_Ops(t *testing.T) {
	t.Parallel()

	cmds := New(logger.Nop()).Ops()
	require.Len(t, cmds, 3)

	uses := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		uses = append(uses, cmd.Use)
	}
	assert.Equal(t, []string{"run", "validate", "config"}, uses)

	// Every command reading operations requires the file flag.
	for _, cmd := range cmds[:2] {
		f := cmd.Flags().Lookup("file")
		require.NotNil(t, f, cmd.Use)
		assert.Equal(t, "f", f.Shorthand)
	}
}
