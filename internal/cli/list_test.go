package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgekit/surgekit/internal/scenario"
)

func TestListCmd(t *testing.T) {
	var out bytes.Buffer
	listCmd.SetOut(&out)
	require.NoError(t, listCmd.RunE(listCmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(scenario.All())+1)
	assert.Contains(t, lines[0], "ID")
	assert.Contains(t, lines[0], "MODE")

	text := out.String()
	for _, def := range scenario.All() {
		assert.Contains(t, text, def.ID)
	}
	assert.Contains(t, text, "streaming")
	assert.Contains(t, text, "closed-loop")
}
