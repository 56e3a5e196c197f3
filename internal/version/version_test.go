package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestFull checks that the full version string carries all build metadata fields.
func TestFull(t *testing.T) {
	t.Parallel()

	full := Full()
	require.Contains(t, full, "version: "+Short())
	require.Contains(t, full, "commit:")
	require.Contains(t, full, "built at:")
}

// TestAttachCobraVersionCommand ensures the subcommand prints the full version string.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "stand-test"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Equal(t, Full(), strings.TrimSpace(out.String()))
}
