package tools

import (
	"github.com/spf13/cobra"
)

// ToolsCmd groups miscellaneous helper commands that don't fit under the
// main check invocation.
var ToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "elfutils miscellaneous tools",
}

func init() {
}
