// Command sflclient loads a display-file page and plays a script of keys
// and field edits against it, paging subfiles in place like a browser.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sflclient",
		Short:        "Headless subfile client for 5250Web display files",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newChaosCmd())
	return root
}
