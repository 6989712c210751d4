package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpcwfm/wfm/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wfm %s\n", common.GetFullVersion())
	},
}
