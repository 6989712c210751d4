package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updateJobID    int64
	updateProgress string
)

// updateCmd is hidden: it is called by running steps, not by users
var updateCmd = &cobra.Command{
	Use:    "update",
	Short:  "Report step progress from inside a batch job",
	Hidden: true,
	RunE:   runUpdate,
}

func init() {
	updateCmd.Flags().Int64VarP(&updateJobID, "jobid", "j", 0, "Batch job id of the reporting step")
	updateCmd.Flags().StringVarP(&updateProgress, "progress", "p", "", "Progress indication")
	updateCmd.MarkFlagRequired("jobid")
	updateCmd.MarkFlagRequired("progress")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	var instanceName string
	err := postJSON("/step/progress/job", map[string]interface{}{
		"jobid":    updateJobID,
		"progress": updateProgress,
	}, &instanceName)
	if err != nil {
		return err
	}

	fmt.Println(instanceName)
	return nil
}
