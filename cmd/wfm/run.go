package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runSessionName string
	runStepName    string
	runDefs        []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch a step instance within a session",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runSessionName, "session", "s", "", "Session name")
	runCmd.Flags().StringVarP(&runStepName, "step", "t", "", "Step name")
	runCmd.Flags().StringArrayVarP(&runDefs, "define", "d", nil, "Variable definition var=value (repeatable)")
	runCmd.MarkFlagRequired("session")
	runCmd.MarkFlagRequired("step")
}

func runRun(cmd *cobra.Command, args []string) error {
	replacements, err := parseReplacements(runDefs)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	err = postJSON("/step/startup", map[string]interface{}{
		"session_name": runSessionName,
		"step_name":    runStepName,
		"replacements": replacements,
	}, &result)
	if err != nil {
		return err
	}

	fmt.Printf("Step instance %v started\n", result["instance_name"])
	return nil
}
