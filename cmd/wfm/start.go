package main

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"
)

var (
	startWorkflowFile string
	startSessionName  string
	startSync         bool
	startDefs         []string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a session from a workflow description",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startWorkflowFile, "workflow", "w", "", "Workflow description file")
	startCmd.Flags().StringVarP(&startSessionName, "session", "s", "", "Session name")
	startCmd.Flags().BoolVar(&startSync, "syncstart", false, "Wait for every service to be provisioned")
	startCmd.Flags().StringArrayVarP(&startDefs, "define", "d", nil, "Variable definition var=value (repeatable)")
	startCmd.MarkFlagRequired("workflow")
	startCmd.MarkFlagRequired("session")
}

func runStart(cmd *cobra.Command, args []string) error {
	description, err := os.ReadFile(startWorkflowFile)
	if err != nil {
		return fmt.Errorf("cannot read workflow description %s: %w", startWorkflowFile, err)
	}

	replacements, err := parseReplacements(startDefs)
	if err != nil {
		return err
	}

	current, err := user.Current()
	if err != nil {
		return fmt.Errorf("cannot determine current user: %w", err)
	}

	var sessions []map[string]interface{}
	err = postJSON("/session/startup", map[string]interface{}{
		"workflow_description_file": startWorkflowFile,
		"workflow_description":      string(description),
		"sync_start":                startSync,
		"session_name":              startSessionName,
		"user_name":                 current.Username,
		"replacements":              replacements,
	}, &sessions)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		fmt.Printf("Session %v started (workflow %v, status %v)\n",
			session["name"], session["workflow_name"], session["status"])
	}
	return nil
}
