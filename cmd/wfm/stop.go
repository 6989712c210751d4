package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	stopSessionName string
	stopSync        bool
	stopForce       bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a session and tear down its services",
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVarP(&stopSessionName, "session", "s", "", "Session name")
	stopCmd.Flags().BoolVar(&stopSync, "syncstop", false, "Wait for every service to be torn down")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Cancel running steps before stopping")
	stopCmd.MarkFlagRequired("session")
}

func runStop(cmd *cobra.Command, args []string) error {
	path := "/session/stop"
	if stopForce {
		path = "/session/forcedstop"
	}

	err := postJSON(path, map[string]interface{}{
		"sync_stop":    stopSync,
		"session_name": stopSessionName,
	}, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Session %s stop requested\n", stopSessionName)
	return nil
}
