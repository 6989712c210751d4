package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	accessSessionName string
	accessService     string
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Print the command for an interactive allocation using a service",
	RunE:  runAccess,
}

func init() {
	accessCmd.Flags().StringVarP(&accessSessionName, "session", "s", "", "Session name")
	accessCmd.Flags().StringVarP(&accessService, "service", "S", "", "Service to use")
	accessCmd.MarkFlagRequired("session")
	accessCmd.MarkFlagRequired("service")
}

func runAccess(cmd *cobra.Command, args []string) error {
	var command string
	err := postJSON("/session/access", map[string]interface{}{
		"session_name": accessSessionName,
		"services":     []string{accessService},
	}, &command)
	if err != nil {
		return err
	}

	fmt.Println(command)
	return nil
}
