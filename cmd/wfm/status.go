package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	statusAll         bool
	statusSession     string
	statusSteps       bool
	statusStep        string
	statusAllServices bool
	statusService     string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sessions, steps or services",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusAll, "all", "a", false, "List all sessions with details")
	statusCmd.Flags().StringVarP(&statusSession, "session", "s", "", "Show one session")
	statusCmd.Flags().BoolVarP(&statusSteps, "steps", "T", false, "With -s, list the session's step instances")
	statusCmd.Flags().StringVarP(&statusStep, "step", "t", "", "With -s, list the instances of one step")
	statusCmd.Flags().BoolVarP(&statusAllServices, "allservices", "A", false, "List all services")
	statusCmd.Flags().StringVarP(&statusService, "service", "S", "", "Show one service")
}

func runStatus(cmd *cobra.Command, args []string) error {
	switch {
	case statusAllServices:
		return listServices("/service/all")
	case statusService != "":
		return listServices("/service/" + url.PathEscape(statusService))
	case statusSession != "" && (statusSteps || statusStep != ""):
		return listSteps()
	case statusSession != "":
		return listSessions("/session/" + url.PathEscape(statusSession))
	case statusAll:
		return listSessionsDetailed()
	default:
		return listSessions("/session/all")
	}
}

func listSessions(path string) error {
	var sessions []map[string]interface{}
	if err := getJSON(path, &sessions); err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%-24v %-24v %-12v %v\n", s["name"], s["workflow_name"], s["status"], s["user"])
	}
	return nil
}

func listSessionsDetailed() error {
	var sessions []map[string]interface{}
	if err := getJSON("/session/alldetailed", &sessions); err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("%-24v %-24v %-12v %v\n", s["name"], s["workflow_name"], s["status"], s["user"])
		if services, ok := s["services"].([]interface{}); ok {
			for _, entry := range services {
				if svc, ok := entry.(map[string]interface{}); ok {
					fmt.Printf("  service %-32v %-6v %v\n", svc["name"], svc["kind"], svc["status"])
				}
			}
		}
		if steps, ok := s["step_descriptions"].([]interface{}); ok {
			for _, entry := range steps {
				if step, ok := entry.(map[string]interface{}); ok {
					fmt.Printf("  step    %-32v %v\n", step["name"], step["command"])
				}
			}
		}
	}
	return nil
}

func listSteps() error {
	path := "/step/status/" + url.PathEscape(statusSession)
	if statusStep != "" {
		path += "/" + url.PathEscape(statusStep)
	}

	var views []map[string]interface{}
	if err := getJSON(path, &views); err != nil {
		return err
	}
	for _, v := range views {
		fmt.Printf("%-32v %-16v %-12v %8v  %v\n",
			v["instance_name"], v["step_name"], v["combined_status"], v["jobid"], v["progress"])
	}
	return nil
}

func listServices(path string) error {
	var services []map[string]interface{}
	if err := getJSON(path, &services); err != nil {
		return err
	}
	for _, s := range services {
		fmt.Printf("%-36v %-6v %-12v %v\n", s["name"], s["kind"], s["status"], s["mountpoint"])
	}
	return nil
}
