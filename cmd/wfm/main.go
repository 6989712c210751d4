package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is where the client commands find the WFM engine
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "wfm",
	Short: "Workflow manager for ephemeral storage services on HPC clusters",
	Long: `wfm provisions ephemeral storage services (burst buffers, NFS shares,
DASI data stores) around batch computations and manages their lifecycle
as sessions, services and steps.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "WFM server base URL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseReplacements turns repeated -d var=val flags into a map
func parseReplacements(defs []string) (map[string]string, error) {
	replacements := make(map[string]string, len(defs))
	for _, def := range defs {
		idx := -1
		for i, c := range def {
			if c == '=' {
				idx = i
				break
			}
		}
		if idx <= 0 {
			return nil, fmt.Errorf("invalid variable definition %q, expected var=value", def)
		}
		replacements[def[:idx]] = def[idx+1:]
	}
	return replacements, nil
}
