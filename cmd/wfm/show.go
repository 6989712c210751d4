package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	showLocations bool
	showFlavors   bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cluster locations or flavors",
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVarP(&showLocations, "locations", "l", false, "List the locations services may be placed on")
	showCmd.Flags().BoolVarP(&showFlavors, "flavors", "f", false, "List the service flavors the cluster offers")
}

func runShow(cmd *cobra.Command, args []string) error {
	path := "/cluster/locations"
	if showFlavors && !showLocations {
		path = "/cluster/flavors"
	}

	var items []string
	if err := getJSON(path, &items); err != nil {
		return err
	}
	for _, item := range items {
		fmt.Println(item)
	}
	return nil
}
