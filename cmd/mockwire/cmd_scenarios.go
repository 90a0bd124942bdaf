package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mockwire/mockwire/pkg/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List scenarios registered in this build",
	Run: func(cmd *cobra.Command, args []string) {
		names := scenario.RegisteredNames()
		if len(names) == 0 {
			fmt.Println("no scenarios registered")
			return
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}
