package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all experiments",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		result, err := client.ListExperiments()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if len(result.ExperimentIDs) == 0 {
			cmd.Println("No experiments yet.")
			return
		}
		for _, id := range result.ExperimentIDs {
			cmd.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
