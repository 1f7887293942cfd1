package cmd

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"

	"tuneplane/pkg/api"
)

var nextWorkerInfo string

var nextCmd = &cobra.Command{
	Use:   "next <experiment-id>",
	Short: "Claim the next candidate of an experiment",
	Long: `Claim the next candidate of an experiment for evaluation.

The candidate moves to the working state and its parameters are printed.
Report the outcome with 'tunectl report' when the evaluation is done.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		req := api.NextCandidateRequest{}
		if nextWorkerInfo != "" {
			if !json.Valid([]byte(nextWorkerInfo)) {
				cmd.Printf("Error: --worker-info must be valid JSON\n")
				return
			}
			req.WorkerInfo = json.RawMessage(nextWorkerInfo)
		}

		cand, err := client.NextCandidate(args[0], req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("%sCandidate %s%s\n", colorBold, cand.ID, colorReset)
		names := make([]string, 0, len(cand.Params))
		for name := range cand.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("  %s = %v\n", name, cand.Params[name])
		}
	},
}

func init() {
	nextCmd.Flags().StringVar(&nextWorkerInfo, "worker-info", "", "opaque JSON stored on the claimed candidate")
	rootCmd.AddCommand(nextCmd)
}
