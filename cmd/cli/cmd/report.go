package cmd

import (
	"github.com/spf13/cobra"

	"tuneplane/pkg/api"
)

var (
	reportStatus string
	reportResult float64
	reportCost   float64
)

var reportCmd = &cobra.Command{
	Use:   "report <experiment-id> <candidate-id>",
	Short: "Report the outcome of a claimed candidate",
	Long: `Report the outcome of a candidate claimed with 'tunectl next'.

Status is one of finished, failed or paused. A finished report requires
--result; a paused report hands the candidate back to the pending pool.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClientFromConfig()

		req := api.ReportRequest{Status: reportStatus}
		if cmd.Flags().Changed("result") {
			req.Result = &reportResult
		}
		if cmd.Flags().Changed("cost") {
			req.Cost = &reportCost
		}
		if req.Status == api.ReportStatusFinished && req.Result == nil {
			cmd.Printf("Error: --result is required for a finished report\n")
			return
		}

		cand, err := client.ReportResult(args[0], args[1], req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("%sCandidate %s is now %s%s\n", colorBold, cand.ID, cand.State, colorReset)
		if cand.Result != nil {
			cmd.Printf("%sResult:%s %g\n", colorDim, colorReset, *cand.Result)
		}
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportStatus, "status", "s", api.ReportStatusFinished, "report status (finished, failed or paused)")
	reportCmd.Flags().Float64VarP(&reportResult, "result", "r", 0, "objective value of the evaluation")
	reportCmd.Flags().Float64Var(&reportCost, "cost", 0, "cost of the evaluation in seconds")
	rootCmd.AddCommand(reportCmd)
}
