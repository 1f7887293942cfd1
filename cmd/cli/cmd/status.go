package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"tuneplane/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [experiment_id]",
	Short: "Show an experiment's candidates and its best result",
	Long:  `Retrieve the candidate buckets (pending, working, finished, failed) for an experiment and the best finished candidate so far.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		experimentID := args[0]

		client := newClientFromConfig()
		result, err := client.AllCandidates(experimentID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		printStatus(cmd, experimentID, result)
	},
}

func printStatus(cmd *cobra.Command, experimentID string, all *api.AllCandidatesResponse) {
	cmd.Printf("%sExperiment %s%s\n", colorBold, experimentID, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sPending:%s   %d\n", colorDim, colorReset, len(all.Pending))
	cmd.Printf("%sWorking:%s   %s%d%s\n", colorDim, colorReset, colorYellow, len(all.Working), colorReset)
	cmd.Printf("%sFinished:%s  %s%d%s\n", colorDim, colorReset, colorGreen, len(all.Finished), colorReset)
	cmd.Printf("%sFailed:%s    %s%d%s\n", colorDim, colorReset, colorRed, len(all.Failed), colorReset)

	if all.Best == nil {
		cmd.Println("\nNo finished candidate yet.")
		return
	}

	best := all.Best
	cmd.Printf("\n%s✓ Best candidate%s\n", colorGreen, colorReset)
	cmd.Printf("%sID:%s        %s\n", colorDim, colorReset, best.ID)
	if best.Result != nil {
		cmd.Printf("%sResult:%s    %s%g%s\n", colorDim, colorReset, colorBold, *best.Result, colorReset)
	}
	if best.Cost != nil {
		cmd.Printf("%sCost:%s      %s\n", colorDim, colorReset, formatCost(*best.Cost))
	}
	cmd.Printf("%sEvaluated:%s %s\n", colorDim, colorReset, formatTimeWithRelative(best.LastUpdateAt))

	names := make([]string, 0, len(best.Params))
	for name := range best.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Printf("%sParams:%s\n", colorDim, colorReset)
	for _, name := range names {
		cmd.Printf("  %s = %v\n", name, best.Params[name])
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

func formatCost(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
