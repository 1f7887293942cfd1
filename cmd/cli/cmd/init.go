package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tuneplane/pkg/api"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new optimization experiment",
	Long: `Create a new experiment with a parameter space and an optimizer.

Parameters are declared with repeated --param flags:
  numeric range:  --param "x=-5..10"
  nominal values: --param "kernel=rbf,linear,poly"

Example:
  tunectl init --name "svm-tuning" --optimizer SequentialModelBased \
    --param "c=0.001..100" --param "gamma=0.0001..1" --param "kernel=rbf,linear" \
    --minimize --seed 42`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		optimizer, _ := flags.GetString("optimizer")
		params, _ := flags.GetStringArray("param")
		minimize, _ := flags.GetBool("minimize")
		maximize, _ := flags.GetBool("maximize")
		experimentID, _ := flags.GetString("id")

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}
		if len(params) == 0 {
			cmd.Println("Error: at least one --param is required")
			return
		}
		if minimize && maximize {
			cmd.Println("Error: --minimize and --maximize are mutually exclusive")
			return
		}

		paramDefs := make(map[string]api.ParamDef, len(params))
		for _, p := range params {
			paramName, def, err := parseParamFlag(p)
			if err != nil {
				cmd.Printf("Error: invalid --param %q: %v\n", p, err)
				return
			}
			paramDefs[paramName] = def
		}

		req := api.InitExperimentRequest{
			Name:         name,
			Optimizer:    optimizer,
			ParamDefs:    paramDefs,
			Minimization: !maximize,
			ExperimentID: experimentID,
		}
		if opt := optimizerParamsFromFlags(cmd); opt != nil {
			req.OptimizerParams = opt
		}

		client := newClientFromConfig()
		result, err := client.InitExperiment(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Experiment created!\nID: %s\nName: %s\nOptimizer: %s\n", result.ExperimentID, name, optimizer)
	},
}

// parseParamFlag parses one --param value. "x=-5..10" declares a
// numeric range, "kernel=rbf,linear" a nominal set.
func parseParamFlag(s string) (string, api.ParamDef, error) {
	name, spec, ok := strings.Cut(s, "=")
	if !ok || name == "" || spec == "" {
		return "", api.ParamDef{}, fmt.Errorf("want name=spec")
	}

	if lowStr, highStr, isRange := strings.Cut(spec, ".."); isRange {
		low, err := strconv.ParseFloat(lowStr, 64)
		if err != nil {
			return "", api.ParamDef{}, fmt.Errorf("bad lower bound %q", lowStr)
		}
		high, err := strconv.ParseFloat(highStr, 64)
		if err != nil {
			return "", api.ParamDef{}, fmt.Errorf("bad upper bound %q", highStr)
		}
		return name, api.ParamDef{
			Type:       api.ParamDefTypeMinMaxNumeric,
			LowerBound: &low,
			UpperBound: &high,
		}, nil
	}

	values := strings.Split(spec, ",")
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
		if values[i] == "" {
			return "", api.ParamDef{}, fmt.Errorf("empty nominal value")
		}
	}
	return name, api.ParamDef{
		Type:   api.ParamDefTypeNominal,
		Values: values,
	}, nil
}

// optimizerParamsFromFlags returns nil when no tuning flag was set so
// the controller applies its defaults.
func optimizerParamsFromFlags(cmd *cobra.Command) *api.OptimizerParams {
	flags := cmd.Flags()
	opt := &api.OptimizerParams{}
	set := false

	if flags.Changed("seed") {
		seed, _ := flags.GetInt64("seed")
		opt.Seed = &seed
		set = true
	}
	if flags.Changed("warmup") {
		warmup, _ := flags.GetInt("warmup")
		opt.WarmupSamples = &warmup
		set = true
	}
	if flags.Changed("acquisition") {
		opt.Acquisition, _ = flags.GetString("acquisition")
		set = true
	}
	if flags.Changed("treat-failed") {
		opt.TreatFailed, _ = flags.GetString("treat-failed")
		set = true
	}

	if !set {
		return nil
	}
	return opt
}

func init() {
	flags := initCmd.Flags()
	flags.StringP("name", "n", "", "Name of the experiment (required)")
	flags.StringP("optimizer", "o", api.OptimizerRandomSearch, "Optimizer: RandomSearch or SequentialModelBased")
	flags.StringArrayP("param", "p", []string{}, "Parameter definition, repeatable (required)")
	flags.Bool("minimize", false, "Minimize the objective (default)")
	flags.Bool("maximize", false, "Maximize the objective")
	flags.String("id", "", "Explicit experiment id (optional)")
	flags.Int64("seed", 0, "Optimizer random seed")
	flags.Int("warmup", 0, "Random samples before the model kicks in")
	flags.String("acquisition", "", "Acquisition function: ucb, ei or pi")
	flags.String("treat-failed", "", "Failed candidate policy: ignore, fixed_value or worst_mult")

	rootCmd.AddCommand(initCmd)
}
