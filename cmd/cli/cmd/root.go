package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tunectl",
	Short: "Tunectl is a command line tool for interacting with the tuneplane optimizer service",
	Long: `tunectl is the command-line interface for the tuneplane hyperparameter
optimization service.

Tuneplane coordinates optimization experiments: clients define a parameter
space and an optimizer, workers pull candidate configurations, evaluate the
objective and report results back. The controller keeps the candidate
lifecycle and proposes new points.

Common workflows:

  Create an experiment:
    tunectl init --name "svm-tuning" --optimizer SequentialModelBased \
      --param "c=0.001..100" --param "kernel=rbf,linear,poly" --minimize

  List experiments:
    tunectl list

  Inspect progress and the best candidate:
    tunectl status <experiment-id>

  Evaluate a candidate by hand:
    tunectl next <experiment-id>
    tunectl report <experiment-id> <candidate-id> --result 0.42

Configuration:
  Set the API endpoint via flag, environment variable or a config file:
    TUNEPLANE_URL    Controller endpoint (default: http://localhost:6160)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".tunectl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".tunectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "TUNEPLANE_VARNAME"
	viper.SetEnvPrefix("TUNEPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tunectl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6160", "Tuneplane Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().String("api-key", "", "API key for the controller")
	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
}
