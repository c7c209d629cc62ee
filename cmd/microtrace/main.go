package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/wnxd/microtrace/profiles/freebsd"
	_ "github.com/wnxd/microtrace/profiles/linux"
	_ "github.com/wnxd/microtrace/profiles/windows"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	rootCmd := &cobra.Command{
		Use:          "microtrace",
		Short:        "Correlate syscall entries and returns of emulated guests",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return err
				}
			}
			level, err := logrus.ParseLevel(viper.GetString("log-level"))
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a configuration file")
	rootCmd.PersistentFlags().String("log-level", "warning", "Log level (debug, info, warning, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		newProfilesCmd(),
		newReplayCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func init() {
	cobra.OnInitialize(cobraInit)
}

func cobraInit() {
	viper.SetEnvPrefix("microtrace")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
