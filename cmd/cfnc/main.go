// Command cfnc builds CF-compliant netCDF-4 files from spreadsheet data
// and inspects the result.
//
// Usage:
//
//	cfnc build recipe.toml [-o out.nc] [--strict]
//	cfnc check recipe.yaml [--strict]
//	cfnc inspect file.nc [--values]
//
// Every flag can also be set in a configuration file (--config) or in the
// environment as CFNC_<FLAG>, e.g. CFNC_LOG_LEVEL=debug. Flags take
// precedence over the environment, which takes precedence over the file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by all subcommands.
type app struct {
	cfg *viper.Viper
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: viper.New(), log: logrus.New()}
	a.cfg.SetEnvPrefix("CFNC")
	a.cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.cfg.AutomaticEnv()

	root := &cobra.Command{
		Use:          "cfnc",
		Short:        "Build CF-compliant netCDF-4 files from spreadsheets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "configuration file (TOML, YAML or JSON)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.Bool("log-json", false, "write logs as JSON")

	root.AddCommand(a.buildCmd(), a.checkCmd(), a.inspectCmd())
	return root
}

// setup binds the flags of the running command, reads the configuration
// file and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	if err := bindFlags(a.cfg, cmd.Flags()); err != nil {
		return err
	}
	if path := a.cfg.GetString("config"); path != "" {
		a.cfg.SetConfigFile(path)
		if err := a.cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("reading configuration file: %w", err)
		}
	}

	level, err := logrus.ParseLevel(a.cfg.GetString("log-level"))
	if err != nil {
		return err
	}
	a.log.SetLevel(level)
	a.log.SetOutput(cmd.ErrOrStderr())
	if a.cfg.GetBool("log-json") {
		a.log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func bindFlags(cfg *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err == nil {
			err = cfg.BindPFlag(f.Name, f)
		}
	})
	return err
}
