package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}
	root := &cobra.Command{
		Use:          "staticsd",
		Short:        "serve schema-validated static site values",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return readConfigFile(a.v, a.configFile)
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default ./staticsd.yaml or /etc/staticsd/staticsd.yaml)")
	root.PersistentFlags().String("schema-file", "", "schema document (defaults to the statics key of the config file)")
	_ = a.v.BindPFlag("schema.file", root.PersistentFlags().Lookup("schema-file"))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newSchemaCmd(a))
	return root
}
