package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-statics/schema/openapi"
)

func newSchemaCmd(a *app) *cobra.Command {
	var keyComponents bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "print the OpenAPI document for the configured schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			logger, closer, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			schema, err := a.schemaProvider(cfg.Schema, logger).Load(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := openapi.NewGenerator(openapi.WithKeyComponents(keyComponents)).Generate(schema)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().BoolVar(&keyComponents, "key-components", false, "publish every static key as its own component")
	return cmd
}
