package main

import (
	"fmt"
	"os"

	schema "github.com/hanpama/gqlexec/internal/schema"

	"github.com/spf13/cobra"
)

func newCheckSDLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-sdl [file]",
		Short: "Validate a GraphQL SDL file and print the normalized schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Schema = args[0]
			}
			s, err := loadSchema(cfg.Schema)
			if err != nil {
				return err
			}
			if err := s.Initialize(); err != nil {
				return err
			}

			sdl := schema.Render(s)
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringP("out", "o", "", "write the schema to a file instead of stdout")
	return cmd
}
