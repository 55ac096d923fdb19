// Command gqlexec serves and executes GraphQL operations against a schema
// written in SDL, with a JSON fixture as the root value.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gqlexec",
		Short:         "GraphQL execution engine and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "YAML configuration file")
	root.PersistentFlags().String("schema", "", "GraphQL SDL file")
	root.PersistentFlags().String("fixture", "", "JSON file used as the root value")
	root.AddCommand(newServeCmd(), newCheckSDLCmd(), newExecCmd())
	return root
}

// commandConfig loads the configuration named by --config and applies the
// flags given to cmd.
func commandConfig(cmd *cobra.Command) (Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return Config{}, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return cfg, err
	}
	return cfg, applyFlags(&cfg, cmd.Flags())
}
