package main

import (
	"fmt"
	"io"
	"os"

	executor "github.com/hanpama/gqlexec/internal/executor"
	introspection "github.com/hanpama/gqlexec/internal/introspection"
	language "github.com/hanpama/gqlexec/internal/language"
	schema "github.com/hanpama/gqlexec/internal/schema"

	"github.com/spf13/cobra"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <query-file|->",
		Short: "Execute one operation against the fixture and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			query, err := readQuery(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			op, _ := cmd.Flags().GetString("operation")
			vars, _ := cmd.Flags().GetString("variables")
			req := executor.Request{OperationName: op}
			if vars != "" {
				if err := fixtureJSON.UnmarshalFromString(vars, &req.Variables); err != nil {
					return fmt.Errorf("variables: %w", err)
				}
			}

			s, root, err := buildRuntime(cfg)
			if err != nil {
				return err
			}
			v, err := language.NewValidator("schema.graphql", schema.Render(s))
			if err != nil {
				return err
			}
			doc, errs := v.ParseAndValidate(query)
			req.Document, req.ValidationErrors = doc, errs
			req.RootValue = root

			exec := executor.NewExecutor(s, executorOptions(cfg)...)
			res, err := exec.ExecuteRequest(cmd.Context(), req)
			if err != nil {
				return err
			}
			b, err := fixtureJSON.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().String("operation", "", "operation to run when the document has several")
	cmd.Flags().String("variables", "", "variables as a JSON object")
	cmd.Flags().Int("max-concurrency", 0, "maximum number of concurrent resolvers")
	return cmd
}

func readQuery(stdin io.Reader, arg string) (string, error) {
	var (
		b   []byte
		err error
	)
	if arg == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(arg)
	}
	return string(b), err
}

// buildRuntime loads the schema and fixture named by cfg, runs setup on the
// schema and initializes it.
func buildRuntime(cfg Config, setup ...func(*schema.Schema)) (*schema.Schema, map[string]any, error) {
	s, err := loadSchema(cfg.Schema)
	if err != nil {
		return nil, nil, err
	}
	root, err := loadFixture(cfg.Fixture)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Introspection {
		if err := introspection.Install(s); err != nil {
			return nil, nil, err
		}
	}
	streamFixtures(s)
	for _, fn := range setup {
		fn(s)
	}
	if err := s.Initialize(); err != nil {
		return nil, nil, err
	}
	return s, root, nil
}

func executorOptions(cfg Config) []executor.Option {
	opts := []executor.Option{executor.WithMaxConcurrency(cfg.Executor.MaxConcurrency)}
	if cfg.Executor.SerialQueries {
		opts = append(opts, executor.WithQueryStrategy(executor.SerialStrategy{}))
	}
	return opts
}
