package main

import (
	"github.com/spf13/cobra"
)

func newPlanCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect the query plan store",
	}

	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the query plans as YAML",
		Long: `Prints the learned index orderings. The output can be used as the
plan_file of a catalog file or as the CATALOGO_QUERY_PLAN file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return s.plans.Dump(cmd.OutOrStdout())
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget all learned query plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := o.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			s.plans.Clear()
			return s.savePlans(ctx)
		},
	}

	cmd.AddCommand(dump, clearCmd)
	return cmd
}
