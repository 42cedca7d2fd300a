package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newATSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ats",
		Short: "Query the applicant tracking system catalog",
	}

	var (
		description string
		limit       int
	)
	match := &cobra.Command{
		Use:   "match [description-file]",
		Short: "List the ATS systems a target description points at",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			text := description
			if len(args) == 1 {
				if text, err = readTextFile(args[0]); err != nil {
					return err
				}
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("a description or description file is required")
			}
			return writeJSON(cmd.OutOrStdout(), deps.Catalog.Lookup(text, limit))
		},
	}
	match.Flags().StringVarP(&description, "description", "d", "", "Target description text")
	match.Flags().IntVar(&limit, "limit", 0, "Maximum number of systems (0 = no limit)")
	cmd.AddCommand(match)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every system in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), deps.Catalog.Systems())
		},
	})
	return cmd
}
