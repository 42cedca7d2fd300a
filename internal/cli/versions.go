package cli

import (
	"github.com/spf13/cobra"
)

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect and restore document versions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [document-id]",
		Short: "List every version of a document, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			all, err := deps.Versions.GetAllVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), all)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history [document-id]",
		Short: "Show the score history of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			history, err := deps.Versions.GetVersionHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), history)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "compare [from-version-id] [to-version-id]",
		Short: "Diff two versions section by section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			diff, err := deps.Versions.CompareVersions(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), diff)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "improvement [document-id]",
		Short: "Show score improvement across scored versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			metrics, err := deps.Versions.GetImprovementMetrics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), metrics)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore [version-id]",
		Short: "Make a past version current again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			v, err := deps.Versions.RestoreVersion(cmd.Context(), args[0], map[string]any{"source": "reviewctl"})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	})

	return cmd
}
