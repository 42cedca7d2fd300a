package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-review/internal/review"
	"resume-review/internal/reviews"
)

type reviewFlags struct {
	documentID string
	target     string
	targetFile string
	domain     string
	async      bool
}

type reviewOutput struct {
	Session reviews.Session `json:"session"`
	Result  *review.Result  `json:"result,omitempty"`
}

func newReviewCmd() *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "review [resume-file]",
		Short: "Review a résumé through every stage and commit the rewritten version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			content, err := readTextFile(args[0])
			if err != nil {
				return err
			}
			target, err := targetText(flags.target, flags.targetFile)
			if err != nil {
				return err
			}
			documentID := flags.documentID
			if documentID == "" {
				documentID = documentIDFromPath(args[0])
			}

			ctx := cmd.Context()
			session, err := deps.Reviews.Start(ctx, reviews.StartInput{
				DocumentID:        documentID,
				Content:           content,
				TargetDescription: target,
				DomainTag:         flags.domain,
			})
			if err != nil {
				return fmt.Errorf("start review: %w", err)
			}

			if flags.async {
				if err := deps.Reviews.Enqueue(ctx, session.ID, ""); err != nil {
					return fmt.Errorf("enqueue review: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), reviewOutput{Session: session})
			}

			result, runErr := deps.Reviews.RunToCompletion(ctx, session.ID)
			if stored, err := deps.Reviews.Get(ctx, session.ID); err == nil {
				session = stored
			}
			if err := writeJSON(cmd.OutOrStdout(), reviewOutput{Session: session, Result: &result}); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("review %s: %w", session.ID, runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.documentID, "document-id", "", "Document id (default: file name without extension)")
	cmd.Flags().StringVar(&flags.target, "target", "", "Target job description text")
	cmd.Flags().StringVar(&flags.targetFile, "target-file", "", "File containing the target job description")
	cmd.Flags().StringVar(&flags.domain, "domain", "", "Domain tag, e.g. backend or data")
	cmd.Flags().BoolVar(&flags.async, "async", false, "Enqueue the review for a worker instead of running it here")
	return cmd
}
